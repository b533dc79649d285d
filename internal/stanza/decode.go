package stanza

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/xmark/internal/bookmark"
	"github.com/matheus3301/xmark/internal/jid"
)

// Decode extracts every conference element from a query response payload
// and tags the records with backend. Elements without a usable jid are
// skipped. If the XML itself breaks part way, the records decoded before the
// break are returned together with the error.
func Decode(payload []byte, backend bookmark.Backend) ([]bookmark.Record, error) {
	d := xml.NewDecoder(bytes.NewReader(payload))
	var records []bookmark.Record
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("decode bookmarks: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "conference" {
			continue
		}

		var c conference
		if err := d.DecodeElement(&c, &start); err != nil {
			return records, fmt.Errorf("decode conference: %w", err)
		}
		if r, ok := fromConference(c, backend); ok {
			records = append(records, r)
		}
	}
}

func fromConference(c conference, backend bookmark.Backend) (bookmark.Record, bool) {
	if c.JID == "" {
		return bookmark.Record{}, false
	}
	room, err := jid.Parse(c.JID)
	if err != nil {
		return bookmark.Record{}, false
	}
	return bookmark.Record{
		Room:     room.WithResource(""),
		Nick:     c.Nick,
		Password: c.Password,
		Autojoin: c.Autojoin == "1" || c.Autojoin == "true",
		Backend:  backend,
	}, true
}
