// Package stanza builds and parses the XML payloads exchanged with the
// server for bookmark storage: private XML storage queries and updates,
// pubsub queries and publishes, MUC join presences, and the IQ envelope
// that carries them.
package stanza

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Namespaces and well-known names.
const (
	NSPrivate        = "jabber:iq:private"
	NSBookmarks      = "storage:bookmarks"
	NSPubsub         = "http://jabber.org/protocol/pubsub"
	NSData           = "jabber:x:data"
	NSMUC            = "http://jabber.org/protocol/muc"
	NSPublishOptions = "http://jabber.org/protocol/pubsub#publish-options"

	BookmarksNode = "storage:bookmarks"
)

// IQ types.
const (
	TypeGet    = "get"
	TypeSet    = "set"
	TypeResult = "result"
	TypeError  = "error"
)

// IQ is an info/query envelope around a raw payload.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	Type    string   `xml:"type,attr"`
	To      string   `xml:"to,attr,omitempty"`
	From    string   `xml:"from,attr,omitempty"`
	Payload []byte   `xml:",innerxml"`
}

// Response is an inbound IQ result or error as handed over by the transport.
type Response struct {
	ID      string
	Type    string
	From    string
	Payload []byte
}

// IsError reports whether the server answered with an error IQ.
func (r Response) IsError() bool {
	return r.Type == TypeError
}

// EncodeIQ serializes iq with its payload written verbatim.
func EncodeIQ(iq IQ) ([]byte, error) {
	if iq.ID == "" {
		return nil, fmt.Errorf("encode iq: missing id")
	}
	switch iq.Type {
	case TypeGet, TypeSet, TypeResult, TypeError:
	default:
		return nil, fmt.Errorf("encode iq: bad type %q", iq.Type)
	}
	out, err := xml.Marshal(iq)
	if err != nil {
		return nil, fmt.Errorf("encode iq: %w", err)
	}
	return out, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
