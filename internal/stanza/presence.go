package stanza

import (
	"encoding/xml"
	"fmt"

	"github.com/matheus3301/xmark/internal/jid"
)

type mucHistory struct {
	MaxStanzas string `xml:"maxstanzas,attr"`
}

type mucJoin struct {
	XMLName  xml.Name    `xml:"http://jabber.org/protocol/muc x"`
	Password string      `xml:"password,omitempty"`
	History  *mucHistory `xml:"history"`
}

type presence struct {
	XMLName xml.Name `xml:"presence"`
	ID      string   `xml:"id,attr,omitempty"`
	To      string   `xml:"to,attr"`
	Type    string   `xml:"type,attr,omitempty"`
	X       *mucJoin `xml:"x"`
}

// JoinPresence renders the presence that enters room as nick.
func JoinPresence(id string, room jid.JID, nick, password string) ([]byte, error) {
	if nick == "" {
		return nil, fmt.Errorf("join %s: empty nickname", room.Bare())
	}
	out, err := marshal(presence{
		ID: id,
		To: room.WithResource(nick).String(),
		X:  &mucJoin{Password: password, History: &mucHistory{MaxStanzas: "0"}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode join presence: %w", err)
	}
	return out, nil
}

// LeavePresence renders the unavailable presence that leaves room.
func LeavePresence(room jid.JID, nick string) ([]byte, error) {
	out, err := marshal(presence{To: room.WithResource(nick).String(), Type: "unavailable"})
	if err != nil {
		return nil, fmt.Errorf("encode leave presence: %w", err)
	}
	return out, nil
}
