package stanza

import (
	"encoding/xml"
	"fmt"

	"github.com/matheus3301/xmark/internal/bookmark"
)

type conference struct {
	XMLName  xml.Name `xml:"conference"`
	JID      string   `xml:"jid,attr"`
	Name     string   `xml:"name,attr,omitempty"`
	Autojoin string   `xml:"autojoin,attr"`
	Nick     string   `xml:"nick,omitempty"`
	Password string   `xml:"password,omitempty"`
}

type storage struct {
	XMLName     xml.Name     `xml:"storage:bookmarks storage"`
	Conferences []conference `xml:"conference"`
}

type privateQuery struct {
	XMLName xml.Name `xml:"jabber:iq:private query"`
	Storage storage  `xml:"storage"`
}

type pubsubItems struct {
	Node string `xml:"node,attr"`
}

type pubsubGet struct {
	XMLName xml.Name    `xml:"http://jabber.org/protocol/pubsub pubsub"`
	Items   pubsubItems `xml:"items"`
}

type pubsubItem struct {
	Conference conference `xml:"conference"`
}

type publish struct {
	Node  string       `xml:"node,attr"`
	Items []pubsubItem `xml:"item"`
}

type formField struct {
	Var   string `xml:"var,attr"`
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:"value"`
}

type dataForm struct {
	XMLName xml.Name    `xml:"jabber:x:data x"`
	Type    string      `xml:"type,attr"`
	Fields  []formField `xml:"field"`
}

type publishOptions struct {
	Form dataForm `xml:"x"`
}

type pubsubSet struct {
	XMLName        xml.Name       `xml:"http://jabber.org/protocol/pubsub pubsub"`
	Publish        publish        `xml:"publish"`
	PublishOptions publishOptions `xml:"publish-options"`
}

// LegacyQuery returns the payload requesting the private storage bookmarks.
func LegacyQuery() []byte {
	out, _ := marshal(privateQuery{})
	return out
}

// PubsubQuery returns the payload requesting the items of the bookmarks node.
func PubsubQuery() []byte {
	out, _ := marshal(pubsubGet{Items: pubsubItems{Node: BookmarksNode}})
	return out
}

// LegacyUpdate renders the full private storage document. The server replaces
// its stored document with exactly this set, so callers pass every
// private-storage bookmark, not just the changed one. Records owned by
// another backend are skipped.
func LegacyUpdate(records []bookmark.Record) ([]byte, error) {
	q := privateQuery{}
	for _, r := range records {
		if r.Backend != bookmark.LegacyStorage {
			continue
		}
		q.Storage.Conferences = append(q.Storage.Conferences, toConference(r))
	}
	out, err := marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode private storage update: %w", err)
	}
	return out, nil
}

// PubsubPublish renders one publish of every pubsub-owned bookmark as a
// separate item, with publish options making the node persistent and
// whitelisted.
func PubsubPublish(records []bookmark.Record) ([]byte, error) {
	p := pubsubSet{
		Publish: publish{Node: BookmarksNode},
		PublishOptions: publishOptions{Form: dataForm{
			Type: "submit",
			Fields: []formField{
				{Var: "FORM_TYPE", Type: "hidden", Value: NSPublishOptions},
				{Var: "pubsub#persist_items", Value: "true"},
				{Var: "pubsub#access_model", Value: "whitelist"},
			},
		}},
	}
	for _, r := range records {
		if r.Backend != bookmark.Pubsub {
			continue
		}
		p.Publish.Items = append(p.Publish.Items, pubsubItem{Conference: toConference(r)})
	}
	out, err := marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode pubsub publish: %w", err)
	}
	return out, nil
}

func toConference(r bookmark.Record) conference {
	c := conference{
		JID:      r.Room.Bare(),
		Name:     r.Room.Local,
		Autojoin: "false",
		Nick:     r.Nick,
		Password: r.Password,
	}
	if r.Autojoin {
		c.Autojoin = "true"
	}
	return c
}
