package jid

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    JID
		wantErr bool
	}{
		{"room", "room@conf.example", JID{Local: "room", Domain: "conf.example"}, false},
		{"with resource", "room@conf.example/alice", JID{Local: "room", Domain: "conf.example", Resource: "alice"}, false},
		{"resource with slash", "room@conf.example/a/b", JID{Local: "room", Domain: "conf.example", Resource: "a/b"}, false},
		{"domain only", "conf.example", JID{Domain: "conf.example"}, false},
		{"trimmed", "  room@conf.example ", JID{Local: "room", Domain: "conf.example"}, false},
		{"empty", "", JID{}, true},
		{"no domain", "room@", JID{}, true},
		{"empty local", "@conf.example", JID{}, true},
		{"empty resource", "room@conf.example/", JID{}, true},
		{"space in local", "my room@conf.example", JID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("error %v does not wrap ErrInvalid", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBareAndString(t *testing.T) {
	j := MustParse("room@conf.example/alice")
	if j.Bare() != "room@conf.example" {
		t.Errorf("Bare() = %q", j.Bare())
	}
	if j.String() != "room@conf.example/alice" {
		t.Errorf("String() = %q", j.String())
	}
	if got := j.WithResource("").String(); got != "room@conf.example" {
		t.Errorf("WithResource(\"\").String() = %q", got)
	}
	if got := MustParse("conf.example").Bare(); got != "conf.example" {
		t.Errorf("domain-only Bare() = %q", got)
	}
}
