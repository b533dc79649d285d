package jid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("invalid jid")

// JID is an XMPP address: local@domain/resource.
type JID struct {
	Local    string
	Domain   string
	Resource string
}

// Parse splits s into its parts. The domain is mandatory.
func Parse(s string) (JID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return JID{}, fmt.Errorf("%w: empty", ErrInvalid)
	}

	var j JID
	bare, resource, hasResource := strings.Cut(s, "/")
	if hasResource {
		if resource == "" {
			return JID{}, fmt.Errorf("%w: %q has empty resource", ErrInvalid, s)
		}
		j.Resource = resource
	}

	if at := strings.LastIndex(bare, "@"); at >= 0 {
		j.Local = bare[:at]
		j.Domain = bare[at+1:]
		if j.Local == "" {
			return JID{}, fmt.Errorf("%w: %q has empty local part", ErrInvalid, s)
		}
	} else {
		j.Domain = bare
	}

	if j.Domain == "" {
		return JID{}, fmt.Errorf("%w: %q has no domain", ErrInvalid, s)
	}
	if strings.ContainsAny(j.Local, "\"&'/:<>@ ") || strings.ContainsAny(j.Domain, "@ ") {
		return JID{}, fmt.Errorf("%w: %q contains forbidden characters", ErrInvalid, s)
	}
	return j, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return j
}

// Bare returns local@domain, or just the domain when there is no local part.
func (j JID) Bare() string {
	if j.Local == "" {
		return j.Domain
	}
	return j.Local + "@" + j.Domain
}

// String returns the full address including the resource.
func (j JID) String() string {
	if j.Resource == "" {
		return j.Bare()
	}
	return j.Bare() + "/" + j.Resource
}

// WithResource returns a copy of j with the resource replaced.
func (j JID) WithResource(resource string) JID {
	j.Resource = resource
	return j
}

// IsZero reports whether j is the zero value.
func (j JID) IsZero() bool {
	return j == JID{}
}
