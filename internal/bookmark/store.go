package bookmark

import (
	"slices"

	"github.com/matheus3301/xmark/internal/autocomplete"
)

// Store is the in-memory bookmark collection keyed by bare room address, plus
// a prefix index over the same keys. It is not safe for concurrent use; the
// sync controller owns it from a single goroutine.
type Store struct {
	order []string
	byKey map[string]*Record
	index *autocomplete.Index
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byKey: make(map[string]*Record),
		index: autocomplete.New(),
	}
}

// Add inserts r. It returns false if the room is already present.
func (s *Store) Add(r Record) bool {
	key := r.Key()
	if _, exists := s.byKey[key]; exists {
		return false
	}
	r.Room = r.Room.WithResource("")
	s.byKey[key] = &r
	s.order = append(s.order, key)
	s.index.Add(key)
	return true
}

// Update applies u to the record for room in place. The backend never changes.
func (s *Store) Update(room string, u Update) (Record, bool) {
	r, ok := s.byKey[room]
	if !ok {
		return Record{}, false
	}
	if u.Nick != nil {
		r.Nick = *u.Nick
	}
	if u.Password != nil {
		r.Password = *u.Password
	}
	if u.Autojoin != nil {
		r.Autojoin = *u.Autojoin
	}
	return *r, true
}

// Remove deletes the record for room and returns it.
func (s *Store) Remove(room string) (Record, bool) {
	r, ok := s.byKey[room]
	if !ok {
		return Record{}, false
	}
	delete(s.byKey, room)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == room })
	s.index.Remove(room)
	return *r, true
}

// Get returns a copy of the record for room.
func (s *Store) Get(room string) (Record, bool) {
	r, ok := s.byKey[room]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Contains reports whether room is bookmarked.
func (s *Store) Contains(room string) bool {
	_, ok := s.byKey[room]
	return ok
}

// FindByPrefix completes text against the bookmarked room addresses.
func (s *Store) FindByPrefix(text string) (string, bool) {
	return s.index.Complete(text, true)
}

// ResetCompletion forgets the current completion cycle.
func (s *Store) ResetCompletion() {
	s.index.Reset()
}

// Snapshot returns copies of all records in insertion order.
func (s *Store) Snapshot() []Record {
	out := make([]Record, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.byKey[k])
	}
	return out
}

// ByBackend returns copies of the records owned by b, in insertion order.
func (s *Store) ByBackend(b Backend) []Record {
	var out []Record
	for _, k := range s.order {
		if r := s.byKey[k]; r.Backend == b {
			out = append(out, *r)
		}
	}
	return out
}

// Clear drops every record and index entry.
func (s *Store) Clear() {
	s.order = nil
	clear(s.byKey)
	s.index.Clear()
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.order)
}
