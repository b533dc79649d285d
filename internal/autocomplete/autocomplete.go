package autocomplete

import (
	"slices"
	"strings"
)

// Index is a sorted set of keys supporting cycling prefix completion.
// Successive calls to Complete keep completing the prefix of the first call
// until Reset is called, so repeated tab presses walk through every match.
type Index struct {
	keys   []string
	search string
	last   string
	active bool
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Add inserts key, keeping the set sorted. Duplicates are ignored.
func (ix *Index) Add(key string) {
	i, found := slices.BinarySearch(ix.keys, key)
	if found {
		return
	}
	ix.keys = slices.Insert(ix.keys, i, key)
}

// Remove deletes key if present.
func (ix *Index) Remove(key string) {
	i, found := slices.BinarySearch(ix.keys, key)
	if !found {
		return
	}
	ix.keys = slices.Delete(ix.keys, i, i+1)
	if ix.last == key {
		ix.last = ""
	}
}

// Contains reports whether key is in the index.
func (ix *Index) Contains(key string) bool {
	_, found := slices.BinarySearch(ix.keys, key)
	return found
}

// Len returns the number of keys.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// Keys returns a sorted copy of the keys.
func (ix *Index) Keys() []string {
	return slices.Clone(ix.keys)
}

// Clear drops every key and the cycling state.
func (ix *Index) Clear() {
	ix.keys = nil
	ix.Reset()
}

// Reset forgets the current search so the next Complete starts fresh.
func (ix *Index) Reset() {
	ix.search = ""
	ix.last = ""
	ix.active = false
}

// Complete returns the next key starting with prefix. The prefix of the first
// call after a Reset is remembered; later calls ignore their argument and
// cycle through that prefix's matches, wrapping around.
//
// When exactIfSingle is false, a prefix whose only match is itself yields no
// completion since there is nothing left to complete.
func (ix *Index) Complete(prefix string, exactIfSingle bool) (string, bool) {
	if !ix.active {
		ix.search = prefix
		ix.last = ""
		ix.active = true
	}

	matches := ix.matches(ix.search)
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		if !exactIfSingle && matches[0] == ix.search {
			return "", false
		}
		ix.last = matches[0]
		return matches[0], true
	}

	next := matches[0]
	if ix.last != "" {
		if i := slices.Index(matches, ix.last); i >= 0 && i+1 < len(matches) {
			next = matches[i+1]
		}
	}
	ix.last = next
	return next, true
}

func (ix *Index) matches(prefix string) []string {
	start, _ := slices.BinarySearch(ix.keys, prefix)
	end := start
	for end < len(ix.keys) && strings.HasPrefix(ix.keys[end], prefix) {
		end++
	}
	return ix.keys[start:end]
}
