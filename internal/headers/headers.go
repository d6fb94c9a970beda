// Package headers provides the case-insensitive header mapping used by the
// PSK envelope layers. Lookup folds case; iteration preserves insertion
// order and the original spelling of each name.
package headers

import "strings"

type entry struct {
	name  string
	value string
}

// Map is a case-insensitive mapping from header name to value.
// The zero value is not usable; call New.
type Map struct {
	order   []string // normalized keys, insertion order
	entries map[string]entry
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[string]entry)}
}

// From builds a Map from name/value pairs, in the given order.
func From(pairs ...[2]string) *Map {
	m := New()
	for _, p := range pairs {
		m.Set(p[0], p[1])
	}
	return m
}

func normalize(name string) string {
	return strings.ToLower(name)
}

// Set inserts or replaces a header. Replacing keeps the original position
// but adopts the new spelling and value.
func (m *Map) Set(name, value string) {
	key := normalize(name)
	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = entry{name: name, value: value}
}

// Get looks up a header value case-insensitively.
func (m *Map) Get(name string) (string, bool) {
	e, ok := m.entries[normalize(name)]
	return e.value, ok
}

// Has reports whether a header with the given name exists, ignoring case.
func (m *Map) Has(name string) bool {
	_, ok := m.entries[normalize(name)]
	return ok
}

// Len returns the number of headers.
func (m *Map) Len() int {
	return len(m.order)
}

// Each calls fn for every header in insertion order, with the original
// spelling of the name.
func (m *Map) Each(fn func(name, value string)) {
	for _, key := range m.order {
		e := m.entries[key]
		fn(e.name, e.value)
	}
}
