// Package metadata provides the ordered, case-preserving header store used
// for x-amz-meta-* request headers.
package metadata

import "strings"

// Multimap maps header names to an ordered list of values.
// Names are stored exactly as given; lookups are case-sensitive.
// The zero value is ready to use.
type Multimap struct {
	keys   []string
	values map[string][]string
}

// New returns an empty Multimap.
func New() *Multimap {
	return &Multimap{}
}

// Add appends value to the list for key.
func (m *Multimap) Add(key, value string) {
	if m.values == nil {
		m.values = make(map[string][]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = append(m.values[key], value)
}

// Keys returns the keys in order of first insertion.
func (m *Multimap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns a copy of the values stored for key.
func (m *Multimap) Values(key string) []string {
	v := m.values[key]
	if v == nil {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// Len returns the number of distinct keys.
func (m *Multimap) Len() int {
	return len(m.keys)
}

// Joined returns the wire form of the values for key. See Join.
func (m *Multimap) Joined(key string) string {
	return Join(m.values[key])
}

// Join strips newlines from each value, trims surrounding whitespace and
// joins the results with commas.
func Join(values []string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strings.TrimSpace(strings.ReplaceAll(v, "\n", "")))
	}
	return b.String()
}
