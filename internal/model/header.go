package model

import (
	"sort"
	"strings"
)

// Header is an ordered list of header fields. Names are matched
// case-insensitively and the casing of the first insertion is kept.
// Unlike [net/http.Header], a Header never holds two fields whose
// names are equal under [EqualFold].
type Header []Pair

func (h Header) index(name string) int {
	for i := range h {
		if EqualFold(h[i].Key, name) {
			return i
		}
	}
	return -1
}

// Add inserts the field, overwriting the value of an existing field
// with the same name in place.
func (h *Header) Add(name, value string) {
	if i := h.index(name); i >= 0 {
		(*h)[i].Value = value
		return
	}
	*h = append(*h, Pair{Key: name, Value: value})
}

// Set is an alias of Add, kept for call sites that read better with it.
func (h *Header) Set(name, value string) { h.Add(name, value) }

// SetDefault adds the field only if no field with that name exists.
func (h *Header) SetDefault(name, value string) {
	if h.index(name) < 0 {
		*h = append(*h, Pair{Key: name, Value: value})
	}
}

// AddMap adds every entry of m. Keys are applied in sorted order so
// the resulting field order does not depend on map iteration.
func (h *Header) AddMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Add(k, m[k])
	}
}

// AddHTTP adds fields from a [net/http.Header] shaped map. Multiple
// values of one field are joined with ", ".
func (h *Header) AddHTTP(m map[string][]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Add(k, strings.Join(m[k], ", "))
	}
}

func (h Header) Get(name string) string {
	if i := h.index(name); i >= 0 {
		return h[i].Value
	}
	return ""
}

func (h Header) Has(name string) bool { return h.index(name) >= 0 }

// Find returns the stored field, with the casing it was first added with.
func (h Header) Find(name string) (Pair, bool) {
	if i := h.index(name); i >= 0 {
		return h[i], true
	}
	return Pair{}, false
}

// Equals reports whether the field exists and its value is exactly value.
func (h Header) Equals(name, value string) bool {
	p, ok := h.Find(name)
	return ok && p.Value == value
}

// Del removes the field matching name case-insensitively.
func (h *Header) Del(name string) bool {
	return h.del(name, EqualFold)
}

// DelExact removes only a field whose name matches name byte for byte.
func (h *Header) DelExact(name string) bool {
	return h.del(name, func(a, b string) bool { return a == b })
}

func (h *Header) del(name string, eq func(a, b string) bool) bool {
	out := (*h)[:0]
	removed := false
	for _, p := range *h {
		if eq(p.Key, name) {
			removed = true
			continue
		}
		out = append(out, p)
	}
	*h = out
	return removed
}

func (h Header) Len() int { return len(h) }

func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	return append(Header(nil), h...)
}

// Lines renders every field as "Name: value".
func (h Header) Lines() []string {
	out := make([]string, len(h))
	for i, p := range h {
		out[i] = p.Key + ": " + p.Value
	}
	return out
}
