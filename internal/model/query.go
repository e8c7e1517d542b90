package model

import (
	"strconv"
	"strings"
)

// Query is an ordered list of query parameters. It is never
// deduplicated: array parameters are expressed by repeating a key,
// e.g. a[]=1&a[]=2.
type Query []Pair

func (q *Query) Add(key, value string) {
	*q = append(*q, Pair{Key: key, Value: value})
}

func (q *Query) AddInt(key string, value int64) {
	q.Add(key, strconv.FormatInt(value, 10))
}

// AddFloat formats value with a fixed precision of 7 digits.
func (q *Query) AddFloat(key string, value float64) {
	q.Add(key, strconv.FormatFloat(value, 'f', 7, 64))
}

// Set overwrites the value of every parameter matching key.
func (q Query) Set(key, value string, icase bool) {
	eq := matcher(icase)
	for i := range q {
		if eq(q[i].Key, key) {
			q[i].Value = value
		}
	}
}

func (q Query) Find(key string, icase bool) (Pair, bool) {
	eq := matcher(icase)
	for _, p := range q {
		if eq(p.Key, key) {
			return p, true
		}
	}
	return Pair{}, false
}

// Get returns the first value stored under key.
func (q Query) Get(key string, icase bool) string {
	p, _ := q.Find(key, icase)
	return p.Value
}

func (q Query) Has(key string, icase bool) bool {
	_, ok := q.Find(key, icase)
	return ok
}

// Values returns every value stored under key, in order.
func (q Query) Values(key string, icase bool) []string {
	eq := matcher(icase)
	var out []string
	for _, p := range q {
		if eq(p.Key, key) {
			out = append(out, p.Value)
		}
	}
	return out
}

// Remove drops every parameter matching key.
func (q *Query) Remove(key string, icase bool) bool {
	eq := matcher(icase)
	out := (*q)[:0]
	removed := false
	for _, p := range *q {
		if eq(p.Key, key) {
			removed = true
			continue
		}
		out = append(out, p)
	}
	*q = out
	return removed
}

// RemoveIndex drops the index-th parameter among those matching key,
// counting in encounter order. An out of range index is a no-op.
func (q *Query) RemoveIndex(key string, index int, icase bool) bool {
	eq := matcher(icase)
	found := 0
	for i, p := range *q {
		if !eq(p.Key, key) {
			continue
		}
		if found == index {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return true
		}
		found++
	}
	return false
}

// Encode joins the parameters as k=v pairs separated by '&'. Values
// are written as stored, without escaping.
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p.Key)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
	}
	return sb.String()
}

func (q Query) Clone() Query {
	if q == nil {
		return nil
	}
	return append(Query(nil), q...)
}

// ParseQuery splits an encoded parameter string. A leading '?' is
// ignored and a parameter without '=' gets an empty value.
func ParseQuery(s string) Query {
	s = strings.TrimPrefix(s, "?")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "&")
	q := make(Query, 0, len(parts))
	for _, part := range parts {
		q = append(q, splitPair(part, "="))
	}
	return q
}
