package body

import (
	"sort"

	"github.com/frankli0324/go-httb/internal/model"
)

const FormURLEncoded = "application/x-www-form-urlencoded"

// Form is an application/x-www-form-urlencoded body. Fields are kept in
// insertion order and written without escaping.
type Form struct {
	fields model.Query
}

// ParseForm reads an encoded form. Building the result yields the
// input back.
func ParseForm(encoded string) *Form {
	return &Form{fields: model.ParseQuery(encoded)}
}

func (f *Form) Add(name, value string) *Form {
	f.fields.Add(name, value)
	return f
}

// AddArray adds every value under name[].
func (f *Form) AddArray(name string, values []string) *Form {
	key := name + "[]"
	for _, v := range values {
		f.fields.Add(key, v)
	}
	return f
}

// AddMap adds the entries of m sorted by key.
func (f *Form) AddMap(m map[string]string) *Form {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.fields.Add(k, m[k])
	}
	return f
}

func (f *Form) Fields() model.Query { return f.fields.Clone() }

func (f *Form) Encode() string { return f.fields.Encode() }

// Build sets Content-Type unless the caller already chose one.
func (f *Form) Build(h *model.Header) ([]byte, error) {
	h.SetDefault("Content-Type", FormURLEncoded)
	return []byte(f.fields.Encode()), nil
}
