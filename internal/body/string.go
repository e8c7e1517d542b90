// Package body holds the request body builders. Every builder
// implements [model.BodyBuilder].
package body

import "github.com/frankli0324/go-httb/internal/model"

// String passes its content through unchanged.
type String string

func (s String) Build(*model.Header) ([]byte, error) {
	return []byte(s), nil
}

// Bytes is the []byte flavour of [String].
type Bytes []byte

func (b Bytes) Build(*model.Header) ([]byte, error) {
	return append([]byte(nil), b...), nil
}
