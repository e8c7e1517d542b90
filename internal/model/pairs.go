package model

import "strings"

// Pair is a single name/value entry of a [Header] or a [Query].
type Pair struct {
	Key   string
	Value string
}

// EqualFold reports whether a and b are equal under ASCII case folding.
// Header names and query keys are compared with it.
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}
	return true
}

// FoldHash hashes s so that strings equal under [EqualFold] hash equally.
func FoldHash(s string) uint64 {
	h := uint64(14695981039346656037) // FNV-1a offset basis
	for i := 0; i < len(s); i++ {
		h ^= uint64(lower(s[i]))
		h *= 1099511628211
	}
	return h
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func matcher(icase bool) func(a, b string) bool {
	if icase {
		return EqualFold
	}
	return func(a, b string) bool { return a == b }
}

func splitPair(s, sep string) Pair {
	k, v, _ := strings.Cut(s, sep)
	return Pair{Key: k, Value: v}
}
