// Package enums holds the string-backed value sets stored in the database and
// exposed over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// valueSet is an ordered list of the legal values of one enum type.
type valueSet[T ~string] struct {
	name   string
	values []T
	fold   bool
}

func newValueSet[T ~string](name string, fold bool, values ...T) valueSet[T] {
	return valueSet[T]{name: name, values: values, fold: fold}
}

func (s valueSet[T]) contains(v T) bool {
	return slices.Contains(s.values, v)
}

// parse matches raw exactly, or case-insensitively and trimmed when the set folds.
func (s valueSet[T]) parse(raw string) (T, error) {
	want := raw
	if s.fold {
		want = strings.ToUpper(strings.TrimSpace(raw))
	}
	for _, v := range s.values {
		if string(v) == want {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", s.name, raw)
}

func (s valueSet[T]) all() []T {
	return slices.Clone(s.values)
}
