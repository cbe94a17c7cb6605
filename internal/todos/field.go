package todos

import (
	"bytes"
	"encoding/json"
)

// Field is a patch value that tells an absent JSON key apart from an
// explicit null. The zero Field is absent.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value returns a set, non-null Field.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// Present reports whether the field carries a non-null value.
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}

// UnmarshalJSON is only called for keys present in the document.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON renders absent and null fields as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
