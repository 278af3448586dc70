package model

import (
	"bytes"
	"encoding/json"
)

// Nullable is a patch field for a nullable column. Set reports whether the
// key was present in the request body; a present null leaves Value nil and
// clears the column.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// NullableOf returns a present, non-null field.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a present field that clears the column.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// ApplyTo overwrites *dst when the field was present.
func (n Nullable[T]) ApplyTo(dst **T) {
	if n.Set {
		*dst = n.Value
	}
}
