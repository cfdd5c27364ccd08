package serde

import (
	"encoding"
	"fmt"
)

// StringerSerializer encodes values by their String form.
func StringerSerializer[T fmt.Stringer]() Serializer[T] {
	return func(t T) ([]byte, error) {
		return []byte(t.String()), nil
	}
}

// TextDeserializer decodes values implementing encoding.TextUnmarshaler, the
// inverse of StringerSerializer for types like etag.NodeTag.
func TextDeserializer[T any, PT interface {
	*T
	encoding.TextUnmarshaler
}]() Deserializer[T] {
	return func(b []byte) (T, error) {
		var v T
		if err := PT(&v).UnmarshalText(b); err != nil {
			return *new(T), err
		}
		return v, nil
	}
}

// Text pairs StringerSerializer with TextDeserializer.
func Text[T fmt.Stringer, PT interface {
	*T
	encoding.TextUnmarshaler
}]() SerDe[T] {
	return SerDe[T]{
		Serializer:   StringerSerializer[T](),
		Deserializer: TextDeserializer[T, PT](),
	}
}
