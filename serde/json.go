package serde

import (
	"bytes"
	"encoding/json"
)

// JSONSerializer encodes values as compact JSON. HTML characters are kept
// as is, since message data is not rendered by browsers.
func JSONSerializer[T any]() Serializer[T] {
	return func(t T) ([]byte, error) {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
	}
}

func JSONDeserializer[T any]() Deserializer[T] {
	return func(b []byte) (T, error) {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return *new(T), err
		}
		return v, nil
	}
}

func JSON[T any]() SerDe[T] {
	return SerDe[T]{
		Serializer:   JSONSerializer[T](),
		Deserializer: JSONDeserializer[T](),
	}
}
