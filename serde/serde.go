// Package serde holds the byte encodings used where payloads leave the
// process, e.g. Kafka record keys and values.
package serde

type Serializer[T any] func(T) ([]byte, error)

type Deserializer[T any] func([]byte) (T, error)

type SerDe[T any] struct {
	Serializer   Serializer[T]
	Deserializer Deserializer[T]
}
