package edoc

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("pipeline document not found")

// Store persists named pipeline documents.
type Store interface {
	Put(ctx context.Context, name string, d *Document) error
	// Get returns ErrNotFound if name does not exist.
	Get(ctx context.Context, name string) (*Document, error)
	// List returns all names in lexical order.
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// ValidateName checks that name is usable as a store key.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("empty pipeline name")
	}
	if strings.ContainsAny(name, "/\\ \t\n\r") {
		return fmt.Errorf("pipeline name %q must not contain slashes or whitespace", name)
	}
	return nil
}
