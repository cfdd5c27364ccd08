// Package pebble stores pipeline documents in a local Pebble database.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/multierr"

	"github.com/birdayz/edgepipe/edoc"
)

const keyPrefix = "pipeline/"

type Store struct {
	db *pebble.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func key(name string) []byte {
	return []byte(keyPrefix + name)
}

func (s *Store) Put(ctx context.Context, name string, d *edoc.Document) error {
	if err := edoc.ValidateName(name); err != nil {
		return err
	}
	b, err := edoc.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Set(key(name), b, pebble.Sync)
}

func (s *Store) Get(ctx context.Context, name string) (*edoc.Document, error) {
	v, closer, err := s.db.Get(key(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", edoc.ErrNotFound, name)
		}
		return nil, err
	}
	defer closer.Close()

	// v is only valid until closer is closed. Unmarshal copies what it keeps.
	return edoc.Unmarshal(v)
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixEnd([]byte(keyPrefix)),
	})
	if err != nil {
		return nil, err
	}

	names := []string{}
	for valid := iter.First(); valid; valid = iter.Next() {
		names = append(names, string(iter.Key()[len(keyPrefix):]))
	}
	return names, multierr.Combine(iter.Error(), iter.Close())
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, closer, err := s.db.Get(key(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", edoc.ErrNotFound, name)
		}
		return err
	}
	closer.Close()
	return s.db.Delete(key(name), pebble.Sync)
}

func (s *Store) Close() error {
	if err := s.db.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

var _ edoc.Store = (*Store)(nil)
