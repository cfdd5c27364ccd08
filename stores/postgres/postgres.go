// Package postgres stores pipeline documents in a PostgreSQL table, one
// JSONB row per name.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/birdayz/edgepipe/edoc"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS edgepipe_pipelines (
    name       TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PGStore implements edoc.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Connect opens a pool for url and creates the schema.
func Connect(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("edgepipe: connect postgres: %w", err)
	}
	s := New(pool)
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the pipelines table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("edgepipe: create schema: %w", err)
	}
	return nil
}

// DropSchema drops the pipelines table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS edgepipe_pipelines;`)
	return err
}

func (s *PGStore) Put(ctx context.Context, name string, d *edoc.Document) error {
	if err := edoc.ValidateName(name); err != nil {
		return err
	}
	b, err := edoc.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO edgepipe_pipelines (name, document) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`,
		name, string(b),
	)
	if err != nil {
		return fmt.Errorf("edgepipe: put pipeline: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, name string) (*edoc.Document, error) {
	var b []byte
	err := s.db.QueryRow(ctx,
		`SELECT document FROM edgepipe_pipelines WHERE name = $1`, name,
	).Scan(&b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", edoc.ErrNotFound, name)
		}
		return nil, fmt.Errorf("edgepipe: get pipeline: %w", err)
	}
	return edoc.Unmarshal(b)
}

// List returns all names ordered by name. Returns an empty slice (not nil)
// if there are none.
func (s *PGStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM edgepipe_pipelines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("edgepipe: list pipelines: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("edgepipe: scan pipelines: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *PGStore) Delete(ctx context.Context, name string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM edgepipe_pipelines WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("edgepipe: delete pipeline: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", edoc.ErrNotFound, name)
	}
	return nil
}

// Close closes the pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

var _ edoc.Store = (*PGStore)(nil)
