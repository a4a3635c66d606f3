package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gofhir/normalizer/service"
)

// queryable is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Postgres loads registry documents from a table with the layout
//
//	CREATE TABLE normalization_documents (
//	    name    text PRIMARY KEY,
//	    content bytea NOT NULL
//	);
//
// The manifest is stored as a row named after the manifest file.
type Postgres struct {
	db           queryable
	query        string
	manifestFile string
}

// NewPostgres creates a loader reading through db.
func NewPostgres(db queryable, opts ...Option) *Postgres {
	o := newOptions(opts)
	table := pgx.Identifier{o.table}.Sanitize()
	return &Postgres{
		db:           db,
		query:        `SELECT content FROM ` + table + ` WHERE name = $1`,
		manifestFile: o.manifestFile,
	}
}

// NewPool opens and pings a pgx connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// FetchManifest reads the manifest row.
func (p *Postgres) FetchManifest(ctx context.Context) ([]byte, error) {
	return p.fetch(ctx, p.manifestFile)
}

// FetchPayload reads a payload row.
func (p *Postgres) FetchPayload(ctx context.Context, name string) ([]byte, error) {
	return p.fetch(ctx, name)
}

func (p *Postgres) fetch(ctx context.Context, name string) ([]byte, error) {
	var content []byte
	err := p.db.QueryRow(ctx, p.query, name).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query document %s: %w", name, err)
	}
	return content, nil
}

var _ service.DocumentLoader = (*Postgres)(nil)
