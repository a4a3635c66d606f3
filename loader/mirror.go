package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/gofhir/normalizer/service"
)

const (
	manifestKey   = "manifest"
	payloadPrefix = "payload/"
)

// Mirror wraps a primary loader and keeps a LevelDB copy of every document it
// fetched. When the primary fails with anything other than ErrNotFound, the
// stored copy is served instead, so a process can start while the bucket is
// unreachable.
type Mirror struct {
	primary service.DocumentLoader
	db      *leveldb.DB
	logger  zerolog.Logger
}

// NewMirror creates a mirror over an open database.
func NewMirror(primary service.DocumentLoader, db *leveldb.DB, opts ...Option) *Mirror {
	o := newOptions(opts)
	return &Mirror{primary: primary, db: db, logger: o.logger}
}

// OpenMirror opens (or creates) the database at path.
func OpenMirror(primary service.DocumentLoader, path string, opts ...Option) (*Mirror, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open mirror %s: %w", path, err)
	}
	return NewMirror(primary, db, opts...), nil
}

// Close closes the underlying database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// FetchManifest fetches the manifest from the primary, falling back to the mirror.
func (m *Mirror) FetchManifest(ctx context.Context) ([]byte, error) {
	return m.fetch(manifestKey, func() ([]byte, error) {
		return m.primary.FetchManifest(ctx)
	})
}

// FetchPayload fetches a payload from the primary, falling back to the mirror.
func (m *Mirror) FetchPayload(ctx context.Context, name string) ([]byte, error) {
	return m.fetch(payloadPrefix+name, func() ([]byte, error) {
		return m.primary.FetchPayload(ctx, name)
	})
}

func (m *Mirror) fetch(key string, primary func() ([]byte, error)) ([]byte, error) {
	data, err := primary()
	if err == nil {
		if putErr := m.db.Put([]byte(key), data, nil); putErr != nil {
			m.logger.Warn().Err(putErr).Str("key", key).Msg("failed to update registry mirror")
		}
		return data, nil
	}
	if errors.Is(err, service.ErrNotFound) {
		return nil, err
	}

	stored, getErr := m.db.Get([]byte(key), nil)
	if getErr != nil {
		if !errors.Is(getErr, leveldb.ErrNotFound) {
			m.logger.Warn().Err(getErr).Str("key", key).Msg("failed to read registry mirror")
		}
		return nil, err
	}

	m.logger.Warn().Err(err).Str("key", key).Msg("serving registry document from mirror")
	return stored, nil
}

var _ service.DocumentLoader = (*Mirror)(nil)
