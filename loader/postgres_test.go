package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/normalizer/service"
)

// fakeRow implements pgx.Row.
type fakeRow struct {
	content []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.content
	return nil
}

// fakeDB implements queryable over a map of documents.
type fakeDB struct {
	docs    map[string][]byte
	err     error
	lastSQL string
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	f.lastSQL = sql
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	content, ok := f.docs[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{content: content}
}

func TestPostgres(t *testing.T) {
	db := &fakeDB{docs: map[string][]byte{
		"manifest.json":  []byte(`[]`),
		"condition.json": []byte(`{"group":[]}`),
	}}
	p := NewPostgres(db)
	ctx := context.Background()

	manifest, err := p.FetchManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(manifest))
	assert.Equal(t, `SELECT content FROM "normalization_documents" WHERE name = $1`, db.lastSQL)

	payload, err := p.FetchPayload(ctx, "condition.json")
	require.NoError(t, err)
	assert.Equal(t, `{"group":[]}`, string(payload))

	_, err = p.FetchPayload(ctx, "missing.json")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPostgres_QueryError(t *testing.T) {
	boom := errors.New("connection reset")
	p := NewPostgres(&fakeDB{err: boom}, WithTable("registry_docs"))

	_, err := p.FetchManifest(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, service.ErrNotFound)
}
