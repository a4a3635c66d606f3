package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/normalizer/service"
)

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registry/manifest.json":
			_, _ = w.Write([]byte(`[]`))
		case "/registry/maps/condition code.json":
			_, _ = w.Write([]byte(`{"group":[]}`))
		case "/registry/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL+"/registry/", WithHTTPClient(srv.Client()))
	ctx := context.Background()

	manifest, err := h.FetchManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(manifest))

	payload, err := h.FetchPayload(ctx, "maps/condition code.json")
	require.NoError(t, err)
	assert.Equal(t, `{"group":[]}`, string(payload))

	_, err = h.FetchPayload(ctx, "missing.json")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = h.FetchPayload(ctx, "broken.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrNotFound)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestHTTP_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTP(srv.URL).FetchManifest(ctx)
	assert.Error(t, err)
}

func TestHTTP_DocumentTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/exact.json" {
			_, _ = w.Write([]byte(`[1,2,3]`))
			return
		}
		_, _ = w.Write([]byte(`[1,2,3,4]`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, WithHTTPClient(srv.Client()), WithMaxDocumentSize(7))

	data, err := h.FetchPayload(context.Background(), "exact.json")
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(data))

	_, err = h.FetchPayload(context.Background(), "big.json")
	assert.ErrorIs(t, err, ErrDocumentTooLarge)
	assert.Contains(t, err.Error(), "big.json")
}
