package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			assert.Equal(t, "demo-importer-test", r.Header.Get("User-Agent"))
			w.Write([]byte(strings.Repeat("a", 512)))
		case "/moved.jpg":
			http.Redirect(w, r, "/ok.jpg", http.StatusFound)
		case "/short.jpg":
			w.Header().Set("Content-Length", "1000")
			w.Write([]byte(strings.Repeat("b", 900)))
		case "/empty.jpg":
			w.WriteHeader(http.StatusOK)
		case "/big.jpg":
			w.Write([]byte(strings.Repeat("c", 4096)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(FetcherOptions{UserAgent: "demo-importer-test", MaxSize: 2048})
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "ok.jpg")
		res, err := fetcher.Fetch(ctx, server.URL+"/ok.jpg", dest)
		require.NoError(t, err)
		assert.Equal(t, int64(512), res.Size)
		assert.Equal(t, server.URL+"/ok.jpg", res.FinalURL)
		assert.FileExists(t, dest)
	})

	t.Run("redirect reports final url", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "moved.jpg")
		res, err := fetcher.Fetch(ctx, server.URL+"/moved.jpg", dest)
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/ok.jpg", res.FinalURL)
	})

	failures := []struct {
		name string
		path string
		kind error
	}{
		{"not found", "/missing.jpg", ErrTransport},
		{"content length mismatch", "/short.jpg", ErrSizeMismatch},
		{"zero size", "/empty.jpg", ErrZeroSize},
		{"oversize", "/big.jpg", ErrOversize},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "file.jpg")
			_, err := fetcher.Fetch(ctx, server.URL+tt.path, dest)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "expected %v, got %v", tt.kind, err)

			var fetchErr *FetchError
			assert.True(t, errors.As(err, &fetchErr))

			_, statErr := os.Stat(dest)
			assert.True(t, os.IsNotExist(statErr), "partial file must be removed")
		})
	}
}

func TestFetcherCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(FetcherOptions{}).Fetch(ctx, server.URL, filepath.Join(t.TempDir(), "f"))
	assert.ErrorIs(t, err, context.Canceled)

	var fetchErr *FetchError
	assert.False(t, errors.As(err, &fetchErr))
}
