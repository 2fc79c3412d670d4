package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherDataURL(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second)

	t.Run("base64 payload", func(t *testing.T) {
		media, err := fetcher.File(context.Background(), "data:image/png;base64,aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, "image/png", media.MIMEType)
		assert.Equal(t, []byte("hello"), media.Data)
	})

	t.Run("percent-encoded payload", func(t *testing.T) {
		media, err := fetcher.File(context.Background(), "data:text/plain,hello%20world")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", media.MIMEType)
		assert.Equal(t, []byte("hello world"), media.Data)
	})

	t.Run("missing mime type defaults to text", func(t *testing.T) {
		media, err := fetcher.File(context.Background(), "data:,plain")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", media.MIMEType)
	})

	t.Run("malformed url fails", func(t *testing.T) {
		_, err := fetcher.File(context.Background(), "data:image/png;base64")
		assert.Error(t, err)
	})

	t.Run("empty source fails", func(t *testing.T) {
		_, err := fetcher.File(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestHTTPFetcherHTTP(t *testing.T) {
	t.Run("content type from header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png; charset=binary")
			_, _ = w.Write([]byte("fake-png"))
		}))
		defer server.Close()

		media, err := NewHTTPFetcher(time.Second).File(context.Background(), server.URL+"/pic.png")
		require.NoError(t, err)
		assert.Equal(t, "image/png", media.MIMEType)
		assert.Equal(t, []byte("fake-png"), media.Data)
		assert.Equal(t, "pic.png", media.Filename)
	})

	t.Run("non-2xx fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(time.Second).File(context.Background(), server.URL)
		assert.Error(t, err)
	})
}
