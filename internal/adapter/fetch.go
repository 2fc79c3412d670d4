package adapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/env"
)

// Fetcher resolves an outbound media node's source into bytes and a MIME
// type.
type Fetcher interface {
	File(ctx context.Context, src string) (*wweb.Media, error)
}

// HTTPFetcher fetches http(s) sources and decodes inline data: URLs.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// NewHTTPFetcherFromEnv builds a fetcher with the timeout taken from
// WHATSAPP_MEDIA_FETCH_TIMEOUT.
func NewHTTPFetcherFromEnv() *HTTPFetcher {
	return NewHTTPFetcher(env.GetEnvDurationOrDefault("WHATSAPP_MEDIA_FETCH_TIMEOUT", 30*time.Second))
}

func (f *HTTPFetcher) File(ctx context.Context, src string) (*wweb.Media, error) {
	if src == "" {
		return nil, fmt.Errorf("media source is empty")
	}
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch media: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType != "" {
		if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
			mimeType = parsed
		}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return &wweb.Media{
		Data:     data,
		MIMEType: mimeType,
		Filename: fileNameFromURL(src),
	}, nil
}

func decodeDataURL(src string) (*wweb.Media, error) {
	rest := strings.TrimPrefix(src, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, fmt.Errorf("malformed data url")
	}

	mimeType := meta
	encoded := strings.HasSuffix(meta, ";base64")
	if encoded {
		mimeType = strings.TrimSuffix(meta, ";base64")
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}

	var data []byte
	if encoded {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.QueryUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		data = []byte(unescaped)
	}

	return &wweb.Media{Data: data, MIMEType: mimeType}, nil
}

func fileNameFromURL(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
