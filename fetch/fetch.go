// Package fetch retrieves raw asset bytes for the animation controller.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher returns the bytes stored at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, location string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// Local resolves relative paths against Dir on disk first and falls back to
// FS, so assets edited on disk win over the embedded copies.
type Local struct {
	Dir string
	FS  fs.FS
}

func (l Local) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if location == "" {
		return nil, errors.New("fetch: empty path")
	}

	diskPath := location
	if !filepath.IsAbs(diskPath) && l.Dir != "" {
		diskPath = filepath.Join(l.Dir, filepath.FromSlash(location))
	}
	data, diskErr := os.ReadFile(diskPath)
	if diskErr == nil {
		return data, nil
	}

	if l.FS != nil {
		if data, err := fs.ReadFile(l.FS, cleanFSPath(location)); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", location, diskErr)
}

// DiskPath is where Local looks on disk for location.
func (l Local) DiskPath(location string) string {
	if filepath.IsAbs(location) || l.Dir == "" {
		return location
	}
	return filepath.Join(l.Dir, filepath.FromSlash(location))
}

func cleanFSPath(p string) string {
	s := filepath.ToSlash(p)
	s = strings.TrimPrefix(s, "./")
	if after, ok := strings.CutPrefix(s, "assets/"); ok {
		s = after
	}
	return s
}

// HTTP fetches absolute http(s) URLs.
type HTTP struct {
	Client *http.Client
	// MaxBytes bounds the response body; zero means 64 MiB.
	MaxBytes int64
}

// NewHTTP returns an HTTP fetcher with a request timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{Client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return nil, fmt.Errorf("fetch %s: not an http(s) url", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", location, resp.Status)
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", location, limit)
	}
	return data, nil
}
