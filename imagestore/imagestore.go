// Package imagestore downloads remote profile images to local files so
// downstream comparison can work over stored bytes. Fetches are cached
// on disk with thundering herd prevention and transient failures are
// retried.
package imagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
)

const fetchTimeout = 10 * time.Second

// Store downloads images into a directory, one file per source URL.
type Store struct {
	cache  *sfcache.TieredCache[string, []byte]
	client *http.Client
	logger *slog.Logger
	dir    string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for fetch and retry output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) { s.client = client }
}

// New creates a Store rooted at dir. Fetched bytes are cached under a
// subdirectory so re-runs do not refetch.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("doppel-images", filepath.Join(dir, ".cache"))
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}
	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(30*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	s := &Store{
		cache:  tc,
		client: &http.Client{Timeout: fetchTimeout},
		logger: slog.Default(),
		dir:    dir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Filename returns the local path an image URL localizes to.
func (s *Store) Filename(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".img")
}

// Localize downloads one image URL and returns the local file path.
func (s *Store) Localize(ctx context.Context, rawURL string) (string, error) {
	path := s.Filename(rawURL)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := s.cache.GetSet(ctx, rawURL, func(ctx context.Context) ([]byte, error) {
		return s.fetch(ctx, rawURL)
	})
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", rawURL, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("store image %s: %w", rawURL, err)
	}
	return path, nil
}

// LocalizeAll localizes every URL, best effort: failures are logged
// and the original URL is kept in place so no reference is lost.
func (s *Store) LocalizeAll(ctx context.Context, urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			out = append(out, u) // already local
			continue
		}
		path, err := s.Localize(ctx, u)
		if err != nil {
			s.logger.Warn("image localization failed, keeping remote URL", "url", u, "error", err)
			out = append(out, u)
			continue
		}
		out = append(out, path)
	}
	return out
}

type httpError struct {
	url        string
	statusCode int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.statusCode, e.url)
}

func (s *Store) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return nil, err
			}
			resp, err := s.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &httpError{statusCode: resp.StatusCode, url: rawURL}
			}
			return io.ReadAll(resp.Body)
		},
		retry.Context(ctx),
		retry.Attempts(2),                     // single retry
		retry.Delay(200*time.Millisecond),     // delay before retry
		retry.MaxJitter(100*time.Millisecond), // small jitter
		retry.RetryIf(isRetryableError),       // only retry transient errors
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("retrying image fetch", "attempt", n+1, "url", rawURL, "error", err)
		}),
	)
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		switch he.statusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // 4xx errors (except 429) are permanent
		}
	}
	// Network errors, timeouts, etc. are retryable
	return true
}
