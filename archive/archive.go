// Package archive persists normalized profiles, one compressed JSON
// file per ledger uid. Saved profiles are read-only for downstream
// stages; loads are served from an in-memory cache so the resolver's
// repeated accesses keep a single Profile instance (and its memoized
// derived signals) per uid.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/codeGROOVE-dev/doppel/profile"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Store is a one-file-per-uid profile repository rooted at a directory.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	loaded map[int]*profile.Profile
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Store{dir: dir, logger: cfg.logger, loaded: make(map[int]*profile.Profile)}, nil
}

// Dir returns the archive's root directory.
func (s *Store) Dir() string { return s.dir }

// Filename returns the archive file path for a uid.
func (s *Store) Filename(uid int) string {
	return filepath.Join(s.dir, strconv.Itoa(uid)+".json.gz")
}

// Exists reports whether a profile file is present for the uid.
func (s *Store) Exists(uid int) bool {
	_, err := os.Stat(s.Filename(uid))
	return err == nil
}

// Save serializes a profile under the given uid. Derived memoized
// signals are not serialized; they are recomputed after load.
func (s *Store) Save(uid int, p *profile.Profile) error {
	f, err := os.Create(s.Filename(uid))
	if err != nil {
		return fmt.Errorf("create profile file: %w", err)
	}

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(p); err != nil {
		_ = zw.Close() //nolint:errcheck // best effort on unwind
		_ = f.Close()  //nolint:errcheck // best effort on unwind
		return fmt.Errorf("encode profile %d: %w", uid, err)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close() //nolint:errcheck // best effort on unwind
		return fmt.Errorf("compress profile %d: %w", uid, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write profile %d: %w", uid, err)
	}

	s.mu.Lock()
	s.loaded[uid] = p
	s.mu.Unlock()
	return nil
}

// Load returns the profile stored under the given uid. Repeated loads
// of the same uid return the same instance. Returns
// profile.ErrNotFound when no file exists for the uid.
func (s *Store) Load(uid int) (*profile.Profile, error) {
	s.mu.RLock()
	if p, ok := s.loaded[uid]; ok {
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	f, err := os.Open(s.Filename(uid))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("uid %d: %w", uid, profile.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open profile %d: %w", uid, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress profile %d: %w", uid, err)
	}
	defer zr.Close() //nolint:errcheck // read-only

	var p profile.Profile
	if err := json.NewDecoder(zr).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile %d: %w", uid, err)
	}

	s.mu.Lock()
	s.loaded[uid] = &p
	s.mu.Unlock()
	return &p, nil
}
