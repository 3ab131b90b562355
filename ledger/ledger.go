// Package ledger implements the durable registry of discovered profile
// identities and confirmed cross-network matches. Records are
// append-only rows in a CSV file; match edges live in a companion CSV
// whose name is derived from the records filename. Re-opening a ledger
// replays prior state and resumes uid numbering.
package ledger

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
)

// Record is one ledger row: a stable uid assigned to an account
// discovered on a network. Records are immutable once appended.
type Record struct {
	UID        int    // Globally unique, monotonically assigned
	Network    string // Network of origin
	NetworkID  string // Network-local account id
	URL        string // Full source URL for the account
	SearchTerm string // The search term that surfaced the account
}

type key struct {
	network   string
	networkID string
}

// Option configures a Store.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Store is the profile ledger. It holds all records and the match
// adjacency in memory and appends every mutation to durable storage.
// Mutations are serialized internally, but the durable files assume a
// single writing process; nothing here guards against a second process
// appending to the same files.
type Store struct {
	mu      sync.Mutex
	records []Record
	byKey   map[key]int    // (network, network_id) -> uid
	known   map[int]bool   // uid -> exists
	matches map[int][]int  // from-uid -> to-uids, in insertion order
	curuid  int

	recFile   *os.File
	matchFile *os.File
	recW      *csv.Writer
	matchW    *csv.Writer
	logger    *slog.Logger
}

// MatchFilename returns the match-edge filename for a records filename:
// "matches-" prefixed to the base name, in the same directory.
func MatchFilename(recordsPath string) string {
	return filepath.Join(filepath.Dir(recordsPath), "matches-"+filepath.Base(recordsPath))
}

// Open loads a ledger from the given records file, creating it (and its
// match file) if absent. uid numbering resumes from the last-seen value.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Store{
		byKey:   make(map[key]int),
		known:   make(map[int]bool),
		matches: make(map[int][]int),
		logger:  cfg.logger,
	}

	if err := s.loadRecords(path); err != nil {
		return nil, err
	}
	matchPath := MatchFilename(path)
	if err := s.loadMatches(matchPath); err != nil {
		return nil, err
	}

	var err error
	s.recFile, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	s.matchFile, err = os.OpenFile(matchPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		_ = s.recFile.Close() //nolint:errcheck // best effort on unwind
		return nil, fmt.Errorf("open match file: %w", err)
	}
	s.recW = csv.NewWriter(s.recFile)
	s.matchW = csv.NewWriter(s.matchFile)

	s.logger.Info("ledger opened", "path", path, "records", len(s.records), "curuid", s.curuid)
	return s, nil
}

func (s *Store) loadRecords(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read records file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse records file: %w", err)
	}
	for _, row := range rows {
		uid, err := strconv.Atoi(row[0])
		if err != nil {
			return fmt.Errorf("bad uid %q in %s: %w", row[0], path, err)
		}
		rec := Record{UID: uid, Network: row[1], NetworkID: row[2], URL: row[3], SearchTerm: row[4]}
		s.records = append(s.records, rec)
		s.known[uid] = true
		if rec.NetworkID != "" {
			s.byKey[key{rec.Network, rec.NetworkID}] = uid
		}
		s.curuid = uid
	}
	return nil
}

func (s *Store) loadMatches(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read match file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse match file: %w", err)
	}
	for _, row := range rows {
		from, err := strconv.Atoi(row[0])
		if err != nil {
			return fmt.Errorf("bad from-uid %q in %s: %w", row[0], path, err)
		}
		to, err := strconv.Atoi(row[1])
		if err != nil {
			return fmt.Errorf("bad to-uid %q in %s: %w", row[1], path, err)
		}
		if !slices.Contains(s.matches[from], to) {
			s.matches[from] = append(s.matches[from], to)
		}
	}
	return nil
}

// AddRecord registers an account sighting. The candidate's UID field is
// ignored. If a record with the same (network, network-local id)
// already exists, its uid is returned and nothing is appended; a
// candidate with an empty network-local id always creates a new record.
// Returns the record's uid.
func (s *Store) AddRecord(candidate Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if candidate.NetworkID != "" {
		if uid, ok := s.byKey[key{candidate.Network, candidate.NetworkID}]; ok {
			s.logger.Info("record is not new, ignoring",
				"network", candidate.Network, "network_id", candidate.NetworkID, "uid", uid)
			return uid
		}
	}

	s.curuid++
	candidate.UID = s.curuid
	s.records = append(s.records, candidate)
	s.known[candidate.UID] = true
	if candidate.NetworkID != "" {
		s.byKey[key{candidate.Network, candidate.NetworkID}] = candidate.UID
	}

	row := []string{
		strconv.Itoa(candidate.UID), candidate.Network, candidate.NetworkID,
		candidate.URL, candidate.SearchTerm,
	}
	if err := s.recW.Write(row); err != nil {
		s.logger.Warn("failed to append record", "uid", candidate.UID, "error", err)
	}
	s.recW.Flush()
	if err := s.recW.Error(); err != nil {
		s.logger.Warn("failed to flush record", "uid", candidate.UID, "error", err)
	}
	return candidate.UID
}

// AddMatch records a directed match edge between two known uids. An
// edge naming an unknown uid is logged and dropped; a duplicate edge is
// a logged no-op. The match graph never shrinks.
func (s *Store) AddMatch(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unknown := 0
	if !s.known[from] {
		unknown++
	}
	if !s.known[to] {
		unknown++
	}
	if unknown > 0 {
		s.logger.Warn("match names unknown uids, dropping edge", "from", from, "to", to, "unknown", unknown)
		return
	}

	if slices.Contains(s.matches[from], to) {
		s.logger.Info("match is not new, ignoring", "from", from, "to", to)
		return
	}
	s.matches[from] = append(s.matches[from], to)

	if err := s.matchW.Write([]string{strconv.Itoa(from), strconv.Itoa(to)}); err != nil {
		s.logger.Warn("failed to append match", "from", from, "to", to, "error", err)
	}
	s.matchW.Flush()
	if err := s.matchW.Error(); err != nil {
		s.logger.Warn("failed to flush match", "from", from, "to", to, "error", err)
	}
}

// IsMatched reports whether the uid appears on either side of any
// match edge.
func (s *Store) IsMatched(uid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.matches[uid]) > 0 {
		return true
	}
	for _, tos := range s.matches {
		if slices.Contains(tos, uid) {
			return true
		}
	}
	return false
}

// IsMatch reports whether a match edge exists between the two uids in
// either direction.
func (s *Store) IsMatch(a, b int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.matches[a], b) || slices.Contains(s.matches[b], a)
}

// Records returns a copy of all ledger records in uid order.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Record returns the record with the given uid.
func (s *Store) Record(uid int) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.UID == uid {
			return rec, true
		}
	}
	return Record{}, false
}

// Matches returns a copy of the match adjacency: from-uid to the list
// of to-uids in insertion order.
func (s *Store) Matches() map[int][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int][]int, len(s.matches))
	for from, tos := range s.matches {
		out[from] = slices.Clone(tos)
	}
	return out
}

// CurUID returns the highest uid assigned so far.
func (s *Store) CurUID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curuid
}

// Close flushes and closes the durable files.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recW.Flush()
	s.matchW.Flush()
	recErr := s.recFile.Close()
	matchErr := s.matchFile.Close()
	if recErr != nil {
		return recErr
	}
	return matchErr
}
