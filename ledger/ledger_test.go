package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample-db.csv")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestAddRecordAssignsIncreasingUIDs(t *testing.T) {
	s, _ := openTemp(t)

	uids := []int{
		s.AddRecord(Record{Network: "twitter", NetworkID: "alpha"}),
		s.AddRecord(Record{Network: "twitter", NetworkID: "beta"}),
		s.AddRecord(Record{Network: "instagram", NetworkID: "alpha"}),
	}
	if diff := cmp.Diff([]int{1, 2, 3}, uids); diff != "" {
		t.Errorf("uid sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRecordIdempotent(t *testing.T) {
	s, _ := openTemp(t)

	first := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha", URL: "https://twitter.com/alpha"})
	again := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha", URL: "https://twitter.com/alpha?x=1"})

	if first != again {
		t.Errorf("repeated (network, id) returned uid %d, want %d", again, first)
	}
	if got := len(s.Records()); got != 1 {
		t.Errorf("store size = %d, want 1", got)
	}
}

func TestAddRecordEmptyNetworkIDAlwaysNew(t *testing.T) {
	s, _ := openTemp(t)

	a := s.AddRecord(Record{Network: "twitter"})
	b := s.AddRecord(Record{Network: "twitter"})
	if a == b {
		t.Error("records without a network-local id should never deduplicate")
	}
}

func TestMatches(t *testing.T) {
	s, _ := openTemp(t)
	a := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha"})
	b := s.AddRecord(Record{Network: "instagram", NetworkID: "beta"})

	s.AddMatch(a, b)

	if !s.IsMatch(a, b) || !s.IsMatch(b, a) {
		t.Error("IsMatch should hold in both directions after AddMatch")
	}
	if !s.IsMatched(a) || !s.IsMatched(b) {
		t.Error("IsMatched should hold for both endpoints")
	}
	if s.IsMatched(99) {
		t.Error("IsMatched should be false for an unseen uid")
	}
}

func TestAddMatchUnknownUIDDropped(t *testing.T) {
	s, _ := openTemp(t)
	a := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha"})

	s.AddMatch(a, 42)
	s.AddMatch(42, a)

	if len(s.Matches()) != 0 {
		t.Error("edges naming unknown uids should leave the match graph unchanged")
	}
	if s.IsMatched(a) {
		t.Error("dropped edges should not mark endpoints as matched")
	}
}

func TestAddMatchDuplicateIsNoOp(t *testing.T) {
	s, path := openTemp(t)
	a := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha"})
	b := s.AddRecord(Record{Network: "instagram", NetworkID: "beta"})

	s.AddMatch(a, b)
	s.AddMatch(a, b)

	if got := len(s.Matches()[a]); got != 1 {
		t.Errorf("adjacency for %d has %d entries, want 1", a, got)
	}

	data, err := os.ReadFile(MatchFilename(path))
	if err != nil {
		t.Fatal(err)
	}
	want := "1,2\n"
	if string(data) != want {
		t.Errorf("match file = %q, want %q", data, want)
	}
}

func TestAddMatchSelfEdgeRecorded(t *testing.T) {
	s, _ := openTemp(t)
	a := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha"})

	s.AddMatch(a, a)

	if !s.IsMatch(a, a) {
		t.Error("self edges are recorded, not rejected")
	}
}

func TestReopenReplaysState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample-db.csv")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	a := s.AddRecord(Record{Network: "twitter", NetworkID: "alpha", URL: "u1", SearchTerm: "jane doe"})
	b := s.AddRecord(Record{Network: "instagram", NetworkID: "beta"})
	s.AddMatch(a, b)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close() //nolint:errcheck // test cleanup

	if got := s2.CurUID(); got != 2 {
		t.Errorf("CurUID after reopen = %d, want 2", got)
	}
	if !s2.IsMatch(a, b) {
		t.Error("match edges should survive reopen")
	}

	rec, ok := s2.Record(a)
	if !ok {
		t.Fatal("record missing after reopen")
	}
	want := Record{UID: 1, Network: "twitter", NetworkID: "alpha", URL: "u1", SearchTerm: "jane doe"}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	// uid numbering resumes, and dedup still applies to replayed rows.
	if got := s2.AddRecord(Record{Network: "twitter", NetworkID: "alpha"}); got != 1 {
		t.Errorf("dedup after reopen returned %d, want 1", got)
	}
	if got := s2.AddRecord(Record{Network: "twitter", NetworkID: "gamma"}); got != 3 {
		t.Errorf("next uid after reopen = %d, want 3", got)
	}
}

func TestMatchFilename(t *testing.T) {
	got := MatchFilename(filepath.Join("runs", "sample-db.csv"))
	want := filepath.Join("runs", "matches-sample-db.csv")
	if got != want {
		t.Errorf("MatchFilename() = %q, want %q", got, want)
	}
}
