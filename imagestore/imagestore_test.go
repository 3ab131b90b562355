package imagestore

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLocalize(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("image-bytes")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.Localize(t.Context(), srv.URL+"/avatar.png")
	if err != nil {
		t.Fatalf("Localize() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("stored bytes = %q, want image-bytes", data)
	}

	again, err := s.Localize(t.Context(), srv.URL+"/avatar.png")
	if err != nil {
		t.Fatal(err)
	}
	if again != path {
		t.Errorf("repeat Localize path = %s, want %s", again, path)
	}
	if fetches.Load() != 1 {
		t.Errorf("server saw %d fetches, want 1", fetches.Load())
	}

	if _, err := s.Localize(t.Context(), srv.URL+"/missing.png"); err == nil {
		t.Error("Localize() of a 404 should fail")
	}
}

func TestLocalizeAllBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	local := "/already/local/avatar.img"
	bad := "https://127.0.0.1:1/unreachable.png"
	got := s.LocalizeAll(t.Context(), []string{local, srv.URL + "/a.png", bad})

	want := []string{local, s.Filename(srv.URL + "/a.png"), bad}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LocalizeAll() mismatch (-want +got):\n%s", diff)
	}
}
