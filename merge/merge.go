// Package merge combines several run archives (a ledger plus a
// per-uid profile archive each) into one destination archive,
// deduplicating records and remapping match edges into the
// destination's uid space.
package merge

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/codeGROOVE-dev/doppel/archive"
	"github.com/codeGROOVE-dev/doppel/ledger"
)

// Report summarizes one merge: how many records the destination holds,
// how many source records deduplicated against existing ones, and how
// many had no backing profile file.
type Report struct {
	Records    int
	Duplicates int
	Missing    int
}

// Option configures a merge run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// DBFilename returns the ledger records filename for a run name.
func DBFilename(dir, name string) string {
	return filepath.Join(dir, name+"-db.csv")
}

// ProfilesDir returns the profile archive directory for a run name.
func ProfilesDir(dir, name string) string {
	return filepath.Join(dir, name+"-profiles")
}

// Merge ingests each named source run under dir into the destination
// run outName. Source records without a backing profile file are
// counted and skipped; records already present in the destination are
// counted as duplicates. Each source's match edges are remapped by the
// destination's uid count at the point that source was ingested.
func Merge(dir, outName string, srcNames []string, opts ...Option) (Report, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger

	dst, err := ledger.Open(DBFilename(dir, outName), ledger.WithLogger(logger))
	if err != nil {
		return Report{}, fmt.Errorf("open destination ledger: %w", err)
	}
	defer dst.Close() //nolint:errcheck // flushed on every mutation
	dstAr, err := archive.New(ProfilesDir(dir, outName), archive.WithLogger(logger))
	if err != nil {
		return Report{}, fmt.Errorf("open destination archive: %w", err)
	}

	var report Report
	lastUID := 0
	for _, name := range srcNames {
		src, err := ledger.Open(DBFilename(dir, name), ledger.WithLogger(logger))
		if err != nil {
			return report, fmt.Errorf("open source ledger %q: %w", name, err)
		}
		srcAr, err := archive.New(ProfilesDir(dir, name), archive.WithLogger(logger))
		if err != nil {
			src.Close() //nolint:errcheck // best effort on unwind
			return report, fmt.Errorf("open source archive %q: %w", name, err)
		}

		offset := dst.CurUID()
		for _, rec := range src.Records() {
			if !srcAr.Exists(rec.UID) {
				logger.Warn("record has no profile file, skipping", "run", name, "uid", rec.UID)
				report.Missing++
				continue
			}
			uid := dst.AddRecord(ledger.Record{
				Network: rec.Network, NetworkID: rec.NetworkID,
				URL: rec.URL, SearchTerm: rec.SearchTerm,
			})
			if uid <= lastUID {
				logger.Warn("record is not new", "run", name, "uid", rec.UID, "dest_uid", uid)
				report.Duplicates++
			} else {
				lastUID = uid
			}
			if err := copyFile(srcAr.Filename(rec.UID), dstAr.Filename(uid)); err != nil {
				src.Close() //nolint:errcheck // best effort on unwind
				return report, fmt.Errorf("copy profile %d from %q: %w", rec.UID, name, err)
			}
		}

		matches := src.Matches()
		froms := make([]int, 0, len(matches))
		for from := range matches {
			froms = append(froms, from)
		}
		sort.Ints(froms)
		for _, from := range froms {
			for _, to := range matches[from] {
				dst.AddMatch(offset+from, offset+to)
			}
		}

		if err := src.Close(); err != nil {
			logger.Warn("failed to close source ledger", "run", name, "error", err)
		}
	}

	report.Records = dst.CurUID()
	logger.Info("merge complete",
		"records", report.Records, "duplicates", report.Duplicates, "missing", report.Missing)
	return report, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read-only

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // best effort on unwind
		return err
	}
	return out.Close()
}
