// Package resolve scores cross-network profile pairs and exports the
// resulting feature vectors as supervised training data. Profiles are
// partitioned into blocks by candidate identity, every eligible pair
// inside a block is run through eight comparators, and each pair is
// written out with a ground-truth label from the ledger's match graph.
package resolve

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/doppel/archive"
	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

// exportHeader is the column layout of the feature export. The first
// eight columns match the order of Features.
var exportHeader = []string{
	"exactnames", "bestname", "timeactivity", "avatars", "friends",
	"linkactivity", "stylometry", "geography",
	"origin.id", "target.id", "origin.network", "target.network",
	"outcome", "block",
}

// Member pairs a ledger record with its materialized profile.
type Member struct {
	Record  ledger.Record
	Profile *profile.Profile
}

// Resolver scores profile pairs against one primary network using a
// ledger's match graph for ground truth.
type Resolver struct {
	ledger      *ledger.Store
	primary     string
	logger      *slog.Logger
	parallelism int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for progress and calibration output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithParallelism sets how many blocks are scored concurrently.
// Values below one are treated as one (sequential).
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// New creates a Resolver anchored on the given primary network.
func New(ld *ledger.Store, primaryNetwork string, opts ...Option) *Resolver {
	r := &Resolver{
		ledger:      ld,
		primary:     primaryNetwork,
		logger:      slog.Default(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Gather loads the profile backing every ledger record present in the
// archive. Records without a stored profile are skipped silently: a
// record may be known before its payload has been analysed.
func Gather(ld *ledger.Store, ar *archive.Store, logger *slog.Logger) []Member {
	if logger == nil {
		logger = slog.Default()
	}
	var members []Member
	for _, rec := range ld.Records() {
		if !ar.Exists(rec.UID) {
			logger.Debug("no stored profile for record", "uid", rec.UID)
			continue
		}
		p, err := ar.Load(rec.UID)
		if err != nil {
			logger.Warn("unreadable stored profile, skipping", "uid", rec.UID, "error", err)
			continue
		}
		members = append(members, Member{Record: rec, Profile: p})
	}
	return members
}

// Blocks partitions members by candidate identity: best name for
// profiles on the primary network, originating search term for all
// others.
func (r *Resolver) Blocks(members []Member) map[string][]Member {
	blocks := make(map[string][]Member)
	for _, m := range members {
		key := m.Record.SearchTerm
		if m.Record.Network == r.primary {
			key = m.Profile.BestName()
		}
		blocks[key] = append(blocks[key], m)
	}
	return blocks
}

// goodBlocks returns the keys of blocks holding at least one member
// with a confirmed match edge. Blocks with no confirmed match carry no
// positive labels and are uninformative for supervised export.
func (r *Resolver) goodBlocks(blocks map[string][]Member) []string {
	var keys []string
	for key, members := range blocks {
		for _, m := range members {
			if r.ledger.IsMatched(m.Record.UID) {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// scoreBlock compares every eligible pair in one block and returns the
// export rows. A pair is eligible when the two networks differ, one
// side is on the primary network, and both sides have a best name. The
// primary-side profile is always the origin of the exported row.
func (r *Resolver) scoreBlock(key string, members []Member) [][]string {
	var rows [][]string
	total := len(members) * (len(members) - 1) / 2
	count := 0
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			count++
			origin, target := members[i], members[j]
			if origin.Record.Network == target.Record.Network {
				continue
			}
			if target.Record.Network == r.primary {
				origin, target = target, origin
			}
			if origin.Record.Network != r.primary {
				continue
			}
			if origin.Profile.BestName() == "" || target.Profile.BestName() == "" {
				continue
			}
			r.logger.Info("comparing pair",
				"progress", fmt.Sprintf("%d/%d", count, total),
				"block", key, "origin", origin.Record.UID, "target", target.Record.UID)
			rows = append(rows, r.exportRow(key, origin, target))
		}
	}
	return rows
}

func (r *Resolver) exportRow(key string, origin, target Member) []string {
	features := Features(origin.Profile, target.Profile)
	row := make([]string, 0, len(exportHeader))
	for _, f := range features {
		row = append(row, strconv.FormatFloat(f, 'g', -1, 64))
	}
	outcome := "0"
	if r.ledger.IsMatch(origin.Record.UID, target.Record.UID) {
		outcome = "1"
	}
	row = append(row,
		strconv.Itoa(origin.Record.UID),
		strconv.Itoa(target.Record.UID),
		origin.Record.Network,
		target.Record.Network,
		outcome,
		strings.ReplaceAll(key, ",", " "),
	)
	return row
}

// Export writes the feature vectors for every eligible pair in every
// informative block to w, one header row followed by one row per pair.
// Blocks are scored independently (concurrently when parallelism is
// above one) and written in deterministic key order.
func (r *Resolver) Export(ctx context.Context, w io.Writer, members []Member) error {
	blocks := r.Blocks(members)
	keys := r.goodBlocks(blocks)
	r.logger.Info("scoring blocks", "informative", len(keys), "total", len(blocks))

	results := make(map[string][][]string, len(keys))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows := r.scoreBlock(key, blocks[key])
			mu.Lock()
			results[key] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("score blocks: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, key := range keys {
		for _, row := range results[key] {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write export row: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}
