// Package analyse turns raw captured payloads into stored profiles for
// one network. Each run walks the ledger's records for the driver's
// network, invokes the network adapter on the matching raw payload,
// persists the resulting profile, and feeds any recognized outbound
// profile links back into the ledger as new records and match edges.
package analyse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/doppel/archive"
	"github.com/codeGROOVE-dev/doppel/imagestore"
	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/network"
)

// Driver runs analysis for one network over one ledger and archive.
type Driver struct {
	network   network.Network
	ledger    *ledger.Store
	archive   *archive.Store
	registry  *network.Registry
	images    *imagestore.Store
	logger    *slog.Logger
	namesFile string
}

// Option configures a Driver.
type Option func(*Driver)

// WithRegistry sets the adapter registry used to classify outbound
// profile links. Defaults to the built-in registry.
func WithRegistry(r *network.Registry) Option {
	return func(d *Driver) { d.registry = r }
}

// WithImageStore makes the driver download each profile's avatars and
// banners, replacing remote URLs with local paths.
func WithImageStore(s *imagestore.Store) Option {
	return func(d *Driver) { d.images = s }
}

// WithNamesFile makes the driver accumulate the best name of every
// processed profile and write the deduplicated corpus to path at run
// end, one name per line.
func WithNamesFile(path string) Option {
	return func(d *Driver) { d.namesFile = path }
}

// WithLogger sets the logger for per-record progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// New creates a Driver for one network.
func New(net network.Network, ld *ledger.Store, ar *archive.Store, opts ...Option) *Driver {
	d := &Driver{
		network:  net,
		ledger:   ld,
		archive:  ar,
		registry: network.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run analyses every ledger record on the driver's network that has a
// raw payload under rawDir (named <uid>.json). A record with no
// payload is skipped silently; a record whose payload fails analysis
// or storage is logged and skipped. Only run-level faults (context
// cancellation, name corpus write) abort the run.
func (d *Driver) Run(ctx context.Context, rawDir string) error {
	names := make(map[string]bool)
	processed := 0

	for _, rec := range d.ledger.Records() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.Network != d.network.Name() {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(rawDir, strconv.Itoa(rec.UID)+".json"))
		if err != nil {
			if os.IsNotExist(err) {
				d.logger.Debug("no raw payload", "uid", rec.UID)
				continue
			}
			d.logger.Warn("unreadable raw payload, skipping", "uid", rec.UID, "error", err)
			continue
		}

		p, err := d.network.Analyse(raw, rec)
		if err != nil {
			d.logger.Warn("analysis failed, skipping record", "uid", rec.UID, "error", err)
			continue
		}

		if d.images != nil {
			p.Avatars = d.images.LocalizeAll(ctx, p.Avatars)
			p.Banners = d.images.LocalizeAll(ctx, p.Banners)
		}

		if err := d.archive.Save(rec.UID, p); err != nil {
			d.logger.Warn("profile store failed, skipping record", "uid", rec.UID, "error", err)
			continue
		}
		processed++
		d.logger.Info("profile analysed", "uid", rec.UID, "network", rec.Network, "network_id", p.NetworkID)

		d.followLinks(rec, p.ProfileLinks)
		if name := p.BestName(); name != "" {
			names[name] = true
		}
	}

	d.logger.Info("analysis run complete", "network", d.network.Name(), "processed", processed)

	if d.namesFile != "" {
		if err := d.writeNames(names); err != nil {
			return err
		}
	}
	return nil
}

// followLinks classifies each outbound profile link against the
// registry and records recognized ones as new identities matched to
// the origin record.
func (d *Driver) followLinks(origin ledger.Record, links []string) {
	for _, link := range links {
		cand, ok := d.registry.Recognize(link, origin.SearchTerm)
		if !ok {
			continue
		}
		uid := d.ledger.AddRecord(cand)
		d.ledger.AddMatch(origin.UID, uid)
		d.logger.Info("linked profile discovered",
			"origin", origin.UID, "uid", uid, "network", cand.Network, "network_id", cand.NetworkID)
	}
}

func (d *Driver) writeNames(names map[string]bool) error {
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, name := range sorted {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(d.namesFile, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write name corpus: %w", err)
	}
	return nil
}
