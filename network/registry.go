package network

import (
	"log/slog"

	"github.com/codeGROOVE-dev/doppel/ledger"
)

// Registry is an ordered table of network adapters. Order matters when
// adapters overlap: the first adapter to recognize a URL wins.
type Registry struct {
	nets   []Network
	byName map[string]Network
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry builds a registry from an explicit adapter table.
func NewRegistry(nets []Network, opts ...Option) *Registry {
	r := &Registry{
		byName: make(map[string]Network, len(nets)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, n := range nets {
		r.Register(n)
	}
	return r
}

// Default returns a registry with all built-in adapters.
func Default(opts ...Option) *Registry {
	return NewRegistry([]Network{
		&Twitter{},
		&Instagram{},
		&GitHub{},
		&Mastodon{},
	}, opts...)
}

// Register appends an adapter to the table. Registering a second
// adapter under an existing name panics: it indicates a miswired table.
func (r *Registry) Register(n Network) {
	if _, exists := r.byName[n.Name()]; exists {
		panic("network already registered: " + n.Name())
	}
	r.nets = append(r.nets, n)
	r.byName[n.Name()] = n
}

// ByName returns the adapter for a network name.
func (r *Registry) ByName(name string) (Network, bool) {
	n, ok := r.byName[name]
	return n, ok
}

// Networks returns the adapter table in registration order.
func (r *Registry) Networks() []Network {
	out := make([]Network, len(r.nets))
	copy(out, r.nets)
	return out
}

// Recognize classifies a URL against the adapter table. When some
// adapter recognizes it, Recognize synthesizes a ledger candidate
// record carrying the adapter's network name, the extracted
// network-local id, the URL, and the given search term.
func (r *Registry) Recognize(url, searchTerm string) (ledger.Record, bool) {
	for _, n := range r.nets {
		if !n.Recognizes(url) {
			continue
		}
		return ledger.Record{
			Network:    n.Name(),
			NetworkID:  n.ExtractID(url),
			URL:        url,
			SearchTerm: searchTerm,
		}, true
	}
	r.logger.Debug("url not recognized by any network adapter", "url", url)
	return ledger.Record{}, false
}
