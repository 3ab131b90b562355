// Command doppel resolves social media profiles across networks: it
// analyses captured raw payloads into stored profiles, exports scored
// profile-pair feature vectors for training, merges run archives, and
// dumps discovered profile links.
//
// Usage:
//
//	doppel analyse -run run.yaml
//	doppel resolve -run run.yaml
//	doppel merge -dir . combined winter spring
//	doppel links -run run.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/doppel/analyse"
	"github.com/codeGROOVE-dev/doppel/archive"
	"github.com/codeGROOVE-dev/doppel/imagestore"
	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/merge"
	"github.com/codeGROOVE-dev/doppel/network"
	"github.com/codeGROOVE-dev/doppel/resolve"
)

// manifest describes one run: where its ledger, profile archive and
// raw payloads live, and which network anchors resolution.
type manifest struct {
	Name           string `yaml:"name"`
	PrimaryNetwork string `yaml:"primary_network"`
	Dir            string `yaml:"dir"`
	RawDir         string `yaml:"raw_dir"`
	NamesFile      string `yaml:"names_file"`
	ImagesDir      string `yaml:"images_dir"`
	Parallelism    int    `yaml:"parallelism"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run manifest: %w", err)
	}
	m := &manifest{Dir: ".", PrimaryNetwork: "twitter"}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse run manifest: %w", err)
	}
	if m.Name == "" {
		return nil, errors.New("run manifest has no name")
	}
	if m.RawDir == "" {
		m.RawDir = filepath.Join(m.Dir, m.Name+"-raw")
	}
	return m, nil
}

func (m *manifest) openLedger(logger *slog.Logger) (*ledger.Store, error) {
	return ledger.Open(merge.DBFilename(m.Dir, m.Name), ledger.WithLogger(logger))
}

func (m *manifest) openArchive(logger *slog.Logger) (*archive.Store, error) {
	return archive.New(merge.ProfilesDir(m.Dir, m.Name), archive.WithLogger(logger))
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: doppel <command> [options]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  analyse  turn raw payloads into stored profiles and discover linked accounts")
	fmt.Fprintln(os.Stderr, "  resolve  export scored profile-pair feature vectors for training")
	fmt.Fprintln(os.Stderr, "  merge    combine run archives into one, deduplicating records")
	fmt.Fprintln(os.Stderr, "  links    dump the outbound profile links of stored primary-network profiles")
	os.Exit(1)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "analyse":
		err = runAnalyse(os.Args[2:])
	case "resolve":
		err = runResolve(os.Args[2:])
	case "merge":
		err = runMerge(os.Args[2:])
	case "links":
		err = runLinks(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runAnalyse(args []string) error {
	fs := flag.NewFlagSet("analyse", flag.ExitOnError)
	runFile := fs.String("run", "run.yaml", "run manifest file")
	netName := fs.String("network", "", "only analyse records on this network")
	noImages := fs.Bool("no-images", false, "do not download avatars and banners")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	logger := newLogger(*debug)
	m, err := loadManifest(*runFile)
	if err != nil {
		return err
	}
	ld, err := m.openLedger(logger)
	if err != nil {
		return err
	}
	defer ld.Close() //nolint:errcheck // flushed on every mutation
	ar, err := m.openArchive(logger)
	if err != nil {
		return err
	}

	registry := network.Default(network.WithLogger(logger))
	opts := []analyse.Option{analyse.WithRegistry(registry), analyse.WithLogger(logger)}
	if m.NamesFile != "" {
		opts = append(opts, analyse.WithNamesFile(m.NamesFile))
	}
	if !*noImages {
		imagesDir := m.ImagesDir
		if imagesDir == "" {
			imagesDir = filepath.Join(m.Dir, m.Name+"-images")
		}
		images, err := imagestore.New(imagesDir, imagestore.WithLogger(logger))
		if err != nil {
			return err
		}
		opts = append(opts, analyse.WithImageStore(images))
	}

	ctx := context.Background()
	for _, net := range registry.Networks() {
		if *netName != "" && net.Name() != *netName {
			continue
		}
		d := analyse.New(net, ld, ar, opts...)
		if err := d.Run(ctx, filepath.Join(m.RawDir, net.Name())); err != nil {
			return fmt.Errorf("analyse %s: %w", net.Name(), err)
		}
	}
	return nil
}

func runResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	runFile := fs.String("run", "run.yaml", "run manifest file")
	out := fs.String("out", "", "output file (default <name>-predictions.csv)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	logger := newLogger(*debug)
	m, err := loadManifest(*runFile)
	if err != nil {
		return err
	}
	ld, err := m.openLedger(logger)
	if err != nil {
		return err
	}
	defer ld.Close() //nolint:errcheck // read path
	ar, err := m.openArchive(logger)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(m.Dir, m.Name+"-predictions.csv")
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	members := resolve.Gather(ld, ar, logger)
	r := resolve.New(ld, m.PrimaryNetwork,
		resolve.WithLogger(logger), resolve.WithParallelism(m.Parallelism))
	if err := r.Export(context.Background(), f, members); err != nil {
		f.Close() //nolint:errcheck // best effort on unwind
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	logger.Info("feature export written", "path", outPath, "profiles", len(members))
	return nil
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory holding the run archives")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	if fs.NArg() < 2 {
		return errors.New("usage: doppel merge [options] <output-name> <run-name>...")
	}
	logger := newLogger(*debug)

	report, err := merge.Merge(*dir, fs.Arg(0), fs.Args()[1:], merge.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Printf("Total of %d records copied. %d duplicates were discarded. %d records had no corresponding file.\n",
		report.Records, report.Duplicates, report.Missing)
	return nil
}

func runLinks(args []string) error {
	fs := flag.NewFlagSet("links", flag.ExitOnError)
	runFile := fs.String("run", "run.yaml", "run manifest file")
	out := fs.String("out", "", "output file (default <name>-links.txt)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	logger := newLogger(*debug)
	m, err := loadManifest(*runFile)
	if err != nil {
		return err
	}
	ld, err := m.openLedger(logger)
	if err != nil {
		return err
	}
	defer ld.Close() //nolint:errcheck // read path
	ar, err := m.openArchive(logger)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(m.Dir, m.Name+"-links.txt")
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create links file: %w", err)
	}

	for _, rec := range ld.Records() {
		if rec.Network != m.PrimaryNetwork || !ar.Exists(rec.UID) {
			continue
		}
		p, err := ar.Load(rec.UID)
		if err != nil {
			logger.Warn("unreadable stored profile, skipping", "uid", rec.UID, "error", err)
			continue
		}
		for _, link := range p.ProfileLinks {
			fmt.Fprintln(f, link)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close links file: %w", err)
	}
	logger.Info("links written", "path", outPath)
	return nil
}
