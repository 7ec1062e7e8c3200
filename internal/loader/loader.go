// Package loader reads interpretation bundles from the data directory,
// resolves hexagram identities through the reference table and memoises
// parsed bundle sets per hexagram.
//
// Layout: <root>/<source>/hexagram_NN.yaml (or .yml/.json). The canonical
// source directory must hold 64 complete bundles; every other directory is
// an alternate source and may be sparse.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// DefaultCanonical is the canonical source id.
const DefaultCanonical = "canonical"

var bundleExts = []string{".yaml", ".yml", ".json"}

// #region errors
var (
	ErrCanonicalMissing = fmt.Errorf("%w: canonical bundle missing", faults.ErrData)
	ErrCanonicalInvalid = fmt.Errorf("%w: canonical bundle invalid", faults.ErrData)
)

// #endregion errors

// #region types
// Options configures a Loader. Only Root is required.
type Options struct {
	Root        string
	Canonical   string           // defaults to DefaultCanonical
	MappingPath string           // mapping resource; the embedded one when empty
	Table       *reference.Table // takes precedence over MappingPath
	Logger      *zap.Logger
}

// Record pairs a hexagram's reference entry with its bundles.
type Record struct {
	Hexagram reference.Hexagram
	Set      *BundleSet
}

// Loader owns the bundle cache. It is safe for concurrent use.
type Loader struct {
	root      string
	canonical string
	log       *zap.Logger
	table     func() (*reference.Table, error)
	group     singleflight.Group

	mu         sync.RWMutex
	sets       map[int]*BundleSet
	sources    []string
	meta       *Sources
	generation uint64
}

// #endregion types

// #region constructor
// New returns a Loader. Nothing is read until the first lookup.
func New(opts Options) (*Loader, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("%w: loader needs a data root", faults.ErrInvalidArgument)
	}
	if opts.Canonical == "" {
		opts.Canonical = DefaultCanonical
	}
	l := &Loader{
		root:      opts.Root,
		canonical: opts.Canonical,
		log:       logging.Component(opts.Logger, "loader"),
		sets:      make(map[int]*BundleSet),
	}
	l.table = sync.OnceValues(func() (*reference.Table, error) {
		switch {
		case opts.Table != nil:
			return opts.Table, nil
		case opts.MappingPath != "":
			return reference.Load(opts.MappingPath)
		default:
			return reference.Default()
		}
	})
	return l, nil
}

// #endregion constructor

// #region accessors
// Root returns the data directory.
func (l *Loader) Root() string { return l.root }

// Canonical returns the canonical source id.
func (l *Loader) Canonical() string { return l.canonical }

// Table returns the reference table, building it on first use.
func (l *Loader) Table() (*reference.Table, error) {
	t, err := l.table()
	if err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}
	return t, nil
}

// Cached reports whether the bundle set for n is in the cache.
func (l *Loader) Cached(n int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.sets[n]
	return ok
}

// #endregion accessors

// #region load
// Load returns the bundle set for hexagram n. Concurrent first loads of the
// same number share one read; the result is cached only if it parsed fully.
func (l *Loader) Load(ctx context.Context, n int) (*BundleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := l.Table()
	if err != nil {
		return nil, err
	}
	hex, err := t.ByNumber(n)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	set, ok := l.sets[n]
	gen := l.generation
	l.mu.RUnlock()
	if ok {
		return set, nil
	}

	ch := l.group.DoChan(fmt.Sprintf("%d/%d", gen, n), func() (interface{}, error) {
		return l.loadSet(hex, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*BundleSet), nil
	}
}

func (l *Loader) loadSet(hex reference.Hexagram, gen uint64) (*BundleSet, error) {
	canonical, path, err := l.readBundle(l.canonical, hex)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: hexagram %d (%s)", ErrCanonicalMissing, hex.Number, path)
	case err != nil:
		return nil, fmt.Errorf("%w: hexagram %d: %v", ErrCanonicalInvalid, hex.Number, err)
	}
	if missing := canonical.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: hexagram %d (%s) lacks %v", ErrCanonicalInvalid, hex.Number, path, missing)
	}

	set := &BundleSet{Number: hex.Number, Canonical: canonical, Alternates: map[string]Bundle{}}

	sources, err := l.Sources()
	if err != nil {
		l.log.Warn("alternate sources unavailable", zap.Error(err))
	}
	for _, src := range sources {
		b, path, err := l.readBundle(src, hex)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.log.Debug("source has no bundle", zap.String("source", src), zap.Int("number", hex.Number))
		case err != nil:
			l.log.Warn("skipping malformed bundle",
				zap.String("source", src),
				zap.String("path", path),
				zap.Error(err),
			)
		default:
			set.Alternates[src] = b
		}
	}

	l.mu.Lock()
	if l.generation == gen {
		l.sets[hex.Number] = set
	}
	l.mu.Unlock()
	return set, nil
}

// readBundle finds and parses hexagram_NN.* in the source directory. It
// returns fs.ErrNotExist when no file is present.
func (l *Loader) readBundle(source string, hex reference.Hexagram) (Bundle, string, error) {
	base := filepath.Join(l.root, source, fmt.Sprintf("hexagram_%02d", hex.Number))
	for _, ext := range bundleExts {
		path := base + ext
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Bundle{}, path, fmt.Errorf("read bundle: %w", err)
		}
		b, err := parseBundle(data, source, hex)
		if err != nil {
			return Bundle{}, path, err
		}
		return b, path, nil
	}
	return Bundle{}, base + bundleExts[0], fs.ErrNotExist
}

// #endregion load

// #region lookups
// GetByNumber looks a hexagram up by King Wen number.
func (l *Loader) GetByNumber(ctx context.Context, n int) (Record, error) {
	t, err := l.Table()
	if err != nil {
		return Record{}, err
	}
	hex, err := t.ByNumber(n)
	if err != nil {
		return Record{}, err
	}
	return l.record(ctx, hex)
}

// GetByBinary looks a hexagram up by its bottom-to-top pattern.
func (l *Loader) GetByBinary(ctx context.Context, binary string) (Record, error) {
	t, err := l.Table()
	if err != nil {
		return Record{}, err
	}
	hex, err := t.ByBinary(binary)
	if err != nil {
		return Record{}, err
	}
	return l.record(ctx, hex)
}

// GetByTrigrams looks a hexagram up by its upper and lower trigrams.
func (l *Loader) GetByTrigrams(ctx context.Context, upper, lower reference.TrigramID) (Record, error) {
	t, err := l.Table()
	if err != nil {
		return Record{}, err
	}
	hex, err := t.ByTrigrams(upper, lower)
	if err != nil {
		return Record{}, err
	}
	return l.record(ctx, hex)
}

// GetByLines reduces lines to stable form and delegates to GetByBinary.
func (l *Loader) GetByLines(ctx context.Context, lines reference.Lines) (Record, error) {
	if err := lines.Validate(); err != nil {
		return Record{}, err
	}
	return l.GetByBinary(ctx, lines.Stable().Binary())
}

// GetByName looks a hexagram up by any of its name variants.
func (l *Loader) GetByName(ctx context.Context, name string) (Record, error) {
	t, err := l.Table()
	if err != nil {
		return Record{}, err
	}
	hex, err := t.ByName(name)
	if err != nil {
		return Record{}, err
	}
	return l.record(ctx, hex)
}

func (l *Loader) record(ctx context.Context, hex reference.Hexagram) (Record, error) {
	set, err := l.Load(ctx, hex.Number)
	if err != nil {
		return Record{}, err
	}
	return Record{Hexagram: hex, Set: set}, nil
}

// #endregion lookups

// #region sources
// Sources returns the registered alternate source ids, sorted.
func (l *Loader) Sources() ([]string, error) {
	l.mu.RLock()
	cached := l.sources
	gen := l.generation
	l.mu.RUnlock()
	if cached == nil {
		list, err := listSources(l.root, l.canonical)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []string{}
		}
		l.mu.Lock()
		if l.generation == gen {
			l.sources = list
		}
		l.mu.Unlock()
		cached = list
	}
	out := make([]string, len(cached))
	copy(out, cached)
	return out, nil
}

// Registered reports whether source is the canonical id or a registered alternate.
func (l *Loader) Registered(source string) bool {
	if source == l.canonical {
		return true
	}
	sources, err := l.Sources()
	if err != nil {
		return false
	}
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}

// Meta returns the sources metadata. A malformed file is logged and treated as empty.
func (l *Loader) Meta() *Sources {
	l.mu.RLock()
	meta := l.meta
	gen := l.generation
	l.mu.RUnlock()
	if meta != nil {
		return meta
	}

	meta, err := readSources(l.root)
	if err != nil {
		l.log.Warn("ignoring sources metadata", zap.Error(err))
		meta = &Sources{Info: map[string]SourceInfo{}}
	}
	l.mu.Lock()
	if l.generation == gen {
		l.meta = meta
	}
	l.mu.Unlock()
	return meta
}

// SourceInfo returns the attribution for source from the metadata file.
func (l *Loader) SourceInfo(source string) (SourceInfo, bool) {
	info, ok := l.Meta().Info[source]
	return info, ok
}

// #endregion sources

// #region clear-cache
// ClearCache drops cached bundle sets, the source list and the sources
// metadata so the next lookup re-reads the data directory. Loads already in
// flight finish but are not cached.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets = make(map[int]*BundleSet)
	l.sources = nil
	l.meta = nil
	l.generation++
}

// #endregion clear-cache
