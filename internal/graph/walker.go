package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Fetcher materializes remote roots on the local filesystem.
// Implementation: gitfetch.Fetcher.
type Fetcher interface {
	// IsRemote reports whether root is a remote repository reference.
	IsRemote(root string) bool
	// Fetch returns a local directory holding root, cloning it if needed.
	Fetch(ctx context.Context, root string) (string, error)
}

// Observer receives walk progress. Both methods are called from the walking
// goroutine.
type Observer interface {
	OnDiscovered(total int)
	OnScanned(unitID string, err error)
}

// WalkerOptions configures unit discovery.
type WalkerOptions struct {
	// Suffix selects source files; DefaultSuffix when empty.
	Suffix string
	// ExcludeDirs are directory base names never descended into. ".git" is
	// always excluded.
	ExcludeDirs []string
	// ExcludeGlobs are matched against unit IDs ("pkg/**/test_*.py").
	ExcludeGlobs []string
	Fetcher      Fetcher
	Observer     Observer
	Logger       *slog.Logger
}

// WalkResult aggregates the facts and scan errors of one walk.
type WalkResult struct {
	Root      string      `json:"root"`
	LocalPath string      `json:"localPath"`
	Units     []string    `json:"units"`
	Facts     []Fact      `json:"facts"`
	Errors    []ScanError `json:"errors"`
}

// Walker enumerates source units under a root and scans each one.
type Walker struct {
	scanner     Scanner
	suffix      string
	excludeDirs map[string]bool
	excludes    []glob.Glob
	fetcher     Fetcher
	observer    Observer
	logger      *slog.Logger
}

// NewWalker creates a Walker. It fails only on malformed exclude globs.
func NewWalker(scanner Scanner, opts WalkerOptions) (*Walker, error) {
	w := &Walker{
		scanner:     scanner,
		suffix:      opts.Suffix,
		excludeDirs: map[string]bool{".git": true},
		fetcher:     opts.Fetcher,
		observer:    opts.Observer,
		logger:      opts.Logger,
	}
	if w.suffix == "" {
		w.suffix = DefaultSuffix
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, d := range opts.ExcludeDirs {
		w.excludeDirs[d] = true
	}
	for _, pattern := range opts.ExcludeGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		w.excludes = append(w.excludes, g)
	}
	return w, nil
}

// Walk materializes root if it is remote, enumerates its units in lexical ID
// order and scans each one. Per-unit failures are collected in
// WalkResult.Errors; root-level failures are returned as *WalkFatalError.
func (w *Walker) Walk(ctx context.Context, root string) (*WalkResult, error) {
	local := root
	if w.fetcher != nil && w.fetcher.IsRemote(root) {
		path, err := w.fetcher.Fetch(ctx, root)
		if err != nil {
			return nil, &WalkFatalError{Root: root, Op: "fetch", Err: err}
		}
		local = path
	}

	info, err := os.Stat(local)
	if err != nil {
		return nil, &WalkFatalError{Root: root, Op: "stat", Err: err}
	}
	if !info.IsDir() {
		return nil, &WalkFatalError{Root: root, Op: "stat", Err: fmt.Errorf("%s is not a directory", local)}
	}

	units, err := w.discover(local)
	if err != nil {
		return nil, &WalkFatalError{Root: root, Op: "walk", Err: err}
	}
	if w.observer != nil {
		w.observer.OnDiscovered(len(units))
	}
	w.logger.Debug("discovered units", "root", root, "count", len(units))

	res := &WalkResult{
		Root:      root,
		LocalPath: local,
		Units:     units,
		Facts:     []Fact{},
		Errors:    []ScanError{},
	}

	for _, id := range units {
		if err := ctx.Err(); err != nil {
			return nil, &WalkFatalError{Root: root, Op: "walk", Err: err}
		}
		facts, scanErr := w.scanUnit(ctx, local, id)
		if scanErr != nil {
			res.Errors = append(res.Errors, *scanErr)
		} else {
			res.Facts = append(res.Facts, facts...)
		}
		if w.observer != nil {
			var err error
			if scanErr != nil {
				err = scanErr
			}
			w.observer.OnScanned(id, err)
		}
	}

	return res, nil
}

// discover returns the sorted unit IDs under local.
func (w *Walker) discover(local string) ([]string, error) {
	var units []string
	err := filepath.WalkDir(local, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == local {
				return err
			}
			w.logger.Debug("skipping inaccessible path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != local && w.excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), w.suffix) {
			return nil
		}
		rel, err := filepath.Rel(local, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		id := filepath.ToSlash(rel)
		if w.excluded(id) {
			return nil
		}
		units = append(units, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(units)
	return units, nil
}

func (w *Walker) excluded(id string) bool {
	for _, g := range w.excludes {
		if g.Match(id) {
			return true
		}
	}
	return false
}

func (w *Walker) scanUnit(ctx context.Context, local, id string) ([]Fact, *ScanError) {
	source, err := os.ReadFile(filepath.Join(local, filepath.FromSlash(id)))
	if err != nil {
		return nil, &ScanError{Unit: id, Msg: fmt.Sprintf("read: %v", err)}
	}

	facts, err := w.scanner.Scan(ctx, SourceUnit{ID: id, Source: source})
	if err != nil {
		var se *ScanError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &ScanError{Unit: id, Msg: err.Error()}
	}
	return facts, nil
}
