// Package service implements the clone, parse and result-lookup operations
// shared by the HTTP and MCP boundaries.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/gitfetch"
)

// DefaultCacheSize bounds the number of runs kept for Get.
const DefaultCacheSize = 32

var (
	ErrInvalidRepo  = errors.New("invalid repository reference")
	ErrRepoNotFound = errors.New("repository not found")
	ErrNoRuns       = errors.New("no parsed data available")
	ErrRunNotFound  = errors.New("run not found")
	ErrGitMissing   = errors.New("git is not installed")
	ErrCloneFailed  = errors.New("failed to clone repository")
)

// Cloner materializes remote repositories. *gitfetch.Fetcher implements it.
type Cloner interface {
	CheckGit(ctx context.Context) error
	Clone(ctx context.Context, ref string) (string, error)
	Path(name string) string
}

// Extractor runs one extraction. *extract.Extractor implements it.
type Extractor interface {
	Run(ctx context.Context, root string) (*extract.Result, error)
}

// CloneResult describes a freshly cloned repository.
type CloneResult struct {
	RepoName string   `json:"repo_name"`
	Path     string   `json:"path"`
	Files    []string `json:"files"`
}

// Run is one completed extraction.
type Run struct {
	ID        string          `json:"id"`
	RepoName  string          `json:"repo_name"`
	CreatedAt time.Time       `json:"created_at"`
	Result    *extract.Result `json:"result"`
}

// Options configures a Service.
type Options struct {
	// CacheSize bounds the run cache; DefaultCacheSize when <= 0.
	CacheSize int
	// Sinks receive every successful run.
	Sinks  []export.Sink
	Logger *slog.Logger
}

// Service clones repositories, runs extractions over them and keeps recent
// runs for lookup. It is safe for concurrent use.
type Service struct {
	cloner    Cloner
	extractor Extractor
	sinks     []export.Sink
	logger    *slog.Logger

	runs *lru.Cache[string, *Run]

	mu   sync.Mutex
	last *Run
}

// New creates a Service.
func New(cloner Cloner, extractor Extractor, opts Options) (*Service, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	runs, err := lru.New[string, *Run](size)
	if err != nil {
		return nil, fmt.Errorf("create run cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		cloner:    cloner,
		extractor: extractor,
		sinks:     opts.Sinks,
		logger:    logger,
		runs:      runs,
	}, nil
}

// Clone replaces any previous checkout of url with a fresh clone and lists
// its files.
func (s *Service) Clone(ctx context.Context, url string) (*CloneResult, error) {
	url = strings.TrimSpace(url)
	if url == "" || !gitfetch.IsRemote(url) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, url)
	}
	name, err := gitfetch.RepoName(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepo, err)
	}

	if err := s.cloner.CheckGit(ctx); err != nil {
		if errors.Is(err, gitfetch.ErrGitNotInstalled) {
			return nil, ErrGitMissing
		}
		return nil, fmt.Errorf("%w: %v", ErrGitMissing, err)
	}

	path, err := s.cloner.Clone(ctx, url)
	if err != nil {
		s.logger.Error("clone failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	files, err := gitfetch.ListFiles(path)
	if err != nil {
		return nil, err
	}
	s.logger.Info("repository cloned", "repo", name, "files", len(files))
	return &CloneResult{RepoName: name, Path: path, Files: files}, nil
}

// Parse extracts the previously cloned repository repoName and records the
// run.
func (s *Service) Parse(ctx context.Context, repoName string) (*Run, error) {
	if !validRepoName(repoName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, repoName)
	}
	path := s.cloner.Path(repoName)
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, repoName)
	}

	res, err := s.extractor.Run(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", repoName, err)
	}

	if len(s.sinks) > 0 {
		if err := export.WriteAll(ctx, res, s.sinks...); err != nil {
			return nil, fmt.Errorf("export %s: %w", repoName, err)
		}
	}

	run := &Run{
		ID:        uuid.NewString(),
		RepoName:  repoName,
		CreatedAt: time.Now().UTC(),
		Result:    res,
	}
	s.runs.Add(run.ID, run)

	s.mu.Lock()
	s.last = run
	s.mu.Unlock()

	s.logger.Info("run recorded", "id", run.ID, "repo", repoName, "edges", len(res.Edges))
	return run, nil
}

// Last returns the most recent run, even if it has left the cache.
func (s *Service) Last() (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != nil
}

// Get returns a cached run by ID.
func (s *Service) Get(id string) (*Run, bool) {
	return s.runs.Get(id)
}

// RunIDs returns cached run IDs from oldest to newest.
func (s *Service) RunIDs() []string {
	return s.runs.Keys()
}

func validRepoName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
