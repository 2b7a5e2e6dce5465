// Package gitfetch materializes remote git repositories on the local
// filesystem so they can be walked like any other directory.
package gitfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultCloneDir is where repositories are cloned when no directory is
// configured.
const DefaultCloneDir = "cloned_repos"

// ErrGitNotInstalled is returned by CheckGit when the git binary is missing.
var ErrGitNotInstalled = errors.New("git is not installed")

var remotePrefixes = []string{"http://", "https://", "ssh://", "git://", "file://", "git@"}

// IsRemote reports whether ref names a remote repository rather than a local
// directory: a URL-like prefix or scp-style "user@host:" form, and a ".git"
// suffix.
func IsRemote(ref string) bool {
	ref = strings.TrimSpace(ref)
	if !strings.HasSuffix(ref, ".git") {
		return false
	}
	for _, p := range remotePrefixes {
		if strings.HasPrefix(ref, p) {
			return true
		}
	}
	return strings.Contains(ref, ":")
}

// RepoName derives the local directory name for a repository reference: the
// last path segment without a trailing ".git".
func RepoName(ref string) (string, error) {
	ref = strings.TrimRight(strings.TrimSpace(ref), "/")
	if i := strings.LastIndexAny(ref, "/:"); i >= 0 {
		ref = ref[i+1:]
	}
	name := strings.TrimSuffix(ref, ".git")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `\`) {
		return "", fmt.Errorf("gitfetch: cannot derive repository name from %q", ref)
	}
	return name, nil
}

// Runner executes git with the given arguments and returns combined output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "git", args...).CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return out, ErrGitNotInstalled
		}
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Options configures a Fetcher.
type Options struct {
	CloneDir string
	Runner   Runner
	Logger   *slog.Logger
}

// Fetcher clones remote repositories into CloneDir/<repo name>.
type Fetcher struct {
	cloneDir string
	runner   Runner
	logger   *slog.Logger
}

// New creates a Fetcher. Zero options select DefaultCloneDir and ExecRunner.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		cloneDir: opts.CloneDir,
		runner:   opts.Runner,
		logger:   opts.Logger,
	}
	if f.cloneDir == "" {
		f.cloneDir = DefaultCloneDir
	}
	if f.runner == nil {
		f.runner = ExecRunner{}
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f
}

// CloneDir returns the directory holding cloned repositories.
func (f *Fetcher) CloneDir() string { return f.cloneDir }

// IsRemote implements graph.Fetcher.
func (f *Fetcher) IsRemote(root string) bool { return IsRemote(root) }

// Path returns the local directory a repository name maps to.
func (f *Fetcher) Path(name string) string { return filepath.Join(f.cloneDir, name) }

// Fetch returns the local directory for ref, cloning it first unless the
// directory already exists.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (string, error) {
	name, err := RepoName(ref)
	if err != nil {
		return "", err
	}
	target := f.Path(name)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		f.logger.Debug("clone exists, skipping", "ref", ref, "path", target)
		return target, nil
	}
	if err := f.clone(ctx, ref, target); err != nil {
		return "", err
	}
	return target, nil
}

// Clone removes any previous checkout of ref and clones it again.
func (f *Fetcher) Clone(ctx context.Context, ref string) (string, error) {
	name, err := RepoName(ref)
	if err != nil {
		return "", err
	}
	target := f.Path(name)
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("gitfetch: remove %s: %w", target, err)
	}
	if err := f.clone(ctx, ref, target); err != nil {
		return "", err
	}
	return target, nil
}

func (f *Fetcher) clone(ctx context.Context, ref, target string) error {
	if err := os.MkdirAll(f.cloneDir, 0o755); err != nil {
		return fmt.Errorf("gitfetch: create clone dir: %w", err)
	}
	f.logger.Info("cloning repository", "ref", ref, "path", target)
	if _, err := f.runner.Run(ctx, "clone", ref, target); err != nil {
		return fmt.Errorf("gitfetch: clone %s: %w", ref, err)
	}
	return nil
}

// CheckGit verifies that git can be executed.
func (f *Fetcher) CheckGit(ctx context.Context) error {
	out, err := f.runner.Run(ctx, "--version")
	if err != nil {
		if errors.Is(err, ErrGitNotInstalled) {
			return err
		}
		return fmt.Errorf("gitfetch: check git: %w", err)
	}
	f.logger.Debug("git available", "version", strings.TrimSpace(string(out)))
	return nil
}

// ListFiles returns every regular file under dir as a sorted, slash-separated
// path relative to dir. The .git directory is skipped.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitfetch: list files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
