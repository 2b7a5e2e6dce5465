package gitfetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records git invocations. A clone creates the target directory
// with one Python file.
type fakeRunner struct {
	calls [][]string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args)
	if r.err != nil {
		return nil, r.err
	}
	if len(args) == 3 && args[0] == "clone" {
		target := args[2]
		if err := os.MkdirAll(filepath.Join(target, ".git"), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(target, "main.py"), []byte("def main():\n    pass\n"), 0o644); err != nil {
			return nil, err
		}
	}
	return []byte("git version 2.45.0\n"), nil
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"https://github.com/org/repo.git", true},
		{"http://example.com/repo", false},
		{"https://github.com/org/repo", false},
		{"http://example.com/docs/", false},
		{"ssh://git@example.com/repo.git", true},
		{"git://example.com/repo.git", true},
		{"file:///tmp/repo", false},
		{"file:///tmp/repo.git", true},
		{"git@github.com:org/repo.git", true},
		{"user@host:repo.git", true},
		{"./local/project", false},
		{"/abs/path/repo.git", false},
		{"project", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemote(tt.ref))
		})
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://github.com/org/repo.git", "repo"},
		{"https://github.com/org/repo", "repo"},
		{"https://github.com/org/repo/", "repo"},
		{"git@github.com:org/tools.git", "tools"},
		{"user@host:solo.git", "solo"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := RepoName(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "https://host/org/..", "https://host/.git"} {
		_, err := RepoName(bad)
		assert.Error(t, err, "RepoName(%q)", bad)
	}
}

func TestFetcher_FetchClonesOnce(t *testing.T) {
	runner := &fakeRunner{}
	dir := t.TempDir()
	f := New(Options{CloneDir: dir, Runner: runner})
	ctx := context.Background()

	path, err := f.Fetch(ctx, "https://github.com/org/repo.git")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "repo"), path)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"clone", "https://github.com/org/repo.git", path}, runner.calls[0])

	again, err := f.Fetch(ctx, "https://github.com/org/repo.git")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Len(t, runner.calls, 1, "an existing clone is reused")
}

func TestFetcher_CloneReplaces(t *testing.T) {
	runner := &fakeRunner{}
	dir := t.TempDir()
	f := New(Options{CloneDir: dir, Runner: runner})
	ctx := context.Background()

	stale := filepath.Join(dir, "repo", "stale.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("x = 1\n"), 0o644))

	path, err := f.Clone(ctx, "https://github.com/org/repo.git")
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(path, "main.py"))
	assert.Len(t, runner.calls, 1)
}

func TestFetcher_CloneFails(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 128: repository not found")}
	f := New(Options{CloneDir: t.TempDir(), Runner: runner})

	_, err := f.Fetch(context.Background(), "https://github.com/org/missing.git")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository not found")
	assert.True(t, strings.HasPrefix(err.Error(), "gitfetch: clone"))
}

func TestFetcher_CheckGit(t *testing.T) {
	f := New(Options{Runner: &fakeRunner{}})
	require.NoError(t, f.CheckGit(context.Background()))

	missing := New(Options{Runner: &fakeRunner{err: ErrGitNotInstalled}})
	err := missing.CheckGit(context.Background())
	assert.ErrorIs(t, err, ErrGitNotInstalled)
}

func TestFetcher_Defaults(t *testing.T) {
	f := New(Options{})
	assert.Equal(t, DefaultCloneDir, f.CloneDir())
	assert.Equal(t, filepath.Join(DefaultCloneDir, "x"), f.Path("x"))
	assert.True(t, f.IsRemote("git@host:x.git"))
}

func TestListFiles(t *testing.T) {
	files, err := ListFiles("../../testdata/fixtures/py_project")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"README.md",
		"app.py",
		"pkg/__init__.py",
		"pkg/util.py",
		"service.py",
		"venv/vendored.py",
	}, files)

	_, err = ListFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
