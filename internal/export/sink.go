// Package export writes extraction results to external formats.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/gitfetch"
)

// Sink persists one extraction result.
type Sink interface {
	Name() string
	Write(ctx context.Context, res *extract.Result) error
}

// WriteAll runs every sink concurrently. The first failure cancels the
// context handed to the others and is returned.
func WriteAll(ctx context.Context, res *extract.Result, sinks ...Sink) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		g.Go(func() error {
			if err := s.Write(gctx, res); err != nil {
				return fmt.Errorf("%s sink: %w", s.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// BaseName returns the output file stem for a result:
// github_<repo>_<MMDDYY>_repoai_extract for remote roots and
// folder_upload_<dir>_<MMDDYY>_repoai_extract for local ones.
func BaseName(res *extract.Result, now time.Time) string {
	stamp := now.Format("010206")
	if res.Remote() {
		name, err := gitfetch.RepoName(res.Root)
		if err != nil {
			name = "repo"
		}
		return fmt.Sprintf("github_%s_%s_repoai_extract", name, stamp)
	}
	return fmt.Sprintf("folder_upload_%s_%s_repoai_extract", localName(res.LocalPath), stamp)
}

func localName(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return "root"
	}
	return name
}
