package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/gitfetch"
	"github.com/dusk-indust/repograph/internal/graph"
)

var extractQuiet bool

var extractCmd = &cobra.Command{
	Use:   "extract <root>",
	Short: "Extract and resolve relationships under a directory or git URL",
	Long: `Extract walks every source unit under root, records imports, definitions
and calls, resolves them into cross-file edges and writes the result with
each configured sink. A remote root is cloned into the clone directory
first; an existing clone is reused.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringSlice("format", nil, "output formats: csv, json, sqlite, graph, mermaid (default csv,json)")
	f.String("out", "", "output directory (default raw)")
	f.StringSlice("exclude", nil, "directory names to skip, e.g. venv")
	f.StringSlice("exclude-glob", nil, "unit path globs to skip, e.g. tests/**")
	f.String("suffix", "", "source file suffix (default .py)")
	f.String("sqlite-path", "", "SQLite database for the sqlite format")
	f.String("graph-path", "", "Kuzu database directory for the graph format (in-memory when empty)")
	f.BoolVarP(&extractQuiet, "quiet", "q", false, "disable the progress bar")

	for _, name := range []string{"format", "out", "exclude", "exclude-glob", "suffix", "sqlite-path", "graph-path"} {
		viper.BindPFlag(name, f.Lookup(name))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	ctx := cmd.Context()

	progress := newProgressObserver(cmd.ErrOrStderr(), extractQuiet)
	defer progress.finish()

	fetcher := gitfetch.New(gitfetch.Options{CloneDir: cfg.CloneDir, Logger: logger})
	walker, err := graph.NewWalker(graph.NewTreeSitterScanner(), graph.WalkerOptions{
		Suffix:       cfg.Suffix,
		ExcludeDirs:  cfg.ExcludeDirs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		Fetcher:      fetcher,
		Observer:     progress,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	sinks, closeSinks, err := buildSinks(cfg, time.Now)
	if err != nil {
		return err
	}
	defer closeSinks()

	res, err := extract.New(walker, logger).Run(ctx, args[0])
	if err != nil {
		return err
	}
	progress.finish()

	if err := export.WriteAll(ctx, res, sinks...); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Extracted %d units: %d facts, %d edges (%d skipped) in %.1fs\n",
		len(res.Units), len(res.Facts), len(res.Edges), len(res.ScanErrors), res.Duration.Seconds())
	if len(res.Collisions) > 0 {
		fmt.Fprintf(out, "  Ambiguous names: %d (last definer wins)\n", len(res.Collisions))
	}
	for _, s := range sinks {
		fmt.Fprintf(out, "  %s: %s\n", s.Name(), sinkTarget(s, res))
	}

	if store, ok := graphSink(sinks); ok {
		stats, err := store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("graph stats: %w", err)
		}
		fmt.Fprintf(out, "  graph: %d files, %d symbols, %d modules, %d edges\n",
			stats.FileCount, stats.SymbolCount, stats.ModuleCount, stats.EdgeCount)
	}
	return nil
}

// sinkTarget describes where s wrote res.
func sinkTarget(s export.Sink, res *extract.Result) string {
	switch s := s.(type) {
	case *export.CSVSink:
		facts, edges := s.Paths(res)
		return facts + ", " + edges + ", " + s.RulesPath(res)
	case *export.JSONSink:
		return s.Path(res)
	case *export.MermaidSink:
		return s.Path(res)
	case *export.SQLiteSink:
		return s.Path
	default:
		return "written"
	}
}
