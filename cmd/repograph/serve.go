package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/repograph/internal/config"
	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/gitfetch"
	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/mcptools"
	"github.com/dusk-indust/repograph/internal/server"
	"github.com/dusk-indust/repograph/internal/service"
)

var serveStdio bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and MCP tools",
	Long: `Serve exposes clone, parse and result lookup over HTTP, with the MCP
tools mounted at /mcp. With --stdio the MCP tools are served over
stdin/stdout instead.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default :8000)")
	f.StringSlice("allowed-origins", nil, "CORS allowed origins (default http://localhost:5173)")
	f.BoolVar(&serveStdio, "stdio", false, "serve MCP over stdin/stdout")

	viper.BindPFlag("addr", f.Lookup("addr"))
	viper.BindPFlag("allowed-origins", f.Lookup("allowed-origins"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	ctx := cmd.Context()

	svc, closeSinks, err := newService(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	tools := mcptools.NewRepoTools(svc, newRunStore)
	defer tools.Close()

	if serveStdio {
		return mcptools.RunStdio(ctx, tools)
	}

	srv := server.New(svc, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		MCP:            mcptools.Handler(mcptools.NewMCPServer(tools)),
		Logger:         logger,
	})
	addr, err := srv.Start(ctx, cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ServerAddr, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s (MCP at /mcp)\n", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newService wires the fetcher, extractor and configured sinks into a
// service.Service.
func newService(cfg config.ProjectConfig) (*service.Service, func() error, error) {
	logger := newLogger(cfg.Verbose)

	fetcher := gitfetch.New(gitfetch.Options{CloneDir: cfg.CloneDir, Logger: logger})
	walker, err := graph.NewWalker(graph.NewTreeSitterScanner(), graph.WalkerOptions{
		Suffix:       cfg.Suffix,
		ExcludeDirs:  cfg.ExcludeDirs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		Fetcher:      fetcher,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}

	sinks, closeSinks, err := buildSinks(cfg, time.Now)
	if err != nil {
		return nil, nil, err
	}

	svc, err := service.New(fetcher, extract.New(walker, logger), service.Options{
		CacheSize: cfg.RunCacheSize,
		Sinks:     sinks,
		Logger:    logger,
	})
	if err != nil {
		closeSinks()
		return nil, nil, err
	}
	return svc, closeSinks, nil
}
