package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/repograph/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// version is set by goreleaser at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "repograph",
	Short: "Extract cross-file relationships from Python repositories",
	Long: `repograph scans a Python source tree (local or a remote git URL), records
imports, definitions and calls per file, and resolves them into edges from
the defining file to the using file. Results are written as CSV, JSON,
SQLite, a graph database or a Mermaid diagram.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./repograph.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("clone-dir", "", "directory remote repositories are cloned into")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("clone-dir", rootCmd.PersistentFlags().Lookup("clone-dir"))
}

// initConfig enables REPOGRAPH_* environment overrides.
func initConfig() {
	viper.SetEnvPrefix("repograph")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the project config file and applies flag and environment
// overrides on top of it.
func loadConfig() (config.ProjectConfig, error) {
	var (
		cfg *config.ProjectConfig
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return config.ProjectConfig{}, fmt.Errorf("load config: %w", err)
	}

	applyOverrides(cfg, viper.GetViper())
	out := cfg.WithDefaults()
	if err := out.Validate(); err != nil {
		return config.ProjectConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return out, nil
}

// applyOverrides copies every set key of v onto cfg.
func applyOverrides(cfg *config.ProjectConfig, v *viper.Viper) {
	if s := v.GetString("clone-dir"); s != "" {
		cfg.CloneDir = s
	}
	if s := v.GetString("out"); s != "" {
		cfg.OutputDir = s
	}
	if s := v.GetString("suffix"); s != "" {
		cfg.Suffix = s
	}
	if f := stringSlice(v, "format"); len(f) > 0 {
		cfg.Formats = f
	}
	if ex := stringSlice(v, "exclude"); len(ex) > 0 {
		cfg.ExcludeDirs = append(cfg.ExcludeDirs, ex...)
	}
	if ex := stringSlice(v, "exclude-glob"); len(ex) > 0 {
		cfg.ExcludeGlobs = append(cfg.ExcludeGlobs, ex...)
	}
	if s := v.GetString("sqlite-path"); s != "" {
		cfg.SQLitePath = s
	}
	if s := v.GetString("graph-path"); s != "" {
		cfg.GraphPath = s
	}
	if s := v.GetString("addr"); s != "" {
		cfg.ServerAddr = s
	}
	if o := stringSlice(v, "allowed-origins"); len(o) > 0 {
		cfg.AllowedOrigins = o
	}
	if v.GetBool("verbose") {
		cfg.Verbose = true
	}
}

// stringSlice reads a list key, splitting comma-joined values. Environment
// variables arrive as one string ("csv,json") which viper does not split.
func stringSlice(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
