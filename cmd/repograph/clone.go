package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/repograph/internal/gitfetch"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <url>",
	Short: "Clone a remote repository into the clone directory",
	Long: `Clone replaces any existing checkout of the repository in the clone
directory with a fresh clone and lists its files.`,
	Args: cobra.ExactArgs(1),
	RunE: runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	ref := args[0]

	if !gitfetch.IsRemote(ref) {
		return fmt.Errorf("not a remote repository reference: %q", ref)
	}
	fetcher := gitfetch.New(gitfetch.Options{CloneDir: cfg.CloneDir, Logger: newLogger(cfg.Verbose)})
	if err := fetcher.CheckGit(ctx); err != nil {
		return err
	}
	path, err := fetcher.Clone(ctx, ref)
	if err != nil {
		return err
	}
	files, err := gitfetch.ListFiles(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Cloned %s into %s (%d files)\n", ref, path, len(files))
	if cfg.Verbose {
		for _, f := range files {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
	return nil
}
