package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bakeoff",
	Short: "Validate candidate code changes in parallel before applying one",
	Long: `bakeoff asks a model (or a candidates file) for several versions of a
file, checks each one in its own isolated workspace (syntax first, then the
candidate's test), and writes the winner back only after you confirm.

The primary tree is never touched until confirmation, and every workspace is
destroyed when the round ends.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// findGitRoot walks up from startDir to the directory containing .git.
// A .git file (linked worktree or submodule) counts too.
func findGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a git repository")
		}
		dir = parent
	}
}

// findProjectRoot returns the git root, or startDir itself when copy mode
// can work without git.
func findProjectRoot(startDir, mode string) (string, error) {
	root, err := findGitRoot(startDir)
	if err == nil {
		return root, nil
	}
	if mode == "copy" {
		return startDir, nil
	}
	return "", fmt.Errorf("%w (use --mode copy outside git)", err)
}
