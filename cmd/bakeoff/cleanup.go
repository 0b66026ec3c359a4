package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/bakeoff/internal/config"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/state"
	"github.com/ShayCichocki/bakeoff/internal/workspace"
)

// roundMaxAge is how long finished rounds stay in the ledger.
const roundMaxAge = 30 * 24 * time.Hour

var (
	cleanupForce   bool
	cleanupVerbose bool
	cleanupDryRun  bool
	cleanupRounds  bool
	cleanupMode    string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove workspaces left behind by interrupted rounds",
	Long: `Clean up workspaces left by rounds that crashed or were killed.

This command:
  - Finds rounds the ledger still marks active whose process is gone
  - Removes their workspaces (worktree and branch, or copied directory)
  - Removes any other directory under this project's workspace base
    directory that no running round owns
  - Runs git worktree prune

With --rounds flag:
  - Deletes finished rounds older than 30 days from the ledger

Examples:
  bakeoff cleanup              # Interactive cleanup with confirmation
  bakeoff cleanup --force      # Skip confirmation prompt
  bakeoff cleanup --dry-run    # Show what would be removed
  bakeoff cleanup -v           # Show each removal
  bakeoff cleanup --rounds     # Also purge rounds older than 30 days`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVarP(&cleanupVerbose, "verbose", "v", false, "Show each workspace as it's removed")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
	cleanupCmd.Flags().BoolVar(&cleanupRounds, "rounds", false, "Purge finished rounds older than 30 days")
	cleanupCmd.Flags().StringVar(&cleanupMode, "mode", "", "Workspace isolation the rounds used: git or copy (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cleanupMode != "" {
		cfg.Workspace.Mode = cleanupMode
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := findProjectRoot(cwd, cfg.Workspace.Mode)
	if err != nil {
		return err
	}

	logger := logging.ForProject(root)
	defer logger.Close()

	manager, checkout, err := newWorkspaceManager(root, cfg, logger)
	if err != nil {
		return err
	}

	plan, err := planCleanup(root, manager)
	if err != nil {
		return err
	}
	if plan.db != nil {
		defer plan.db.Close()
	}

	out := cmd.OutOrStdout()
	if plan.empty() {
		fmt.Fprintln(out, "No leftover workspaces found.")
	} else {
		plan.describe(out)

		switch {
		case cleanupDryRun:
			fmt.Fprintln(out, "Dry run mode - nothing was removed.")
		case !cleanupForce && !askYesNo(cmd.InOrStdin(), out, "Remove these workspaces?"):
			fmt.Fprintln(out, "Cleanup cancelled.")
		default:
			plan.execute(out, manager, checkout)
		}
	}

	if cleanupRounds {
		return purgeOldRounds(out, plan.db)
	}
	return nil
}

// cleanupPlan is what a cleanup would remove.
type cleanupPlan struct {
	db          *state.DB
	recovery    *state.RecoveryManager
	interrupted []state.InterruptedRound
	orphans     []string
}

// planCleanup collects interrupted rounds from the ledger and orphan
// directories from the workspace base directory. Workspaces of rounds that
// are still running are never included.
func planCleanup(root string, manager *workspace.Manager) (*cleanupPlan, error) {
	plan := &cleanupPlan{}
	keep := map[string]bool{}

	if _, err := os.Stat(state.ProjectDBPath(root)); err == nil {
		db, err := state.OpenProject(root)
		if err != nil {
			return nil, fmt.Errorf("open round ledger: %w", err)
		}
		plan.db = db
		plan.recovery = state.NewRecoveryManager(db)

		if plan.interrupted, err = plan.recovery.Interrupted(); err != nil {
			db.Close()
			return nil, fmt.Errorf("find interrupted rounds: %w", err)
		}
		if keep, err = plan.recovery.KeepPaths(); err != nil {
			db.Close()
			return nil, fmt.Errorf("find running rounds: %w", err)
		}
	}

	claimed := make(map[string]bool)
	for _, ir := range plan.interrupted {
		for _, ws := range ir.Workspaces {
			claimed[ws.Path] = true
		}
	}

	keepList := make([]string, 0, len(keep)+len(claimed))
	for p := range keep {
		keepList = append(keepList, p)
	}
	for p := range claimed {
		keepList = append(keepList, p)
	}

	orphans, err := manager.ListOrphans(keepList)
	if err != nil {
		if plan.db != nil {
			plan.db.Close()
		}
		return nil, fmt.Errorf("list orphaned workspaces: %w", err)
	}
	sort.Strings(orphans)
	plan.orphans = orphans
	return plan, nil
}

func (p *cleanupPlan) empty() bool {
	return len(p.interrupted) == 0 && len(p.orphans) == 0
}

func (p *cleanupPlan) describe(w io.Writer) {
	for _, ir := range p.interrupted {
		fmt.Fprintf(w, "Interrupted round %s (%s, started %s, pid %d):\n",
			ir.Round.ID, ir.Round.TargetPath, ir.Round.StartedAt.Local().Format(time.DateTime), ir.Round.PID)
		if len(ir.Workspaces) == 0 {
			fmt.Fprintln(w, "  (no workspaces left)")
		}
		for _, ws := range ir.Workspaces {
			fmt.Fprintf(w, "  - %s (branch: %s)\n", ws.Path, orUnset(ws.Branch))
		}
	}
	if len(p.orphans) > 0 {
		fmt.Fprintf(w, "Found %d orphaned workspace(s):\n", len(p.orphans))
		for _, path := range p.orphans {
			fmt.Fprintf(w, "  - %s\n", path)
		}
	}
	fmt.Fprintln(w)
}

func (p *cleanupPlan) execute(w io.Writer, manager *workspace.Manager, checkout workspace.Checkout) {
	var verbose func(path string)
	if cleanupVerbose {
		verbose = func(path string) {
			fmt.Fprintf(w, "Removed: %s\n", path)
		}
	}

	for _, ir := range p.interrupted {
		n, err := p.recovery.Clean(ir, removeRoundWorkspace(checkout, verbose))
		if err != nil {
			fmt.Fprintf(w, "%s round %s: removed %d, errors: %v\n", color.YellowString("⚠"), ir.Round.ID, n, err)
			continue
		}
		fmt.Fprintf(w, "%s Closed round %s (%d workspace(s) removed)\n", color.GreenString("✓"), ir.Round.ID, n)
	}

	if len(p.orphans) > 0 {
		removed := manager.CleanupOrphans(p.orphans, verbose)
		fmt.Fprintf(w, "%s Removed %d orphaned workspace(s).\n", color.GreenString("✓"), removed)
	}
}

// removeRoundWorkspace removes a recorded workspace through the checkout,
// falling back to deleting its directory.
func removeRoundWorkspace(checkout workspace.Checkout, verbose func(string)) state.RemoveFunc {
	return func(ws state.RoundWorkspace) error {
		if err := checkout.RemoveIsolatedCopy(ws.Path, ws.Branch); err != nil {
			if rmErr := os.RemoveAll(ws.Path); rmErr != nil {
				return fmt.Errorf("%v; forced delete: %w", err, rmErr)
			}
		}
		if _, err := os.Stat(ws.Path); err == nil {
			return fmt.Errorf("%s still exists", ws.Path)
		}
		if verbose != nil {
			verbose(ws.Path)
		}
		return nil
	}
}

// purgeOldRounds deletes finished rounds older than roundMaxAge.
func purgeOldRounds(w io.Writer, db *state.DB) error {
	if db == nil {
		fmt.Fprintln(w, "No round ledger found - no rounds to purge.")
		return nil
	}

	if cleanupDryRun {
		rounds, err := db.ListRounds(0)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		cutoff := time.Now().Add(-roundMaxAge)
		count := 0
		for _, r := range rounds {
			if r.Status != state.RoundActive && r.StartedAt.Before(cutoff) {
				count++
			}
		}
		fmt.Fprintf(w, "Dry run: would purge %d round(s) older than 30 days.\n", count)
		return nil
	}

	purged, err := db.PurgeOldRounds(roundMaxAge)
	if err != nil {
		return fmt.Errorf("purge old rounds: %w", err)
	}
	if purged > 0 {
		fmt.Fprintf(w, "Purged %d round(s) older than 30 days.\n", purged)
	} else {
		fmt.Fprintln(w, "No rounds older than 30 days found.")
	}
	return nil
}

// askYesNo prints question and reads one line; only y or yes is a yes.
func askYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
