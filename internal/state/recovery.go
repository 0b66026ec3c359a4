package state

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// InterruptedRound is an active round whose owning process has exited.
type InterruptedRound struct {
	Round      Round
	Workspaces []RoundWorkspace
}

// RemoveFunc removes one leftover workspace from disk.
type RemoveFunc func(ws RoundWorkspace) error

// RecoveryManager finds and cleans up rounds that never closed.
type RecoveryManager struct {
	db    *DB
	alive func(pid int) bool
}

// NewRecoveryManager creates a new RecoveryManager with the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db, alive: isProcessAlive}
}

// Interrupted returns active rounds whose process is no longer running.
func (rm *RecoveryManager) Interrupted() ([]InterruptedRound, error) {
	rounds, err := rm.db.ActiveRounds()
	if err != nil {
		return nil, err
	}

	var out []InterruptedRound
	for _, r := range rounds {
		if rm.alive(r.PID) {
			continue
		}
		ws, err := rm.db.LiveWorkspaces(r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, InterruptedRound{Round: r, Workspaces: ws})
	}
	return out, nil
}

// KeepPaths returns workspace paths owned by rounds still running, which
// orphan cleanup must not touch.
func (rm *RecoveryManager) KeepPaths() (map[string]bool, error) {
	rounds, err := rm.db.ActiveRounds()
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool)
	for _, r := range rounds {
		if !rm.alive(r.PID) {
			continue
		}
		ws, err := rm.db.LiveWorkspaces(r.ID)
		if err != nil {
			return nil, err
		}
		for _, w := range ws {
			keep[w.Path] = true
		}
	}
	return keep, nil
}

// Clean removes an interrupted round's leftover workspaces and marks the
// round failed. Removal errors are collected; the round is closed only when
// every workspace is gone.
func (rm *RecoveryManager) Clean(ir InterruptedRound, remove RemoveFunc) (int, error) {
	removed := 0
	var errs []error
	for _, ws := range ir.Workspaces {
		if err := remove(ws); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", ws.Path, err))
			continue
		}
		if err := rm.db.MarkWorkspaceDestroyed(ws.RoundID, ws.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, errors.Join(errs...)
	}

	if err := rm.db.FinishRound(ir.Round.ID, StatusFromOutcome(models.OutcomeFailed), 0); err != nil {
		return removed, err
	}
	return removed, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without delivering anything.
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
