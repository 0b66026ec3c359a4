package state

import (
	"io"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// RoundStore records round lifecycle for crash recovery.
type RoundStore interface {
	StartRound(r *Round) error
	SetCandidateCount(id string, n int) error
	FinishRound(id string, status RoundStatus, winnerID int) error
	RecordWorkspace(roundID string, ws models.Workspace) error
	MarkWorkspaceDestroyed(roundID, name string) error
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Ledger is the full persistence surface used by the CLI.
type Ledger interface {
	io.Closer
	Migrator
	RoundStore
	GetRound(id string) (*Round, error)
	ListRounds(limit int) ([]Round, error)
	LiveWorkspaces(roundID string) ([]RoundWorkspace, error)
}

var (
	_ Ledger     = (*DB)(nil)
	_ RoundStore = (*DB)(nil)
	_ Migrator   = (*DB)(nil)
)
