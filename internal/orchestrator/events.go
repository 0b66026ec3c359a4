package orchestrator

import (
	"time"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// EventType represents the type of round event.
type EventType string

const (
	// EventRoundStarted indicates a round has begun.
	EventRoundStarted EventType = "round_started"
	// EventCandidatesGenerated indicates the source returned its candidates.
	EventCandidatesGenerated EventType = "candidates_generated"
	// EventWorkspaceCreated indicates a candidate's workspace is ready.
	EventWorkspaceCreated EventType = "workspace_created"
	// EventWorkspaceFailed indicates a candidate's workspace could not be created.
	EventWorkspaceFailed EventType = "workspace_failed"
	// EventValidationStarted indicates a worker picked up a candidate.
	EventValidationStarted EventType = "validation_started"
	// EventValidationCompleted indicates a candidate has a result.
	EventValidationCompleted EventType = "validation_completed"
	// EventWinnerSelected indicates a winner was chosen.
	EventWinnerSelected EventType = "winner_selected"
	// EventApplied indicates the winner was written to the primary tree.
	EventApplied EventType = "applied"
	// EventRejected indicates confirmation was declined.
	EventRejected EventType = "rejected"
	// EventDrift indicates the primary target changed during the round.
	EventDrift EventType = "drift"
	// EventCleanup indicates the round's workspaces were destroyed.
	EventCleanup EventType = "cleanup"
	// EventRoundDone indicates the round has closed.
	EventRoundDone EventType = "round_done"
)

// RoundEvent represents an event emitted during a round.
// These events are used to update the TUI and track progress.
type RoundEvent struct {
	// Type is the kind of event.
	Type EventType
	// RoundID is the round the event belongs to.
	RoundID string
	// CandidateID is the related candidate, 0 if none.
	CandidateID int
	// Status is set on validation_completed and winner_selected events.
	Status models.ValidationStatus
	// Outcome is set on round_done events.
	Outcome models.RoundOutcome
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Count carries the candidate count or destroyed workspace count.
	Count int
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Duration is the elapsed time of the step the event closes.
	Duration time.Duration
}
