package models

import "time"

// RoundOutcome summarizes how a validation round ended.
type RoundOutcome string

const (
	// OutcomeApplied means a winner was confirmed and written to the primary tree.
	OutcomeApplied RoundOutcome = "applied"
	// OutcomeRejected means a winner existed but confirmation was declined.
	OutcomeRejected RoundOutcome = "rejected"
	// OutcomeNoWinner means no candidate validated successfully.
	OutcomeNoWinner RoundOutcome = "no_winner"
	// OutcomeDrifted means the primary target changed during the round, so the
	// winner was not applied.
	OutcomeDrifted RoundOutcome = "drifted"
	// OutcomeFailed means the round aborted before selection.
	OutcomeFailed RoundOutcome = "failed"
)

// RoundReport is what the orchestrator returns for one validation round.
type RoundReport struct {
	// RoundID identifies the round.
	RoundID string `json:"round_id"`
	// TargetPath is the project-relative path the round targeted.
	TargetPath string `json:"target_path"`
	// Candidates holds every candidate the source produced.
	Candidates []Candidate `json:"candidates"`
	// Results holds one result per candidate, in completion order.
	Results []ValidationResult `json:"results"`
	// Winner is the selected result, nil when no candidate succeeded.
	Winner *ValidationResult `json:"winner,omitempty"`
	// Outcome is how the round ended.
	Outcome RoundOutcome `json:"outcome"`
	// WorkspacesCreated and WorkspacesDestroyed are counted across the round;
	// they are equal once the round has closed.
	WorkspacesCreated   int `json:"workspaces_created"`
	WorkspacesDestroyed int `json:"workspaces_destroyed"`
	// StartedAt and FinishedAt bound the round.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Result returns the result for the given candidate, if present.
func (r *RoundReport) Result(candidateID int) (ValidationResult, bool) {
	for _, res := range r.Results {
		if res.CandidateID == candidateID {
			return res, true
		}
	}
	return ValidationResult{}, false
}

// Candidate returns the candidate with the given ID, if present.
func (r *RoundReport) Candidate(id int) (Candidate, bool) {
	for _, c := range r.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}
