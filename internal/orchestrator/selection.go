package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// TieBreak decides between several successful candidates.
type TieBreak string

const (
	// TieBreakLowestID picks the success with the lowest candidate ID. It is
	// deterministic across runs.
	TieBreakLowestID TieBreak = "lowest_id"
	// TieBreakFirstCompleted picks the first success in completion order.
	// The winner then depends on scheduling.
	TieBreakFirstCompleted TieBreak = "first_completed"
)

// ParseTieBreak parses a tie-break name. Empty means TieBreakLowestID.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakLowestID:
		return TieBreakLowestID, nil
	case TieBreakFirstCompleted:
		return TieBreakFirstCompleted, nil
	default:
		return "", fmt.Errorf("unknown tie-break %q (want %s or %s)", s, TieBreakLowestID, TieBreakFirstCompleted)
	}
}

// SelectWinner returns the winning success among results, which are in
// completion order. It reports false when nothing succeeded.
func SelectWinner(results []models.ValidationResult, tb TieBreak) (models.ValidationResult, bool) {
	var winner models.ValidationResult
	found := false
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		if tb == TieBreakFirstCompleted {
			return r, true
		}
		if !found || r.CandidateID < winner.CandidateID {
			winner = r
			found = true
		}
	}
	return winner, found
}
