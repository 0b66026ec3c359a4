// Package confirm is the single gate between a selected winner and the
// primary project tree.
package confirm

import (
	"context"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// Proposal is what a Confirmer is asked to approve.
type Proposal struct {
	// RoundID identifies the round.
	RoundID string
	// TargetPath is the project-relative file that would be written.
	TargetPath string
	// Original is the target's current content, empty for a new file.
	Original string
	// Exists reports whether the target exists in the primary tree.
	Exists bool
	// Winner is the selected result; Winner.Source is what would be written.
	Winner models.ValidationResult
	// Candidate is the winning candidate, for its rationale and test.
	Candidate models.Candidate
	// Results holds every result of the round.
	Results []models.ValidationResult
}

// Confirmer makes the yes/no decision. Returning false or an error means
// nothing is written.
type Confirmer interface {
	Confirm(ctx context.Context, p Proposal) (bool, error)
}

// Automatic is implemented by confirmers that answer without a human.
type Automatic interface {
	Automatic() bool
}

// Fixed answers every proposal the same way.
type Fixed bool

// Confirm returns the fixed answer.
func (f Fixed) Confirm(ctx context.Context, _ Proposal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(f), nil
}

// Automatic reports true.
func (Fixed) Automatic() bool { return true }

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, p Proposal) (bool, error)

// Confirm calls f.
func (f Func) Confirm(ctx context.Context, p Proposal) (bool, error) {
	return f(ctx, p)
}

var (
	_ Confirmer = Fixed(false)
	_ Automatic = Fixed(false)
	_ Confirmer = Func(nil)
)
