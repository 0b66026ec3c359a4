// Package generate produces candidate modifications for a target file.
package generate

import (
	"context"
	"errors"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// ErrNoCandidates is returned when a source produced nothing usable.
var ErrNoCandidates = errors.New("no candidates generated")

// Request describes what to generate.
type Request struct {
	// TargetPath is the project-relative file to modify.
	TargetPath string
	// Current is the target's content in the primary tree, empty for a new file.
	Current string
	// Exists reports whether the target exists in the primary tree.
	Exists bool
	// Prompt is the user's change request.
	Prompt string
	// Count is how many candidates to ask for.
	Count int
}

// Source produces candidates. Implementations return candidates numbered
// from 1 in a stable order.
type Source interface {
	Generate(ctx context.Context, req Request) ([]models.Candidate, error)
}

// Number assigns IDs 1..n in slice order.
func Number(candidates []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	for i, c := range candidates {
		c.ID = i + 1
		out[i] = c
	}
	return out
}
