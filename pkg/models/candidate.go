package models

import "fmt"

// Candidate is one proposed modification produced by a candidate source.
// Candidates are immutable once produced.
type Candidate struct {
	// ID identifies the candidate within its round. IDs are assigned in
	// generation order starting at 1.
	ID int `json:"id" yaml:"id"`
	// Source is the full proposed content of the target file.
	Source string `json:"source" yaml:"source"`
	// Test is an optional test file exercising Source.
	Test string `json:"test,omitempty" yaml:"test,omitempty"`
	// Rationale is the generator's explanation of the change.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// HasTest reports whether the candidate carries a test.
func (c Candidate) HasTest() bool {
	return c.Test != ""
}

// Label returns a short human-readable identifier such as "candidate-2".
func (c Candidate) Label() string {
	return fmt.Sprintf("candidate-%d", c.ID)
}
