package models

import "time"

// ValidationStatus classifies the outcome of validating one candidate.
type ValidationStatus int

const (
	// StatusSuccess means the source parsed and its test (if any) passed.
	StatusSuccess ValidationStatus = iota
	// StatusSyntaxError means the source failed to parse.
	StatusSyntaxError
	// StatusTestFailure means the test failed, timed out or could not run.
	StatusTestFailure
	// StatusFileError means writing into the workspace failed.
	StatusFileError
)

// String returns the string representation of a ValidationStatus.
func (s ValidationStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSyntaxError:
		return "syntax_error"
	case StatusTestFailure:
		return "test_failure"
	case StatusFileError:
		return "file_error"
	default:
		return "unknown"
	}
}

// Valid returns true if the status is a known value.
func (s ValidationStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusSyntaxError, StatusTestFailure, StatusFileError:
		return true
	default:
		return false
	}
}

// ValidationResult is produced exactly once per candidate.
type ValidationResult struct {
	// CandidateID is the originating candidate. Results arrive in completion
	// order, so this is the only reliable link back to the candidate.
	CandidateID int `json:"candidate_id"`
	// Status is the outcome classification.
	Status ValidationStatus `json:"status"`
	// Diagnostic explains a non-success status. For syntax errors it holds the
	// line number, parser message and the offending line.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Source is the validated source text. Set only on success.
	Source string `json:"source,omitempty"`
	// Duration is how long validation took.
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the result is a success.
func (r ValidationResult) Succeeded() bool {
	return r.Status == StatusSuccess
}
