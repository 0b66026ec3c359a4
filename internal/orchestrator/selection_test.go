package orchestrator

import (
	"testing"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

func res(id int, status models.ValidationStatus) models.ValidationResult {
	return models.ValidationResult{CandidateID: id, Status: status}
}

func TestSelectWinner(t *testing.T) {
	tests := []struct {
		name    string
		results []models.ValidationResult
		tb      TieBreak
		wantID  int
		wantOK  bool
	}{
		{
			name:    "empty",
			results: nil,
			tb:      TieBreakLowestID,
		},
		{
			name:    "all failed",
			results: []models.ValidationResult{res(1, models.StatusSyntaxError), res(2, models.StatusTestFailure), res(3, models.StatusFileError)},
			tb:      TieBreakLowestID,
		},
		{
			name:    "single success",
			results: []models.ValidationResult{res(2, models.StatusTestFailure), res(1, models.StatusSuccess)},
			tb:      TieBreakLowestID,
			wantID:  1,
			wantOK:  true,
		},
		{
			name:    "lowest id ignores completion order",
			results: []models.ValidationResult{res(3, models.StatusSuccess), res(1, models.StatusTestFailure), res(2, models.StatusSuccess)},
			tb:      TieBreakLowestID,
			wantID:  2,
			wantOK:  true,
		},
		{
			name:    "first completed",
			results: []models.ValidationResult{res(3, models.StatusSuccess), res(1, models.StatusTestFailure), res(2, models.StatusSuccess)},
			tb:      TieBreakFirstCompleted,
			wantID:  3,
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectWinner(tt.results, tt.tb)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.CandidateID != tt.wantID {
				t.Errorf("winner = %d, want %d", got.CandidateID, tt.wantID)
			}
		})
	}
}

func TestSelectWinner_Deterministic(t *testing.T) {
	orders := [][]models.ValidationResult{
		{res(1, models.StatusSuccess), res(2, models.StatusSuccess), res(3, models.StatusSuccess)},
		{res(3, models.StatusSuccess), res(2, models.StatusSuccess), res(1, models.StatusSuccess)},
		{res(2, models.StatusSuccess), res(3, models.StatusSuccess), res(1, models.StatusSuccess)},
	}
	for _, results := range orders {
		got, _ := SelectWinner(results, TieBreakLowestID)
		if got.CandidateID != 1 {
			t.Errorf("SelectWinner(%v) = %d, want 1", results, got.CandidateID)
		}
	}
}

func TestParseTieBreak(t *testing.T) {
	tests := []struct {
		in      string
		want    TieBreak
		wantErr bool
	}{
		{in: "", want: TieBreakLowestID},
		{in: "lowest_id", want: TieBreakLowestID},
		{in: "first_completed", want: TieBreakFirstCompleted},
		{in: "random", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTieBreak(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTieBreak(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTieBreak(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
