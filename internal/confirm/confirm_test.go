package confirm

import (
	"bytes"
	"context"
	"errors"
	osexec "os/exec"
	"strings"
	"testing"

	"github.com/ShayCichocki/bakeoff/internal/exec"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/protect"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

func proposal(target, source string) Proposal {
	return Proposal{
		RoundID:    "r1",
		TargetPath: target,
		Original:   "x = 1\n",
		Exists:     true,
		Winner:     models.ValidationResult{CandidateID: 2, Status: models.StatusSuccess, Source: source},
		Candidate:  models.Candidate{ID: 2, Source: source, Rationale: "bump x"},
		Results: []models.ValidationResult{
			{CandidateID: 1, Status: models.StatusSyntaxError},
			{CandidateID: 2, Status: models.StatusSuccess, Source: source},
		},
	}
}

func TestFixed(t *testing.T) {
	ok, err := Fixed(true).Confirm(context.Background(), Proposal{})
	if err != nil || !ok {
		t.Errorf("Fixed(true) = %v, %v", ok, err)
	}
	ok, err = Fixed(false).Confirm(context.Background(), Proposal{})
	if err != nil || ok {
		t.Errorf("Fixed(false) = %v, %v", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if ok, err := Fixed(true).Confirm(ctx, Proposal{}); ok || err == nil {
		t.Error("cancelled context should refuse")
	}
}

func TestPrompt_Answers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompt(strings.NewReader(tt.input), &out, nil)
		got, err := p.Confirm(context.Background(), proposal("a.py", "x = 2\n"))
		if err != nil {
			t.Fatalf("input %q: Confirm() error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("input %q: Confirm() = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Apply this change to a.py?") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestPrompt_RendersProposal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompt(strings.NewReader("n\n"), &out, NewPresenter(nil, false))
	prop := proposal("a.py", "x = 2\n")
	prop.Exists = false

	if _, err := p.Confirm(context.Background(), prop); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"candidate-2", "bump x", "new file a.py", "x = 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

type recordingConfirmer struct {
	called bool
	answer bool
	auto   bool
}

func (r *recordingConfirmer) Confirm(context.Context, Proposal) (bool, error) {
	r.called = true
	return r.answer, nil
}

func (r *recordingConfirmer) Automatic() bool { return r.auto }

func TestProtected(t *testing.T) {
	detector := protect.New()

	tests := []struct {
		name       string
		target     string
		source     string
		auto       bool
		wantAnswer bool
		wantCalled bool
	}{
		{"plain file auto", "sandbox/math_lib.py", "x = 1\n", true, true, true},
		{"protected path auto", "internal/auth/login.py", "x = 1\n", true, false, false},
		{"protected import auto", "sandbox/util.py", "import hashlib\n", true, false, false},
		{"protected path human", "internal/auth/login.py", "x = 1\n", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &recordingConfirmer{answer: true, auto: tt.auto}
			var refused string
			p := NewProtected(detector, next, logging.Nop())
			p.OnRefused = func(reason string) { refused = reason }

			got, err := p.Confirm(context.Background(), proposal(tt.target, tt.source))
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.wantAnswer {
				t.Errorf("Confirm() = %v, want %v", got, tt.wantAnswer)
			}
			if next.called != tt.wantCalled {
				t.Errorf("next called = %v, want %v", next.called, tt.wantCalled)
			}
			if !tt.wantCalled && refused == "" {
				t.Error("OnRefused should receive the reason")
			}
		})
	}
}

func TestFunc(t *testing.T) {
	want := errors.New("boom")
	f := Func(func(context.Context, Proposal) (bool, error) { return false, want })
	if _, err := f.Confirm(context.Background(), Proposal{}); !errors.Is(err, want) {
		t.Errorf("Func.Confirm() error = %v", err)
	}
}

func TestParseDiff(t *testing.T) {
	text := `diff --git a/a.py b/a.py
--- a/a.py
+++ b/a.py
@@ -1,2 +1,3 @@
 x = 1
-y = 2
+y = 3
+z = 4
`
	d, err := ParseDiff(text)
	if err != nil {
		t.Fatalf("ParseDiff() error = %v", err)
	}
	if d.Empty() {
		t.Fatal("diff should not be empty")
	}
	if d.Stat.Added != 2 || d.Stat.Removed != 1 {
		t.Errorf("Stat = %+v, want +2 -1", d.Stat)
	}
	if d.Stat.String() != "+2 -1" {
		t.Errorf("Stat.String() = %q", d.Stat.String())
	}

	empty, err := ParseDiff("")
	if err != nil || !empty.Empty() {
		t.Errorf("ParseDiff(\"\") = %+v, %v", empty, err)
	}
}

func TestUnified(t *testing.T) {
	if _, err := osexec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	d, err := Unified(context.Background(), exec.NewRunner(), "sandbox/a.py", "x = 1\ny = 2\n", "x = 1\ny = 3\n")
	if err != nil {
		t.Fatalf("Unified() error = %v", err)
	}
	if d.Stat.Added != 1 || d.Stat.Removed != 1 {
		t.Errorf("Stat = %+v, want +1 -1", d.Stat)
	}
	if !strings.Contains(d.Text, "+++ b/sandbox/a.py") {
		t.Errorf("diff not relabelled:\n%s", d.Text)
	}

	same, err := Unified(context.Background(), exec.NewRunner(), "a.py", "x\n", "x\n")
	if err != nil {
		t.Fatalf("Unified() error = %v", err)
	}
	if !same.Empty() {
		t.Error("identical content should produce an empty diff")
	}
}
