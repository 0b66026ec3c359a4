package testrunner

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ShayCichocki/bakeoff/internal/exec"
)

type call struct {
	workDir string
	timeout time.Duration
	argv    []string
}

type fakeRunner struct {
	result exec.Result
	err    error
	calls  []call
}

func (f *fakeRunner) Run(_ context.Context, workDir string, timeout time.Duration, name string, args ...string) (exec.Result, error) {
	f.calls = append(f.calls, call{workDir: workDir, timeout: timeout, argv: append([]string{name}, args...)})
	return f.result, f.err
}

func TestTestFileName(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"sandbox/math_lib.py", "sandbox/test_math_lib_candidate.py"},
		{"math_lib.py", "test_math_lib_candidate.py"},
		{"internal/calc/calc.go", "internal/calc/calc_candidate_test.go"},
		{"src/app.js", "src/app.candidate.test.js"},
		{"src/app.ts", "src/app.candidate.test.ts"},
		{"src/lib.rs", "tests/lib_candidate.rs"},
		{"scripts/run.sh", "scripts/run_candidate_test.sh"},
	}

	for _, tt := range tests {
		if got := TestFileName(tt.target); got != tt.want {
			t.Errorf("TestFileName(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestAdapter_CommandExpansion(t *testing.T) {
	a := NewAdapter(&fakeRunner{})

	tests := []struct {
		testPath string
		want     []string
	}{
		{"sandbox/test_x_candidate.py", []string{"python", "-m", "pytest", "-q", "sandbox/test_x_candidate.py"}},
		{"pkg/calc/calc_candidate_test.go", []string{"go", "test", "./pkg/calc"}},
		{"calc_candidate_test.go", []string{"go", "test", "./."}},
	}

	for _, tt := range tests {
		got, err := a.Command(tt.testPath, "/ws")
		if err != nil {
			t.Fatalf("Command(%q) error = %v", tt.testPath, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Command(%q) = %v, want %v", tt.testPath, got, tt.want)
		}
	}
}

func TestAdapter_WithCommandsOverride(t *testing.T) {
	a := NewAdapter(&fakeRunner{}, WithCommands(map[string]string{
		"Python": "pytest -x {test} --rootdir={root}",
		"go":     "  ",
	}))

	got, err := a.Command("test_a.py", "/ws")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	want := []string{"pytest", "-x", "test_a.py", "--rootdir=/ws"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Command() = %v, want %v", got, want)
	}

	// Blank override keeps the default.
	got, err = a.Command("a_test.go", "/ws")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if got[0] != "go" {
		t.Errorf("Command() = %v, want default go template", got)
	}
}

func TestAdapter_UnknownLanguage(t *testing.T) {
	a := NewAdapter(&fakeRunner{})
	_, err := a.Run(context.Background(), "notes_test.txt", "/ws", time.Second)
	if !errors.Is(err, ErrNoTestCommand) {
		t.Errorf("Run() error = %v, want ErrNoTestCommand", err)
	}
}

func TestAdapter_RunPassesThrough(t *testing.T) {
	fr := &fakeRunner{result: exec.Result{ExitCode: 1, Output: "1 failed"}}
	a := NewAdapter(fr)

	res, err := a.Run(context.Background(), "test_a.py", "/ws", 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Passed() {
		t.Error("Passed() = true for exit 1")
	}
	if res.Output != "1 failed" {
		t.Errorf("Output = %q", res.Output)
	}
	if len(fr.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(fr.calls))
	}
	if fr.calls[0].workDir != "/ws" {
		t.Errorf("workDir = %q, want /ws", fr.calls[0].workDir)
	}
	if fr.calls[0].timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", fr.calls[0].timeout, DefaultTimeout)
	}
}

func TestAdapter_RunStartFailure(t *testing.T) {
	fr := &fakeRunner{result: exec.Result{ExitCode: -1}, err: errors.New("executable file not found")}
	a := NewAdapter(fr)

	_, err := a.Run(context.Background(), "test_a.py", "/ws", time.Second)
	if err == nil {
		t.Fatal("Run() should return start failures")
	}
}

func TestResult_Passed(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"zero exit", Result{ExitCode: 0}, true},
		{"non-zero exit", Result{ExitCode: 2}, false},
		{"timed out", Result{ExitCode: 0, TimedOut: true}, false},
	}
	for _, tt := range tests {
		if got := tt.res.Passed(); got != tt.want {
			t.Errorf("%s: Passed() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
