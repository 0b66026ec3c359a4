package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/bakeoff/internal/api"
)

// scriptedCompleter replies with replies[i] on the i-th call.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	systems []string
}

func (s *scriptedCompleter) Complete(_ context.Context, req api.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.systems = append(s.systems, req.System)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

func (s *scriptedCompleter) Model() string { return "scripted" }

func reply(code, test string) string {
	out := "THOUGHT: plan\nCODE:\n```python\n" + code + "```\n"
	if test != "" {
		out += "TEST:\n```python\n" + test + "```\n"
	}
	return out
}

func TestModelSource_Generate(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		reply("a = 1\n", "def test_a(): pass\n"),
		reply("a = 2\n", "def test_a(): pass\n"),
		reply("a = 3\n", ""),
	}}
	src := NewModelSource(completer, WithConcurrency(1))

	got, err := src.Generate(context.Background(), Request{TargetPath: "a.py", Prompt: "change a", Count: 3})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	if completer.calls != 3 {
		t.Errorf("calls = %d, want 3", completer.calls)
	}
	for i, c := range got {
		if c.ID != i+1 {
			t.Errorf("candidate %d has ID %d", i, c.ID)
		}
		if c.Rationale != "plan" {
			t.Errorf("Rationale = %q", c.Rationale)
		}
	}
	if got[2].HasTest() {
		t.Error("third candidate should have no test")
	}
	if !strings.Contains(completer.systems[0], "File: a.py") {
		t.Error("system prompt should describe the target")
	}
}

func TestModelSource_DiscardsUnusableReplies(t *testing.T) {
	completer := &scriptedCompleter{
		replies: []string{"THOUGHT: nothing", "", reply("ok = True\n", "")},
		errs:    []error{nil, errors.New("boom"), nil},
	}
	src := NewModelSource(completer, WithConcurrency(1))

	got, err := src.Generate(context.Background(), Request{TargetPath: "a.py", Count: 3})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].ID != 1 || got[0].Source != "ok = True\n" {
		t.Errorf("candidate = %+v", got[0])
	}
}

func TestModelSource_NothingUsable(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("down"), errors.New("down")}}
	src := NewModelSource(completer)

	_, err := src.Generate(context.Background(), Request{TargetPath: "a.py", Count: 2})
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Generate() error = %v, want ErrNoCandidates", err)
	}
}

func TestParseCandidateFile(t *testing.T) {
	data := []byte(`target: sandbox/math_lib.py
candidates:
  - rationale: first
    source: |
      x = 1
    test: |
      def test_x(): pass
  - rationale: empty source is skipped
  - source: |
      x = 2
`)

	got, err := ParseCandidateFile(data, "sandbox/math_lib.py")
	if err != nil {
		t.Fatalf("ParseCandidateFile() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	ids := []int{got[0].ID, got[1].ID}
	if !reflect.DeepEqual(ids, []int{1, 2}) {
		t.Errorf("IDs = %v, want [1 2]", ids)
	}
	if got[0].Source != "x = 1\n" || got[0].Test != "def test_x(): pass\n" {
		t.Errorf("first candidate = %+v", got[0])
	}
	if got[1].Source != "x = 2\n" {
		t.Errorf("second candidate = %+v", got[1])
	}
}

func TestParseCandidateFile_Errors(t *testing.T) {
	if _, err := ParseCandidateFile([]byte("target: other.py\ncandidates:\n  - source: x\n"), "a.py"); err == nil {
		t.Error("mismatched target should fail")
	}
	if _, err := ParseCandidateFile([]byte("candidates: []\n"), "a.py"); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("empty file error = %v, want ErrNoCandidates", err)
	}
	if _, err := ParseCandidateFile([]byte("candidates: [oops"), "a.py"); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestParseCandidateFile_TargetSpelling(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		target string
	}{
		{"dot prefix", "./sandbox/math_lib.py", "sandbox/math_lib.py"},
		{"redundant segments", "sandbox/../sandbox//math_lib.py", "sandbox/math_lib.py"},
		{"round target dotted", "sandbox/math_lib.py", "./sandbox/math_lib.py"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte("target: " + tt.file + "\ncandidates:\n  - source: x\n")
			got, err := ParseCandidateFile(data, tt.target)
			if err != nil {
				t.Fatalf("ParseCandidateFile() error = %v", err)
			}
			if len(got) != 1 {
				t.Errorf("got %d candidates, want 1", len(got))
			}
		})
	}
}

func TestFileSource_Generate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.yaml")
	if err := os.WriteFile(path, []byte("candidates:\n  - source: \"y = 1\\n\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileSource(path).Generate(context.Background(), Request{TargetPath: "y.py"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 1 || got[0].Source != "y = 1\n" {
		t.Errorf("Generate() = %+v", got)
	}

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Generate(context.Background(), Request{}); err == nil {
		t.Error("missing file should fail")
	}
}
