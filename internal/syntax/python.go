package syntax

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/ShayCichocki/bakeoff/internal/exec"
)

// pythonCheckTimeout bounds one interpreter run.
const pythonCheckTimeout = 10 * time.Second

// pythonParseScript parses the file named by argv[1] with the interpreter's
// own ast module. On failure it prints one JSON object and exits 1.
const pythonParseScript = `import ast, json, sys
with open(sys.argv[1], "rb") as f:
    src = f.read()
try:
    ast.parse(src, filename=sys.argv[2])
except SyntaxError as e:
    print(json.dumps({"kind": type(e).__name__, "line": e.lineno or 0, "column": e.offset or 0, "message": e.msg or "invalid syntax", "text": e.text or ""}))
    sys.exit(1)
except ValueError as e:
    print(json.dumps({"kind": "SyntaxError", "line": 1, "column": 0, "message": str(e), "text": ""}))
    sys.exit(1)
`

// pythonError is the JSON printed by pythonParseScript.
type pythonError struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Text    string `json:"text"`
}

// PythonChecker validates Python with the interpreter's ast module, which
// enforces indentation and other rules the tree-sitter grammar tolerates.
// When no interpreter is configured, or it cannot be run, the tree-sitter
// grammar is used instead.
type PythonChecker struct {
	runner      exec.CommandRunner
	interpreter string
	fallback    Checker
}

// NewPythonChecker creates a checker running interpreter through runner. An
// empty interpreter or nil runner leaves only the tree-sitter grammar.
func NewPythonChecker(runner exec.CommandRunner, interpreter string) *PythonChecker {
	return &PythonChecker{
		runner:      runner,
		interpreter: interpreter,
		fallback:    newTreeSitterChecker(languagePython),
	}
}

// FindPython returns the python3 interpreter on PATH, or "" when absent.
func FindPython() string {
	path, err := osexec.LookPath("python3")
	if err != nil {
		return ""
	}
	return path
}

// Language returns "python".
func (c *PythonChecker) Language() string { return languagePython }

// Check parses source and reports the interpreter's SyntaxError, if any.
func (c *PythonChecker) Check(ctx context.Context, filename string, source []byte) (*Diagnostic, error) {
	if c.runner == nil || c.interpreter == "" {
		return c.fallback.Check(ctx, filename, source)
	}

	diag, ok, err := c.parse(ctx, filename, source)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback.Check(ctx, filename, source)
	}
	return diag, nil
}

// parse runs the interpreter. ok is false when the interpreter could not give
// a verdict (missing binary, crash, timeout), in which case diag is nil.
func (c *PythonChecker) parse(ctx context.Context, filename string, source []byte) (diag *Diagnostic, ok bool, err error) {
	f, err := os.CreateTemp("", "bakeoff-syntax-*.py")
	if err != nil {
		return nil, false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(source); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, false, fmt.Errorf("write temp file: %w", err)
	}

	res, err := c.runner.Run(ctx, "", pythonCheckTimeout, c.interpreter, "-I", "-c", pythonParseScript, f.Name(), filename)
	if err != nil || res.TimedOut {
		return nil, false, nil
	}

	switch res.ExitCode {
	case 0:
		return nil, true, nil
	case 1:
		pe, found := lastJSONLine(res.Output)
		if !found {
			return nil, false, nil
		}
		return pe.diagnostic(source), true, nil
	default:
		return nil, false, nil
	}
}

func lastJSONLine(output string) (pythonError, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var pe pythonError
		if err := json.Unmarshal([]byte(line), &pe); err == nil {
			return pe, true
		}
	}
	return pythonError{}, false
}

func (pe pythonError) diagnostic(source []byte) *Diagnostic {
	line := pe.Line
	if line < 1 {
		line = 1
	}
	text := lineAt(source, line)
	if text == "" {
		text = strings.TrimRight(pe.Text, "\r\n")
	}
	kind := pe.Kind
	if kind == "" {
		kind = "SyntaxError"
	}
	return &Diagnostic{
		Line:     line,
		Column:   pe.Column,
		Message:  kind + ": " + pe.Message,
		LineText: text,
	}
}

var _ Checker = (*PythonChecker)(nil)
