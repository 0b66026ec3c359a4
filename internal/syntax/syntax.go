// Package syntax checks proposed source text for well-formedness and reports
// the first error with its line, parser message and the offending line.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/bakeoff/internal/exec"
)

// ErrUnsupportedLanguage is returned when no parser is registered for a file.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Diagnostic locates a syntax error.
type Diagnostic struct {
	// Line is 1-based.
	Line int
	// Column is 1-based, 0 when unknown.
	Column int
	// Message is the parser's description of the problem.
	Message string
	// LineText is the literal text of the offending line.
	LineText string
}

// String formats the diagnostic as "line K: message" followed by the line.
func (d *Diagnostic) String() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("line %d: %s\n    %s", d.Line, d.Message, d.LineText)
}

// Checker parses source text for one language.
type Checker interface {
	// Language names the language, e.g. "python".
	Language() string
	// Check returns nil if source is well-formed, or the first error found.
	Check(ctx context.Context, filename string, source []byte) (*Diagnostic, error)
}

// Validator routes files to a Checker by extension.
type Validator struct {
	byExt map[string]Checker
}

// Option configures the built-in checkers of a Validator.
type Option func(*options)

type options struct {
	runner exec.CommandRunner
	python string
}

// WithRunner sets the command runner used for interpreter-backed checks.
func WithRunner(r exec.CommandRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithPython sets the Python interpreter. An empty path checks Python with
// the tree-sitter grammar only.
func WithPython(path string) Option {
	return func(o *options) { o.python = path }
}

// NewValidator returns a Validator with every built-in language registered.
// Python is checked by python3 from PATH unless WithPython says otherwise.
func NewValidator(opts ...Option) *Validator {
	o := options{python: FindPython()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = exec.NewRunner()
	}

	v := &Validator{byExt: make(map[string]Checker)}
	v.Register(GoChecker{}, ".go")
	v.Register(NewPythonChecker(o.runner, o.python), ".py", ".pyi")
	v.Register(newTreeSitterChecker(languageJavaScript), ".js", ".jsx", ".mjs", ".cjs")
	v.Register(newTreeSitterChecker(languageTypeScript), ".ts", ".mts", ".cts")
	v.Register(newTreeSitterChecker(languageRust), ".rs")
	v.Register(newTreeSitterChecker(languageBash), ".sh", ".bash")
	return v
}

// Register associates a checker with file extensions (including the dot).
func (v *Validator) Register(c Checker, exts ...string) {
	for _, ext := range exts {
		v.byExt[strings.ToLower(ext)] = c
	}
}

// Language returns the language name for path, or "" when unsupported.
func (v *Validator) Language(path string) string {
	if c, ok := v.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return c.Language()
	}
	return ""
}

// Check validates source as the language implied by path's extension.
func (v *Validator) Check(ctx context.Context, path, source string) (*Diagnostic, error) {
	c, ok := v.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Ext(path))
	}
	return c.Check(ctx, filepath.Base(path), []byte(source))
}

// lineAt returns the 1-based line of source without its newline.
func lineAt(source []byte, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(string(source), "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}
