package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/syntax"
	"github.com/ShayCichocki/bakeoff/internal/testrunner"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// maxDiagnosticOutput caps how much test output is kept in a diagnostic.
const maxDiagnosticOutput = 16 * 1024

// SyntaxChecker checks source text for the language implied by path.
type SyntaxChecker interface {
	Check(ctx context.Context, path, source string) (*syntax.Diagnostic, error)
}

// TestRunner runs a test file inside a working directory.
type TestRunner interface {
	Run(ctx context.Context, testPath, workDir string, timeout time.Duration) (testrunner.Result, error)
}

// Validator runs the write, syntax and test stages for one candidate.
type Validator struct {
	syntax   SyntaxChecker
	tests    TestRunner
	timeout  time.Duration
	testName func(target string) string
	logger   *logging.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimeout sets the per-test timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Validator) {
		v.logger = l.With("validation")
	}
}

// WithTestFileName overrides where test files are written.
func WithTestFileName(fn func(target string) string) Option {
	return func(v *Validator) {
		if fn != nil {
			v.testName = fn
		}
	}
}

// NewValidator creates a Validator.
func NewValidator(checker SyntaxChecker, tests TestRunner, opts ...Option) *Validator {
	v := &Validator{
		syntax:   checker,
		tests:    tests,
		timeout:  testrunner.DefaultTimeout,
		testName: testrunner.TestFileName,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Timeout returns the per-test timeout.
func (v *Validator) Timeout() time.Duration {
	return v.timeout
}

// ValidateCandidate validates c in ws and tags the result with c's ID.
func (v *Validator) ValidateCandidate(ctx context.Context, ws models.Workspace, target string, c models.Candidate) models.ValidationResult {
	res := v.Validate(ctx, ws, target, c.Source, c.Test)
	res.CandidateID = c.ID
	return res
}

// Validate writes source (and test, when non-empty) into ws and classifies
// the outcome. It never returns an error: every failure is reported through
// the result's status and diagnostic.
//
// A running test is not cancelled with ctx; the timeout is its only bound.
func (v *Validator) Validate(ctx context.Context, ws models.Workspace, target, source, test string) models.ValidationResult {
	start := time.Now()
	result := func(status models.ValidationStatus, diagnostic string) models.ValidationResult {
		r := models.ValidationResult{
			Status:     status,
			Diagnostic: diagnostic,
			Duration:   time.Since(start),
		}
		if status == models.StatusSuccess {
			r.Source = source
		}
		return r
	}

	// Stage 1: write the source.
	if _, err := ResolvePath(ws.Root, target); err != nil {
		return result(models.StatusFileError, err.Error())
	}
	if err := writeFile(ws.Root, target, source); err != nil {
		return result(models.StatusFileError, fmt.Sprintf("write %s: %v", target, err))
	}

	// Stage 2: syntax.
	diag, err := v.syntax.Check(context.WithoutCancel(ctx), target, source)
	switch {
	case errors.Is(err, syntax.ErrUnsupportedLanguage):
		v.logger.Log("%s: no parser for %s, skipping syntax check", ws.Name, filepath.Ext(target))
	case err != nil:
		return result(models.StatusSyntaxError, fmt.Sprintf("syntax check failed: %v", err))
	case diag != nil:
		return result(models.StatusSyntaxError, diag.String())
	}

	// Stage 3: test.
	if strings.TrimSpace(test) == "" {
		return result(models.StatusSuccess, "")
	}

	testRel := v.testName(target)
	if _, err := ResolvePath(ws.Root, testRel); err != nil {
		return result(models.StatusFileError, err.Error())
	}
	if err := writeFile(ws.Root, testRel, test); err != nil {
		return result(models.StatusFileError, fmt.Sprintf("write %s: %v", testRel, err))
	}

	v.logger.Log("%s: running %s (timeout %s)", ws.Name, testRel, v.timeout)
	run, err := v.tests.Run(context.WithoutCancel(ctx), testRel, ws.Root, v.timeout)
	switch {
	case err != nil:
		return result(models.StatusTestFailure, joinDiagnostic(fmt.Sprintf("test execution failed: %v", err), run.Output))
	case run.TimedOut:
		return result(models.StatusTestFailure, joinDiagnostic(fmt.Sprintf("test timed out after %s", v.timeout), run.Output))
	case run.ExitCode != 0:
		return result(models.StatusTestFailure, joinDiagnostic(fmt.Sprintf("tests failed (exit %d)", run.ExitCode), run.Output))
	}

	v.logger.Log("%s: tests passed in %s", ws.Name, run.Duration.Round(time.Millisecond))
	return result(models.StatusSuccess, "")
}

// ResolvePath joins rel onto root, refusing absolute paths and paths that
// would escape root.
func ResolvePath(root, rel string) (string, error) {
	if root == "" {
		return "", errors.New("workspace has no root")
	}
	if rel == "" {
		return "", errors.New("empty target path")
	}
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("target path %q escapes the workspace", rel)
	}
	return filepath.Join(root, rel), nil
}

// writeFile writes rel under root through an os.Root. Symlinks that leave
// the workspace are refused rather than followed.
func writeFile(root, rel, content string) error {
	r, err := os.OpenRoot(root)
	if err != nil {
		return err
	}
	defer r.Close()

	if dir := filepath.Dir(rel); dir != "." {
		if err := r.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return r.WriteFile(rel, []byte(content), 0644)
}

func joinDiagnostic(summary, output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return summary
	}
	if len(output) > maxDiagnosticOutput {
		output = "...\n" + output[len(output)-maxDiagnosticOutput:]
	}
	return summary + "\n" + output
}
