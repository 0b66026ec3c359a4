package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// CandidateFile is the on-disk format read by FileSource.
//
//	target: sandbox/math_lib.py
//	candidates:
//	  - rationale: add subtraction
//	    source: |
//	      def sub(a, b):
//	          return a - b
//	    test: |
//	      from sandbox.math_lib import sub
//	      def test_sub():
//	          assert sub(3, 1) == 2
type CandidateFile struct {
	// Target is optional; when set it must match the round's target.
	Target     string          `yaml:"target,omitempty"`
	Candidates []fileCandidate `yaml:"candidates"`
}

type fileCandidate struct {
	Rationale string `yaml:"rationale"`
	Source    string `yaml:"source"`
	Test      string `yaml:"test"`
}

// FileSource reads pre-written candidates from a YAML file.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Generate loads the file. Request.Count is ignored; every entry with a
// non-empty source becomes a candidate.
func (f *FileSource) Generate(ctx context.Context, req Request) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read candidate file: %w", err)
	}
	return ParseCandidateFile(data, req.TargetPath)
}

// ParseCandidateFile decodes a candidate file for target.
func ParseCandidateFile(data []byte, target string) ([]models.Candidate, error) {
	var file CandidateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse candidate file: %w", err)
	}
	if file.Target != "" && target != "" && !samePath(file.Target, target) {
		return nil, fmt.Errorf("candidate file targets %s, not %s", file.Target, target)
	}

	var candidates []models.Candidate
	for _, c := range file.Candidates {
		if c.Source == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Source:    c.Source,
			Test:      c.Test,
			Rationale: c.Rationale,
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return Number(candidates), nil
}

// samePath compares project-relative paths after cleaning, so "./a/b.py"
// and "a/b.py" name the same file.
func samePath(a, b string) bool {
	return filepath.ToSlash(filepath.Clean(a)) == filepath.ToSlash(filepath.Clean(b))
}

var _ Source = (*FileSource)(nil)
