package confirm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/ShayCichocki/bakeoff/internal/exec"
)

// DiffStat counts changed lines.
type DiffStat struct {
	Added   int
	Removed int
}

// String formats the stat as "+A -R".
func (s DiffStat) String() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}

// Diff is a parsed unified diff between the original and proposed content.
type Diff struct {
	Text  string
	Files []*diff.FileDiff
	Stat  DiffStat
}

// Empty reports whether there is nothing to show.
func (d *Diff) Empty() bool {
	return d == nil || len(d.Files) == 0
}

// Unified diffs original against proposed using git's no-index mode so the
// output matches what the user sees elsewhere. name labels both sides.
func Unified(ctx context.Context, runner exec.CommandRunner, name, original, proposed string) (*Diff, error) {
	dir, err := os.MkdirTemp("", "bakeoff-diff-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "original"), []byte(original), 0600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "proposed"), []byte(proposed), 0600); err != nil {
		return nil, err
	}

	res, err := runner.Run(ctx, dir, 10*time.Second, "git", "diff", "--no-index", "--no-color", "--", "original", "proposed")
	if err != nil {
		return nil, fmt.Errorf("git diff: %w", err)
	}
	// git diff --no-index exits 1 when the files differ.
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, fmt.Errorf("git diff exited %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	}

	text := relabel(res.Output, name)
	return ParseDiff(text)
}

// ParseDiff parses unified diff text and counts added and removed lines.
func ParseDiff(text string) (*Diff, error) {
	d := &Diff{Text: text}
	if strings.TrimSpace(text) == "" {
		return d, nil
	}

	files, err := diff.NewMultiFileDiffReader(strings.NewReader(text)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	d.Files = files

	for _, fd := range files {
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					d.Stat.Added++
				case strings.HasPrefix(line, "-"):
					d.Stat.Removed++
				}
			}
		}
	}
	return d, nil
}

// relabel replaces the temp file names in git's headers with name.
func relabel(text, name string) string {
	replacer := strings.NewReplacer(
		"a/original", "a/"+name,
		"b/proposed", "b/"+name,
	)
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			lines[i] = replacer.Replace(line)
		}
	}
	return strings.Join(lines, "")
}
