package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ShayCichocki/bakeoff/internal/exec"
)

var (
	headerColor  = color.New(color.Bold)
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	hunkColor    = color.New(color.FgCyan)
	faintColor   = color.New(color.Faint)
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Presenter renders a proposal for a human.
type Presenter struct {
	runner    exec.CommandRunner
	highlight bool
}

// NewPresenter creates a presenter. runner is used to compute diffs; when nil
// or when the diff cannot be computed, the full proposed source is shown.
func NewPresenter(runner exec.CommandRunner, highlight bool) *Presenter {
	return &Presenter{runner: runner, highlight: highlight}
}

// Render writes the winner's summary, rationale and changes to w.
func (p *Presenter) Render(ctx context.Context, w io.Writer, prop Proposal) {
	headerColor.Fprintf(w, "\nWinner: candidate-%d for %s\n", prop.Winner.CandidateID, prop.TargetPath)
	for _, r := range prop.Results {
		mark := removedColor.Sprint("✗")
		if r.Succeeded() {
			mark = addedColor.Sprint("✓")
		}
		fmt.Fprintf(w, "  %s candidate-%d  %s\n", mark, r.CandidateID, r.Status)
	}
	if rationale := strings.TrimSpace(prop.Candidate.Rationale); rationale != "" {
		fmt.Fprintf(w, "\nPlan: %s\n", rationale)
	}
	fmt.Fprintln(w)

	if p.runner != nil && prop.Exists {
		d, err := Unified(ctx, p.runner, prop.TargetPath, prop.Original, prop.Winner.Source)
		if err == nil && !d.Empty() {
			faintColor.Fprintf(w, "%s\n", d.Stat)
			renderDiff(w, d.Text)
			return
		}
	}

	if !prop.Exists {
		faintColor.Fprintf(w, "new file %s\n", prop.TargetPath)
	}
	p.renderSource(w, prop.TargetPath, prop.Winner.Source)
}

func (p *Presenter) renderSource(w io.Writer, name, source string) {
	if p.highlight {
		var b strings.Builder
		if err := quick.Highlight(&b, source, filepath.Base(name), "terminal256", "monokai"); err == nil {
			fmt.Fprint(w, b.String())
			if !strings.HasSuffix(source, "\n") {
				fmt.Fprintln(w)
			}
			return
		}
	}
	fmt.Fprint(w, source)
	if !strings.HasSuffix(source, "\n") {
		fmt.Fprintln(w)
	}
}

func renderDiff(w io.Writer, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "diff "):
			headerColor.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			hunkColor.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			addedColor.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			removedColor.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

// Prompt asks "Apply this change? [y/N]" on a line-oriented reader. Anything
// other than y or yes, including EOF, is a no.
type Prompt struct {
	in        io.Reader
	out       io.Writer
	presenter *Presenter
}

// NewPrompt creates a line prompt. presenter may be nil.
func NewPrompt(in io.Reader, out io.Writer, presenter *Presenter) *Prompt {
	return &Prompt{in: in, out: out, presenter: presenter}
}

// Confirm renders the proposal and reads one answer.
func (p *Prompt) Confirm(ctx context.Context, prop Proposal) (bool, error) {
	if p.presenter != nil {
		p.presenter.Render(ctx, p.out, prop)
	}
	fmt.Fprintf(p.out, "\nApply this change to %s? [y/N]: ", prop.TargetPath)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		resp := strings.ToLower(strings.TrimSpace(a.line))
		return resp == "y" || resp == "yes", nil
	}
}

// Form asks with an interactive huh confirm field.
type Form struct {
	out       io.Writer
	presenter *Presenter
}

// NewForm creates a form confirmer. presenter may be nil.
func NewForm(out io.Writer, presenter *Presenter) *Form {
	return &Form{out: out, presenter: presenter}
}

// Confirm renders the proposal and shows an Apply/Reject form. Aborting the
// form counts as a rejection.
func (f *Form) Confirm(ctx context.Context, prop Proposal) (bool, error) {
	if f.presenter != nil {
		f.presenter.Render(ctx, f.out, prop)
	}

	var apply bool
	field := huh.NewConfirm().
		Title(fmt.Sprintf("Apply candidate-%d to %s?", prop.Winner.CandidateID, prop.TargetPath)).
		Affirmative("Apply").
		Negative("Reject").
		Value(&apply)

	err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return apply, nil
}

var (
	_ Confirmer = (*Prompt)(nil)
	_ Confirmer = (*Form)(nil)
)
