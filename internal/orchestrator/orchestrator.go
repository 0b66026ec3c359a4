package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/bakeoff/internal/confirm"
	"github.com/ShayCichocki/bakeoff/internal/generate"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/state"
	"github.com/ShayCichocki/bakeoff/internal/validation"
	"github.com/ShayCichocki/bakeoff/internal/workspace"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// WorkspaceManager creates and destroys isolated workspaces.
type WorkspaceManager interface {
	Create(ctx context.Context, name string) (models.Workspace, error)
	Acquire(name string) (models.Workspace, error)
	DestroyAll() int
}

// CandidateValidator validates one candidate inside one workspace.
type CandidateValidator interface {
	ValidateCandidate(ctx context.Context, ws models.Workspace, target string, c models.Candidate) models.ValidationResult
}

var (
	_ WorkspaceManager   = (*workspace.Manager)(nil)
	_ CandidateValidator = (*validation.Validator)(nil)
)

// Request is one user request: change TargetPath as Prompt describes.
type Request struct {
	// TargetPath is relative to the project root.
	TargetPath string
	// Prompt is the change request handed to the candidate source.
	Prompt string
	// Count is how many candidates to ask for; 0 uses the configured default.
	Count int
}

// Orchestrator drives validation rounds against one project tree.
type Orchestrator struct {
	root       string
	source     generate.Source
	workspaces WorkspaceManager
	validator  CandidateValidator
	confirmer  confirm.Confirmer
	opts       *orchestratorOptions
	logger     *logging.Logger

	// mu serializes rounds: cleanup destroys every workspace the manager
	// tracks, so two rounds must not share it concurrently.
	mu sync.Mutex
}

// New creates an Orchestrator.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	switch {
	case req.ProjectRoot == "":
		return nil, errors.New("project root is required")
	case req.Source == nil:
		return nil, errors.New("candidate source is required")
	case req.Workspaces == nil:
		return nil, errors.New("workspace manager is required")
	case req.Validator == nil:
		return nil, errors.New("validator is required")
	case req.Confirmer == nil:
		return nil, errors.New("confirmer is required")
	}

	root, err := filepath.Abs(req.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.newRoundID == nil {
		o.newRoundID = func() string { return uuid.New().String()[:8] }
	}

	return &Orchestrator{
		root:       root,
		source:     req.Source,
		workspaces: req.Workspaces,
		validator:  req.Validator,
		confirmer:  req.Confirmer,
		opts:       o,
		logger:     o.logger.With("orchestrator"),
	}, nil
}

// round is the transient state of one Run.
type round struct {
	id       string
	target   string
	abs      string
	original string
	exists   bool
	created  []string
	report   *models.RoundReport
}

// Run executes one round: generate candidates, create a workspace per
// candidate, validate them in parallel, select a winner and, if the
// confirmer agrees, write it to the primary tree. Every workspace created is
// destroyed before Run returns, whatever happened.
//
// The returned report is non-nil once the target has been resolved, even
// when err is non-nil. Declined confirmation, drift and a round without a
// winner are outcomes, not errors.
func (o *Orchestrator) Run(ctx context.Context, req Request) (report *models.RoundReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	abs, err := validation.ResolvePath(o.root, req.TargetPath)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	original, exists, perm, err := readTarget(abs)
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = o.opts.candidates
	}

	r := &round{
		id:       o.opts.newRoundID(),
		target:   filepath.ToSlash(filepath.Clean(req.TargetPath)),
		abs:      abs,
		original: original,
		exists:   exists,
	}
	r.report = &models.RoundReport{
		RoundID:    r.id,
		TargetPath: r.target,
		Outcome:    models.OutcomeFailed,
		StartedAt:  o.opts.now(),
	}
	report = r.report

	baseline := Fingerprint{}
	if exists {
		baseline = FingerprintContent(original)
	}
	var drift *DriftWatcher
	if o.opts.watchDrift {
		drift = WatchTarget(abs, baseline, o.logger)
	} else {
		drift = fingerprintOnly(abs, baseline, o.logger)
	}

	o.logger.Log("round %s: target %s, %d candidates, exists=%v", r.id, r.target, count, exists)
	o.recordStart(r, req.Prompt)
	o.emit(RoundEvent{Type: EventRoundStarted, RoundID: r.id, Message: r.target, Count: count})

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("round %s: panic: %v\n%s", r.id, rec, debug.Stack())
			report.Outcome = models.OutcomeFailed
			err = fmt.Errorf("round %s aborted: panic: %v", r.id, rec)
		}
		drift.Close()
		o.cleanup(r)
		o.finish(r, err)
	}()

	candidates, err := o.source.Generate(ctx, generate.Request{
		TargetPath: r.target,
		Current:    original,
		Exists:     exists,
		Prompt:     req.Prompt,
		Count:      count,
	})
	if err != nil {
		return report, fmt.Errorf("generate candidates: %w", err)
	}
	if len(candidates) == 0 {
		return report, generate.ErrNoCandidates
	}
	report.Candidates = candidates
	if o.opts.ledger != nil {
		if err := o.opts.ledger.SetCandidateCount(r.id, len(candidates)); err != nil {
			o.logger.Warn("ledger: %v", err)
		}
	}
	o.emit(RoundEvent{Type: EventCandidatesGenerated, RoundID: r.id, Count: len(candidates)})

	tasks := o.createWorkspaces(ctx, r, candidates)

	pool := NewPool(o.validateTask(r), o.opts.maxWorkers,
		WithPoolLogger(o.logger),
		OnTaskStart(func(t Task) {
			o.emit(RoundEvent{Type: EventValidationStarted, RoundID: r.id, CandidateID: t.Candidate.ID, Message: t.Workspace.Name})
		}),
		OnResult(func(res models.ValidationResult) { o.recordResult(r, res) }),
	)
	report.Results = append(report.Results, pool.Run(ctx, tasks)...)

	winner, ok := SelectWinner(report.Results, o.opts.tieBreak)
	if !ok {
		o.logger.Log("round %s: no candidate succeeded", r.id)
		report.Outcome = models.OutcomeNoWinner
		return report, nil
	}
	report.Winner = &winner
	o.logger.Log("round %s: candidate %d selected (%s)", r.id, winner.CandidateID, o.opts.tieBreak)
	o.emit(RoundEvent{Type: EventWinnerSelected, RoundID: r.id, CandidateID: winner.CandidateID, Status: winner.Status})

	if o.drifted(r, drift) {
		return report, nil
	}

	approved, err := o.confirmer.Confirm(ctx, confirm.Proposal{
		RoundID:    r.id,
		TargetPath: r.target,
		Original:   original,
		Exists:     exists,
		Winner:     winner,
		Candidate:  candidateByID(candidates, winner.CandidateID),
		Results:    report.Results,
	})
	if err != nil {
		report.Outcome = models.OutcomeRejected
		return report, fmt.Errorf("confirm: %w", err)
	}
	if !approved {
		o.logger.Log("round %s: winner rejected", r.id)
		report.Outcome = models.OutcomeRejected
		o.emit(RoundEvent{Type: EventRejected, RoundID: r.id, CandidateID: winner.CandidateID})
		return report, nil
	}

	// Confirmation can take a while; check again right before writing.
	if o.drifted(r, drift) {
		return report, nil
	}
	drift.Close()

	if err := writeAtomic(abs, winner.Source, perm); err != nil {
		return report, fmt.Errorf("apply candidate %d: %w", winner.CandidateID, err)
	}
	o.logger.Log("round %s: candidate %d written to %s", r.id, winner.CandidateID, r.target)
	report.Outcome = models.OutcomeApplied
	o.emit(RoundEvent{Type: EventApplied, RoundID: r.id, CandidateID: winner.CandidateID, Message: r.target})
	return report, nil
}

// createWorkspaces creates one workspace per candidate, sequentially. A
// failed creation costs only that candidate: it gets a FileError result and
// the round continues.
func (o *Orchestrator) createWorkspaces(ctx context.Context, r *round, candidates []models.Candidate) []Task {
	tasks := make([]Task, 0, len(candidates))
	for _, c := range candidates {
		name := fmt.Sprintf("%s-%d", r.id, c.ID)

		ws, err := o.workspaces.Create(ctx, name)
		if err != nil {
			o.logger.Warn("round %s: workspace for candidate %d: %v", r.id, c.ID, err)
			o.emit(RoundEvent{Type: EventWorkspaceFailed, RoundID: r.id, CandidateID: c.ID, Error: err})
			o.slotFailed(r, c.ID, fmt.Sprintf("workspace creation failed: %v", err))
			continue
		}
		r.created = append(r.created, name)
		o.opts.metrics.WorkspaceCreated()
		if o.opts.ledger != nil {
			if err := o.opts.ledger.RecordWorkspace(r.id, ws); err != nil {
				o.logger.Warn("ledger: %v", err)
			}
		}
		o.emit(RoundEvent{Type: EventWorkspaceCreated, RoundID: r.id, CandidateID: c.ID, Message: ws.Root})

		ws, err = o.workspaces.Acquire(name)
		if err != nil {
			o.logger.Warn("round %s: acquire %s: %v", r.id, name, err)
			o.slotFailed(r, c.ID, fmt.Sprintf("workspace unavailable: %v", err))
			continue
		}
		tasks = append(tasks, Task{Workspace: ws, Candidate: c})
	}
	return tasks
}

// slotFailed records a FileError for a candidate that never reached a worker.
func (o *Orchestrator) slotFailed(r *round, id int, diagnostic string) {
	res := models.ValidationResult{
		CandidateID: id,
		Status:      models.StatusFileError,
		Diagnostic:  diagnostic,
	}
	r.report.Results = append(r.report.Results, res)
	o.recordResult(r, res)
}

func (o *Orchestrator) validateTask(r *round) ValidateFunc {
	return func(ctx context.Context, t Task) models.ValidationResult {
		return o.validator.ValidateCandidate(ctx, t.Workspace, r.target, t.Candidate)
	}
}

func (o *Orchestrator) recordResult(r *round, res models.ValidationResult) {
	o.opts.metrics.ObserveResult(res)
	o.emit(RoundEvent{
		Type:        EventValidationCompleted,
		RoundID:     r.id,
		CandidateID: res.CandidateID,
		Status:      res.Status,
		Message:     res.Diagnostic,
		Duration:    res.Duration,
	})
}

// drifted reports whether the primary target changed since the round read
// it, and closes the round as drifted if so.
func (o *Orchestrator) drifted(r *round, w *DriftWatcher) bool {
	changed, why := w.Check()
	if !changed {
		return false
	}
	o.logger.Warn("round %s: %s changed during the round: %s", r.id, r.target, why)
	r.report.Outcome = models.OutcomeDrifted
	o.emit(RoundEvent{Type: EventDrift, RoundID: r.id, Message: why})
	return true
}

// cleanup destroys every workspace. It runs exactly once per round.
func (o *Orchestrator) cleanup(r *round) {
	destroyed := o.workspaces.DestroyAll()
	r.report.WorkspacesCreated = len(r.created)
	r.report.WorkspacesDestroyed = destroyed
	o.opts.metrics.WorkspacesRemoved(destroyed)

	if destroyed != len(r.created) {
		o.logger.Warn("round %s: created %d workspaces, destroyed %d", r.id, len(r.created), destroyed)
	}
	if o.opts.ledger != nil {
		for _, name := range r.created {
			if err := o.opts.ledger.MarkWorkspaceDestroyed(r.id, name); err != nil {
				o.logger.Warn("ledger: %v", err)
			}
		}
	}
	o.emit(RoundEvent{Type: EventCleanup, RoundID: r.id, Count: destroyed})
}

func (o *Orchestrator) recordStart(r *round, prompt string) {
	if o.opts.ledger == nil {
		return
	}
	err := o.opts.ledger.StartRound(&state.Round{
		ID:         r.id,
		TargetPath: r.target,
		Prompt:     prompt,
		PID:        os.Getpid(),
		StartedAt:  r.report.StartedAt,
	})
	if err != nil {
		o.logger.Warn("ledger: %v", err)
	}
}

func (o *Orchestrator) finish(r *round, err error) {
	report := r.report
	report.FinishedAt = o.opts.now()

	if o.opts.ledger != nil {
		winner := 0
		if report.Winner != nil {
			winner = report.Winner.CandidateID
		}
		if lerr := o.opts.ledger.FinishRound(r.id, state.StatusFromOutcome(report.Outcome), winner); lerr != nil {
			o.logger.Warn("ledger: %v", lerr)
		}
	}
	o.opts.metrics.ObserveRound(report)

	o.logger.Log("round %s: %s (%d results, %d/%d workspaces destroyed)",
		r.id, report.Outcome, len(report.Results), report.WorkspacesDestroyed, report.WorkspacesCreated)
	o.emit(RoundEvent{
		Type:     EventRoundDone,
		RoundID:  r.id,
		Outcome:  report.Outcome,
		Error:    err,
		Duration: report.FinishedAt.Sub(report.StartedAt),
	})
}

func (o *Orchestrator) emit(ev RoundEvent) {
	o.opts.events.Emit(ev)
}

func candidateByID(candidates []models.Candidate, id int) models.Candidate {
	for _, c := range candidates {
		if c.ID == id {
			return c
		}
	}
	return models.Candidate{}
}
