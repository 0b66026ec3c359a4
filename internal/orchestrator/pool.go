package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// Task pairs a candidate with the workspace it is validated in.
type Task struct {
	Workspace models.Workspace
	Candidate models.Candidate
}

// ValidateFunc validates one task. It must tag the result with the
// candidate's ID.
type ValidateFunc func(ctx context.Context, t Task) models.ValidationResult

// Pool runs validation tasks on a bounded set of workers.
type Pool struct {
	validate   ValidateFunc
	maxWorkers int
	logger     *logging.Logger

	onStart  func(Task)
	onResult func(models.ValidationResult)
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the pool's debug logger.
func WithPoolLogger(l *logging.Logger) PoolOption {
	return func(p *Pool) { p.logger = l.With("pool") }
}

// OnTaskStart registers a callback invoked by a worker before each task.
func OnTaskStart(fn func(Task)) PoolOption {
	return func(p *Pool) { p.onStart = fn }
}

// OnResult registers a callback invoked as each result is collected, in
// completion order.
func OnResult(fn func(models.ValidationResult)) PoolOption {
	return func(p *Pool) { p.onResult = fn }
}

// NewPool creates a Pool. maxWorkers <= 0 means one worker per task.
func NewPool(validate ValidateFunc, maxWorkers int, opts ...PoolOption) *Pool {
	p := &Pool{
		validate:   validate,
		maxWorkers: maxWorkers,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns how many workers Run would start for n tasks.
func (p *Pool) Workers(n int) int {
	if p.maxWorkers > 0 && p.maxWorkers < n {
		return p.maxWorkers
	}
	return n
}

// Run validates every task and returns exactly one result per task, in
// completion order. Results are tagged with their candidate ID; callers must
// not assume index correspondence with tasks.
//
// A panic inside a task becomes that task's TestFailure and never reaches
// sibling tasks. Tasks not yet started when ctx is cancelled are reported
// as skipped; tasks already running are not interrupted.
func (p *Pool) Run(ctx context.Context, tasks []Task) []models.ValidationResult {
	if len(tasks) == 0 {
		return nil
	}

	queue := make(chan Task, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	results := make(chan models.ValidationResult, len(tasks))
	workers := p.Workers(len(tasks))
	p.logger.Log("dispatching %d tasks to %d workers", len(tasks), workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for t := range queue {
				results <- p.runTask(ctx, worker, t)
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]models.ValidationResult, 0, len(tasks))
	for res := range results {
		if p.onResult != nil {
			p.onResult(res)
		}
		out = append(out, res)
	}
	return out
}

// runTask validates one task, converting panics and skips into results.
func (p *Pool) runTask(ctx context.Context, worker int, t Task) (res models.ValidationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("worker %d: candidate %d panicked: %v\n%s", worker, t.Candidate.ID, r, debug.Stack())
			res = models.ValidationResult{
				CandidateID: t.Candidate.ID,
				Status:      models.StatusTestFailure,
				Diagnostic:  fmt.Sprintf("validation aborted: panic: %v", r),
				Duration:    time.Since(start),
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return models.ValidationResult{
			CandidateID: t.Candidate.ID,
			Status:      models.StatusTestFailure,
			Diagnostic:  fmt.Sprintf("validation skipped: %v", err),
		}
	}

	if p.onStart != nil {
		p.onStart(t)
	}
	p.logger.Log("worker %d: validating candidate %d in %s", worker, t.Candidate.ID, t.Workspace.Name)

	res = p.validate(ctx, t)
	res.CandidateID = t.Candidate.ID
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	p.logger.Log("worker %d: candidate %d %s in %s", worker, t.Candidate.ID, res.Status, res.Duration.Round(time.Millisecond))
	return res
}
