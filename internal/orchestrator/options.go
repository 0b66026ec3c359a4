package orchestrator

import (
	"time"

	"github.com/ShayCichocki/bakeoff/internal/confirm"
	"github.com/ShayCichocki/bakeoff/internal/generate"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/state"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// ProjectRoot is the primary project tree.
	ProjectRoot string
	// Source produces the round's candidates.
	Source generate.Source
	// Workspaces creates and destroys isolated workspaces.
	Workspaces WorkspaceManager
	// Validator validates one candidate in one workspace.
	Validator CandidateValidator
	// Confirmer gates every write to the primary tree.
	Confirmer confirm.Confirmer
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	maxWorkers int
	tieBreak   TieBreak
	logger     *logging.Logger
	ledger     state.RoundStore
	metrics    *Metrics
	events     *EventEmitter
	watchDrift bool
	newRoundID func() string
	now        func() time.Time
	candidates int
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		maxWorkers: 4,
		tieBreak:   TieBreakLowestID,
		logger:     logging.Nop(),
		watchDrift: true,
		now:        time.Now,
		candidates: 3,
	}
}

// WithMaxWorkers caps concurrent validations. n <= 0 means one worker per
// candidate.
func WithMaxWorkers(n int) Option {
	return func(o *orchestratorOptions) { o.maxWorkers = n }
}

// WithTieBreak sets how a winner is chosen among several successes.
func WithTieBreak(tb TieBreak) Option {
	return func(o *orchestratorOptions) { o.tieBreak = tb }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *orchestratorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLedger records rounds and their workspaces for crash recovery.
func WithLedger(s state.RoundStore) Option {
	return func(o *orchestratorOptions) { o.ledger = s }
}

// WithMetrics records round metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *orchestratorOptions) { o.metrics = m }
}

// WithEventEmitter publishes round events. The caller owns and closes it.
func WithEventEmitter(e *EventEmitter) Option {
	return func(o *orchestratorOptions) { o.events = e }
}

// WithDriftWatch toggles the filesystem watch on the primary target. The
// fingerprint check before apply always runs.
func WithDriftWatch(enabled bool) Option {
	return func(o *orchestratorOptions) { o.watchDrift = enabled }
}

// WithDefaultCandidates sets the candidate count used when a Request leaves
// Count at zero.
func WithDefaultCandidates(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.candidates = n
		}
	}
}

// WithRoundIDGenerator overrides round ID generation (mainly for testing).
func WithRoundIDGenerator(fn func() string) Option {
	return func(o *orchestratorOptions) { o.newRoundID = fn }
}

// WithClock overrides the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.now = now }
}
