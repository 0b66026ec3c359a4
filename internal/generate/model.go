package generate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ShayCichocki/bakeoff/internal/api"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// DefaultTemperature keeps candidates from collapsing onto one answer.
const DefaultTemperature = 0.8

// ModelSource asks a language model for each candidate independently.
type ModelSource struct {
	completer   api.Completer
	concurrency int
	limiter     *rate.Limiter
	temperature float64
	logger      *logging.Logger
}

// ModelOption configures a ModelSource.
type ModelOption func(*ModelSource)

// WithConcurrency bounds in-flight requests.
func WithConcurrency(n int) ModelOption {
	return func(s *ModelSource) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRateLimit caps request starts per second. Zero disables the limit.
func WithRateLimit(perSecond float64) ModelOption {
	return func(s *ModelSource) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ModelOption {
	return func(s *ModelSource) { s.temperature = t }
}

// WithModelLogger sets the debug logger.
func WithModelLogger(l *logging.Logger) ModelOption {
	return func(s *ModelSource) { s.logger = l.With("generate") }
}

// NewModelSource creates a source backed by completer.
func NewModelSource(completer api.Completer, opts ...ModelOption) *ModelSource {
	s := &ModelSource{
		completer:   completer,
		concurrency: 4,
		temperature: DefaultTemperature,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate sends req.Count independent requests. Replies without a code
// block are discarded; the rest are numbered in request order. It fails with
// ErrNoCandidates only when nothing usable came back.
func (s *ModelSource) Generate(ctx context.Context, req Request) ([]models.Candidate, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}

	system := SystemPrompt(req)
	replies := make([]Response, count)
	failures := make([]error, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					failures[i] = err
					return nil
				}
			}
			text, err := s.completer.Complete(gctx, api.CompletionRequest{
				System:      system,
				Prompt:      req.Prompt,
				Temperature: s.temperature,
			})
			if err != nil {
				failures[i] = err
				s.logger.Warn("request %d/%d failed: %v", i+1, count, err)
				return nil
			}
			replies[i] = ParseResponse(text)
			if replies[i].Code == "" {
				failures[i] = fmt.Errorf("reply %d has no code block", i+1)
				s.logger.Log("request %d/%d: no code block, discarded", i+1, count)
			}
			return nil
		})
	}
	_ = g.Wait()

	var candidates []models.Candidate
	for _, r := range replies {
		if r.Code == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Source:    r.Code,
			Test:      r.Test,
			Rationale: r.Thought,
		})
	}
	if len(candidates) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNoCandidates, errors.Join(failures...))
	}

	s.logger.Log("%d/%d replies usable from %s", len(candidates), count, s.completer.Model())
	return Number(candidates), nil
}

var _ Source = (*ModelSource)(nil)
