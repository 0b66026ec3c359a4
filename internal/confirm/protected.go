package confirm

import (
	"context"

	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/protect"
)

// Protected refuses automatic approval of changes to protected areas. A
// human confirmer is still asked; an automatic one is overridden with "no".
type Protected struct {
	detector *protect.Detector
	next     Confirmer
	logger   *logging.Logger
	// OnRefused, if set, is called with the reason when a change is refused.
	OnRefused func(reason string)
}

// NewProtected wraps next with protected-area checks.
func NewProtected(detector *protect.Detector, next Confirmer, logger *logging.Logger) *Protected {
	return &Protected{detector: detector, next: next, logger: logger.With("confirm")}
}

// Confirm checks the winner's path and source before delegating.
func (p *Protected) Confirm(ctx context.Context, prop Proposal) (bool, error) {
	finding := p.detector.Check(prop.TargetPath, prop.Winner.Source)
	if finding.Protected {
		if auto, ok := p.next.(Automatic); ok && auto.Automatic() {
			p.logger.Warn("refusing automatic apply of %s: %s", prop.TargetPath, finding.Reason)
			if p.OnRefused != nil {
				p.OnRefused(finding.Reason)
			}
			return false, nil
		}
		p.logger.Log("%s is protected (%s), asking for explicit confirmation", prop.TargetPath, finding.Reason)
	}
	return p.next.Confirm(ctx, prop)
}

var _ Confirmer = (*Protected)(nil)
