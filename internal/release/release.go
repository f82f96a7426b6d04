// Package release finalizes completed attempts once their release delay has
// elapsed: each eligible attempt is claimed exactly once and, on a passing
// score, the owner's stage counter is advanced. The trigger is an external
// periodic scheduler and may fire at-least-once; the conditional claim keeps
// the effect exactly-once per attempt.
package release

import (
	"context"
	"log"
	"time"

	"github.com/stagegate/stagegate/internal/exam"
)

type Clock func() time.Time

// Store is the persistence surface the processor needs. The claim in
// Release must be conditional on is_processed still being false and must
// report whether this call won it; claim and promotion are one atomic unit.
type Store interface {
	Eligible(ctx context.Context, now time.Time) ([]exam.Attempt, error)
	Release(ctx context.Context, attemptID, userID string, promote bool) (claimed bool, err error)
}

type Processor struct {
	Store Store
	Now   Clock
}

func New(store Store, now Clock) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{Store: store, Now: now}
}

// Run releases every currently eligible attempt and returns how many this
// invocation claimed. One attempt failing never blocks the rest; attempts
// claimed by a concurrent run are skipped silently.
func (p *Processor) Run(ctx context.Context) (int, error) {
	now := p.Now()
	attempts, err := p.Store.Eligible(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, a := range attempts {
		promote := a.Score != nil && *a.Score >= exam.PassMark
		claimed, err := p.Store.Release(ctx, a.ID, a.UserID, promote)
		if err != nil {
			log.Printf("release attempt %s failed: %v", a.ID, err)
			continue
		}
		if claimed {
			released++
		}
	}
	return released, nil
}
