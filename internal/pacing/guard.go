package pacing

import (
	"github.com/pkg/errors"

	"KrakenDCA/internal/model"
)

// DefaultFailureLimit is the number of consecutive failed cycles tolerated
// before the first successful buy.
const DefaultFailureLimit = 3

// FailureGuard escalates persistent balance or price query failures. It only
// fires while no buy has ever succeeded: at that point the likely cause is a
// bad key or currency, not an outage.
type FailureGuard struct {
	Limit int
}

func (g FailureGuard) limit() int {
	if g.Limit <= 0 {
		return DefaultFailureLimit
	}
	return g.Limit
}

// RecordFailure counts a failed data query and returns ErrEscalated when the
// limit is reached before any buy succeeded.
func (g FailureGuard) RecordFailure(s *model.SessionState) error {
	s.ConsecutiveFailures++
	if s.HasEverBought {
		return nil
	}
	if s.ConsecutiveFailures >= g.limit() {
		return errors.Wrapf(ErrEscalated, "%d consecutive failures without a successful buy", s.ConsecutiveFailures)
	}
	return nil
}

// RecordSuccess resets the failure streak.
func (g FailureGuard) RecordSuccess(s *model.SessionState) {
	s.ConsecutiveFailures = 0
}

// RecordBuy marks the first successful buy, which disables escalation for
// the rest of the run.
func (g FailureGuard) RecordBuy(s *model.SessionState) {
	s.HasEverBought = true
}
