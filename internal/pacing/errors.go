package pacing

import "github.com/pkg/errors"

var (
	// ErrPriceUnavailable means the asset price was zero, negative or missing,
	// so the next order time was left unchanged.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrScheduleInconsistency means the depletion deadline had already passed
	// and the pacing interval was clamped to zero.
	ErrScheduleInconsistency = errors.New("schedule inconsistency")
	// ErrEscalated ends the process: data queries kept failing before any buy
	// ever succeeded.
	ErrEscalated = errors.New("too many failed API calls")
)
