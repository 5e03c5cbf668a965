package budget

import (
	"errors"
	"fmt"
)

// Phase identifies which stage of a query's lifecycle is drawing tokens.
type Phase string

const (
	PhaseRetrieval  Phase = "retrieval"
	PhasePrompt     Phase = "prompt"
	PhaseGeneration Phase = "generation"
)

// ErrInsufficientBudget signals that a reservation would drive consumption
// past the configured ceiling. Callers shrink the request or fall back; they
// never treat this as fatal.
var ErrInsufficientBudget = errors.New("insufficient token budget")

// Tracker is a per-query token ledger over a single shared ceiling. Phases
// reserve an estimate before calling an external service and commit the
// actual usage afterwards; the difference is reconciled against the pool.
//
// A Tracker belongs to exactly one query, so it needs no locking. Counters
// only move the pool downward; a fresh query gets a fresh Tracker.
type Tracker struct {
	ceiling  int
	reserved map[Phase]int
	consumed map[Phase]int
}

// NewTracker creates a tracker with maxTokensPerQuery tokens available
// across all phases.
func NewTracker(maxTokensPerQuery int) *Tracker {
	if maxTokensPerQuery < 0 {
		maxTokensPerQuery = 0
	}
	return &Tracker{
		ceiling:  maxTokensPerQuery,
		reserved: make(map[Phase]int),
		consumed: make(map[Phase]int),
	}
}

// Reserve sets aside estimate tokens for the given phase. It fails with
// ErrInsufficientBudget when the reservation would exceed the ceiling,
// leaving the ledger untouched.
func (t *Tracker) Reserve(phase Phase, estimate int) error {
	if estimate < 0 {
		return fmt.Errorf("phase %s: negative token estimate %d", phase, estimate)
	}
	if t.totalConsumed()+t.totalReserved()+estimate > t.ceiling {
		return fmt.Errorf("phase %s: reserving %d with %d remaining: %w",
			phase, estimate, t.Remaining(phase), ErrInsufficientBudget)
	}
	t.reserved[phase] += estimate
	return nil
}

// Commit replaces the phase's outstanding reservation with the actual token
// usage reported by the external service. Actual usage above the estimate is
// still recorded; Remaining clamps at zero rather than going negative.
func (t *Tracker) Commit(phase Phase, actual int) {
	if actual < 0 {
		actual = 0
	}
	delete(t.reserved, phase)
	t.consumed[phase] += actual
}

// Release drops the phase's outstanding reservation without consuming
// anything, e.g. when the reserved external call never reported usage.
func (t *Tracker) Release(phase Phase) {
	delete(t.reserved, phase)
}

// Remaining reports how many tokens the given phase could still reserve.
// All phases draw from the shared pool, so this is the pool headroom. The
// result never exceeds the ceiling and never goes negative.
func (t *Tracker) Remaining(Phase) int {
	left := t.ceiling - t.totalConsumed() - t.totalReserved()
	if left < 0 {
		return 0
	}
	return left
}

// Consumed returns the tokens committed so far for one phase.
func (t *Tracker) Consumed(phase Phase) int {
	return t.consumed[phase]
}

// Ceiling returns the configured per-query token ceiling.
func (t *Tracker) Ceiling() int {
	return t.ceiling
}

func (t *Tracker) totalConsumed() int {
	var n int
	for _, v := range t.consumed {
		n += v
	}
	return n
}

func (t *Tracker) totalReserved() int {
	var n int
	for _, v := range t.reserved {
		n += v
	}
	return n
}
