package policy

import (
	"github.com/upb/rag-answer-plane/services/budget"
	"github.com/upb/rag-answer-plane/services/scoring"
)

// Decision is the three-way outcome of the fallback policy.
type Decision string

const (
	// DecisionDirect answers normally.
	DecisionDirect Decision = "direct_answer"

	// DecisionCaveated answers but flags the result as low-confidence.
	DecisionCaveated Decision = "caveated_answer"

	// DecisionRefuse declines to answer; the generation service is never
	// called for a refused query.
	DecisionRefuse Decision = "refuse"
)

// Config holds the read-only decision boundaries.
type Config struct {
	// ConfidenceThreshold separates direct from caveated answers.
	ConfidenceThreshold float64

	// ConfidenceFloor is the hard floor below which the policy refuses.
	ConfidenceFloor float64

	// MinGenerationTokens is the smallest generation worth attempting. A
	// budget that cannot fund this much forces a refusal.
	MinGenerationTokens int
}

// Policy turns a confidence assessment and budget state into a decision.
// Decide is a pure function of (score, remaining budget): no hidden state,
// no history, every query judged on its own.
type Policy struct {
	cfg Config
}

// New creates a policy from immutable configuration.
func New(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// Decide maps the assessment and budget onto the three-way outcome.
func (p *Policy) Decide(assessment scoring.Assessment, tracker *budget.Tracker) Decision {
	if assessment.Score < p.cfg.ConfidenceFloor {
		return DecisionRefuse
	}
	if tracker.Remaining(budget.PhaseGeneration) < p.cfg.MinGenerationTokens {
		return DecisionRefuse
	}
	if assessment.Score < p.cfg.ConfidenceThreshold {
		return DecisionCaveated
	}
	return DecisionDirect
}
