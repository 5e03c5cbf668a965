package scoring

import (
	"github.com/upb/rag-answer-plane/models"
)

// Weights controls the blend of the confidence signals. TopRelevance and
// Coverage are blend shares; Dispersion is the strength of the outlier
// penalty applied on top. The exact values are a tunable heuristic, not
// fixed semantics; a learned confidence model could replace them behind the
// same Assessment shape.
type Weights struct {
	TopRelevance float64
	Coverage     float64
	Dispersion   float64
}

// DefaultWeights returns the blend used when configuration supplies none.
func DefaultWeights() Weights {
	return Weights{TopRelevance: 0.6, Coverage: 0.4, Dispersion: 0.2}
}

// Config holds the read-only scorer settings shared by all queries.
type Config struct {
	// ChunkRelevanceFloor is the per-chunk score below which a chunk does
	// not count toward coverage.
	ChunkRelevanceFloor float64

	// MaxChunksInPrompt normalizes coverage: a retrieval that fills the
	// prompt with strong chunks scores full coverage.
	MaxChunksInPrompt int

	// ConfidenceThreshold is recorded on every assessment so downstream
	// consumers see which boundary the score was judged against.
	ConfidenceThreshold float64

	Weights Weights
}

// Assessment is the scorer's verdict on one retrieved context set.
type Assessment struct {
	// Score is the aggregate confidence in [0,1].
	Score float64

	// ContributingChunks counts chunks at or above the relevance floor.
	ContributingChunks int

	// Threshold is the configured confidence threshold in effect.
	Threshold float64
}

// Scorer assigns a confidence score to a retrieved context set. It is
// deterministic and side-effect-free: the same chunk sequence always
// produces the same assessment.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer from immutable configuration.
func NewScorer(cfg Config) *Scorer {
	if cfg.MaxChunksInPrompt <= 0 {
		cfg.MaxChunksInPrompt = 1
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Scorer{cfg: cfg}
}

// Score aggregates three signals over the ranked chunk set:
//
//   - top-chunk relevance: how strong the best match is
//   - coverage: how many chunks clear the relevance floor, relative to how
//     many the prompt could hold
//   - dispersion: how far the top chunk sits above the mean, penalizing a
//     single outlier dominating an otherwise weak set
//
// An empty chunk sequence scores zero; the caller routes that through the
// empty-retrieval fallback path.
func (s *Scorer) Score(chunks []models.RetrievedChunk) Assessment {
	if len(chunks) == 0 {
		return Assessment{Score: 0, ContributingChunks: 0, Threshold: s.cfg.ConfidenceThreshold}
	}

	var top, sum float64
	contributing := 0
	for _, c := range chunks {
		if c.Score > top {
			top = c.Score
		}
		sum += c.Score
		if c.Score >= s.cfg.ChunkRelevanceFloor {
			contributing++
		}
	}
	mean := sum / float64(len(chunks))

	coverage := float64(contributing) / float64(s.cfg.MaxChunksInPrompt)
	if coverage > 1 {
		coverage = 1
	}

	// top - mean is 0 for a uniform set and approaches 1 when one strong
	// chunk carries a pile of weak ones; the penalty scales the blended
	// score down accordingly.
	w := s.cfg.Weights
	base := w.TopRelevance*top + w.Coverage*coverage
	score := base * (1 - w.Dispersion*(top-mean))

	return Assessment{
		Score:              clamp01(score),
		ContributingChunks: contributing,
		Threshold:          s.cfg.ConfidenceThreshold,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
