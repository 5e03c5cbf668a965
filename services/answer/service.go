package answer

import (
	"context"
	"time"

	"github.com/upb/rag-answer-plane/internal/observability"
	"github.com/upb/rag-answer-plane/models"
	"github.com/upb/rag-answer-plane/services"
	"github.com/upb/rag-answer-plane/services/audit"
	"github.com/upb/rag-answer-plane/services/budget"
	"github.com/upb/rag-answer-plane/services/generation"
	"github.com/upb/rag-answer-plane/services/policy"
	"github.com/upb/rag-answer-plane/services/prompt"
	"github.com/upb/rag-answer-plane/services/scoring"
	"go.uber.org/zap"
)

// Config holds the read-only pipeline settings shared by all queries.
type Config struct {
	ConfidenceThreshold float64
	ConfidenceFloor     float64
	MaxTokensPerQuery   int
	MaxChunksInPrompt   int
	ChunkRelevanceFloor float64
	MinGenerationTokens int
	Weights             scoring.Weights
}

// Service orchestrates one query through scoring, the fallback policy,
// budget accounting, and the external generation provider. It holds no
// mutable state across queries: each Answer call builds its own budget
// tracker, so concurrent queries need no synchronization here.
type Service struct {
	cfg      Config
	scorer   *scoring.Scorer
	policy   *policy.Policy
	prompts  *prompt.Builder
	counter  prompt.TokenCounter
	provider generation.Provider
	auditSvc *audit.Service
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewService wires the pipeline. auditSvc and metrics may be nil.
func NewService(
	cfg Config,
	provider generation.Provider,
	counter prompt.TokenCounter,
	auditSvc *audit.Service,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg: cfg,
		scorer: scoring.NewScorer(scoring.Config{
			ChunkRelevanceFloor: cfg.ChunkRelevanceFloor,
			MaxChunksInPrompt:   cfg.MaxChunksInPrompt,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			Weights:             cfg.Weights,
		}),
		policy: policy.New(policy.Config{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			ConfidenceFloor:     cfg.ConfidenceFloor,
			MinGenerationTokens: cfg.MinGenerationTokens,
		}),
		prompts:  prompt.NewBuilder(counter, cfg.MaxChunksInPrompt),
		counter:  counter,
		provider: provider,
		auditSvc: auditSvc,
		metrics:  metrics,
		logger:   logger,
	}
}

// pipelineContext carries one query's state through the stages.
type pipelineContext struct {
	query      string
	chunks     []models.RetrievedChunk
	tracker    *budget.Tracker
	assessment scoring.Assessment
	decision   policy.Decision
	startTime  time.Time
}

// Answer runs the full decision pipeline for one query. Every failure mode
// except a contract violation resolves into a well-formed Answer: refusals,
// budget exhaustion, and provider outages all come back as fallback answers
// rather than errors.
func (s *Service) Answer(ctx context.Context, query string, chunks []models.RetrievedChunk) (*models.Answer, error) {
	if err := s.validateInput(query, chunks); err != nil {
		return nil, err
	}

	pctx := &pipelineContext{
		query:     query,
		chunks:    chunks,
		tracker:   budget.NewTracker(s.cfg.MaxTokensPerQuery),
		startTime: time.Now(),
	}

	// Retrieval already happened upstream; book its query-side cost so the
	// ledger reflects the whole lifecycle.
	pctx.tracker.Commit(budget.PhaseRetrieval, s.counter.Count(query))

	pctx.assessment = s.scorer.Score(chunks)

	if len(chunks) == 0 {
		pctx.decision = policy.DecisionRefuse
		return s.finish(ctx, pctx, s.refusal(pctx, models.FallbackEmptyRetrieval)), nil
	}

	pctx.decision = s.policy.Decide(pctx.assessment, pctx.tracker)
	if pctx.decision == policy.DecisionRefuse {
		reason := models.FallbackLowConfidence
		if pctx.assessment.Score >= s.cfg.ConfidenceFloor {
			reason = models.FallbackInsufficientBudget
		}
		return s.finish(ctx, pctx, s.refusal(pctx, reason)), nil
	}

	ans := s.generate(ctx, pctx)
	return s.finish(ctx, pctx, ans), nil
}

// validateInput enforces the caller contract. These are the only conditions
// that surface as errors instead of fallback answers.
func (s *Service) validateInput(query string, chunks []models.RetrievedChunk) error {
	if query == "" {
		return services.ErrEmptyQuery
	}
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return services.NewDomainError(services.ErrorTypeValidation, "malformed retrieved chunk", err)
		}
	}
	return nil
}

// generate assembles the prompt, funds it from the budget, and calls the
// provider. A failed reservation demotes the query to a refusal; a failed
// provider call degrades to a generation-unavailable answer.
func (s *Service) generate(ctx context.Context, pctx *pipelineContext) *models.Answer {
	tracker := pctx.tracker

	promptLimit := tracker.Remaining(budget.PhasePrompt) - s.cfg.MinGenerationTokens
	if promptLimit < 0 {
		promptLimit = 0
	}
	assembled := s.prompts.Build(pctx.query, pctx.chunks, promptLimit)

	if err := tracker.Reserve(budget.PhasePrompt, assembled.Tokens); err != nil {
		pctx.decision = policy.DecisionRefuse
		return s.refusal(pctx, models.FallbackInsufficientBudget)
	}

	genBudget := tracker.Remaining(budget.PhaseGeneration)
	if err := tracker.Reserve(budget.PhaseGeneration, genBudget); err != nil || genBudget < s.cfg.MinGenerationTokens {
		tracker.Release(budget.PhasePrompt)
		pctx.decision = policy.DecisionRefuse
		return s.refusal(pctx, models.FallbackInsufficientBudget)
	}

	result, err := s.provider.Complete(ctx, &generation.Request{
		System:    assembled.System,
		User:      assembled.User,
		MaxTokens: genBudget,
	})
	if err != nil {
		// Cancellation and timeouts land here too: the caller still gets a
		// complete Answer, flagged distinctly from low-confidence fallback.
		tracker.Release(budget.PhasePrompt)
		tracker.Release(budget.PhaseGeneration)
		s.logger.Warn("generation provider call failed",
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return s.refusal(pctx, models.FallbackGenerationUnavailable)
	}

	promptTokens, completionTokens := reconcileUsage(result.Usage, assembled.Tokens)
	tracker.Commit(budget.PhasePrompt, promptTokens)
	tracker.Commit(budget.PhaseGeneration, completionTokens)

	return &models.Answer{
		Text:       result.Text,
		Citations:  citationsFor(assembled.Included),
		Fallback:   pctx.decision == policy.DecisionCaveated,
		Reason:     caveatReason(pctx.decision),
		Confidence: pctx.assessment.Score,
		Usage: models.TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

// refusal builds the degraded Answer shared by every fallback path: empty
// text, no citations, and the confidence score that led here.
func (s *Service) refusal(pctx *pipelineContext, reason models.FallbackReason) *models.Answer {
	return &models.Answer{
		Text:       "",
		Citations:  []models.Citation{},
		Fallback:   true,
		Reason:     reason,
		Confidence: pctx.assessment.Score,
	}
}

// finish records observability for the completed query and returns the
// answer unchanged. Audit failures are logged, never propagated.
func (s *Service) finish(ctx context.Context, pctx *pipelineContext, ans *models.Answer) *models.Answer {
	elapsed := time.Since(pctx.startTime)

	s.metrics.RecordQuery(string(pctx.decision))
	s.metrics.RecordFallback(string(ans.Reason))
	for _, phase := range []budget.Phase{budget.PhaseRetrieval, budget.PhasePrompt, budget.PhaseGeneration} {
		s.metrics.RecordTokens(string(phase), pctx.tracker.Consumed(phase))
	}
	s.metrics.ObserveAnswerLatency(elapsed.Seconds())

	s.logger.Info("query answered",
		zap.String("decision", string(pctx.decision)),
		zap.String("reason", string(ans.Reason)),
		zap.Float64("confidence", ans.Confidence),
		zap.Int("chunks", len(pctx.chunks)),
		zap.Int("total_tokens", ans.Usage.TotalTokens),
		zap.Duration("elapsed", elapsed))

	if s.auditSvc != nil {
		if err := s.auditSvc.LogQuery(ctx, audit.Record{
			Query:            pctx.query,
			Decision:         string(pctx.decision),
			Reason:           ans.Reason,
			Confidence:       ans.Confidence,
			PromptTokens:     ans.Usage.PromptTokens,
			CompletionTokens: ans.Usage.CompletionTokens,
			LatencyMs:        int(elapsed.Milliseconds()),
		}); err != nil {
			s.logger.Error("failed to log audit record", zap.Error(err))
		}
	}

	return ans
}

// reconcileUsage prefers the provider's reported usage, falling back to the
// prompt builder's estimate when the provider reported nothing.
func reconcileUsage(usage generation.Usage, promptEstimate int) (promptTokens, completionTokens int) {
	promptTokens = usage.PromptTokens
	if promptTokens == 0 {
		promptTokens = promptEstimate
	}
	return promptTokens, usage.CompletionTokens
}

func citationsFor(included []models.RetrievedChunk) []models.Citation {
	citations := make([]models.Citation, 0, len(included))
	seen := make(map[string]struct{}, len(included))
	for _, c := range included {
		if _, dup := seen[c.Source]; dup {
			continue
		}
		seen[c.Source] = struct{}{}
		citations = append(citations, models.Citation{Source: c.Source, Rank: c.Rank})
	}
	return citations
}

func caveatReason(decision policy.Decision) models.FallbackReason {
	if decision == policy.DecisionCaveated {
		return models.FallbackLowConfidence
	}
	return models.FallbackNone
}
