package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/DougGuttenberg/halacha-helper/internal/cache"
	"github.com/DougGuttenberg/halacha-helper/internal/domain"
	"github.com/DougGuttenberg/halacha-helper/internal/llm"
)

const triageMaxTokens = 2048

// EvidenceRetriever is the slice of the retrieval subsystem the controller
// consumes.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, terms domain.SearchTerms) *domain.EvidenceSet
}

// AnswerSynthesizer turns retrieved evidence into a structured ruling.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, contextAnswers []domain.ContextAnswer, triage *domain.TriageResult, evidence *domain.EvidenceSet) (*domain.AnswerResult, map[string]domain.SourceText, error)
}

// Controller is the phase state machine behind POST /api/ask. Per request it
// decides whether to serve from cache, triage, ask the user for more input,
// or proceed to retrieval and reasoning, carrying an opaque session token
// across turns.
type Controller struct {
	completer llm.Completer
	retriever EvidenceRetriever
	synth     AnswerSynthesizer
	cache     *cache.ResponseCache
	tokens    *TokenCodec
	prompts   *llm.PromptTemplates
}

func NewController(completer llm.Completer, retriever EvidenceRetriever, synth AnswerSynthesizer, responseCache *cache.ResponseCache, tokens *TokenCodec, prompts *llm.PromptTemplates) *Controller {
	return &Controller{
		completer: completer,
		retriever: retriever,
		synth:     synth,
		cache:     responseCache,
		tokens:    tokens,
		prompts:   prompts,
	}
}

// Answer runs one turn of the pipeline. Transition order is a contract:
// cache, then triage with deferral checked before context and clarification
// (a question that must be deferred defers even if it would also need
// context), then retrieval, then reasoning.
func (c *Controller) Answer(ctx context.Context, req *domain.AskRequest) (*domain.AskResponse, error) {
	hasSession := req.SessionState != ""

	// The cached entry corresponds only to the no-context fast path, so it
	// is never consulted mid-session.
	if !hasSession {
		if hit := c.cache.Get(req.Question); hit != nil {
			slog.InfoContext(ctx, "cache hit", "question_key", cache.Normalize(req.Question))
			out := *hit
			out.FromCache = true
			return &out, nil
		}
	}

	var triage *domain.TriageResult
	if hasSession {
		state, err := c.tokens.Decode(req.SessionState)
		if err != nil {
			return nil, domain.NewValidationError("invalid session state")
		}
		if state.TriageComplete && state.Triage != nil {
			triage = state.Triage
		}
	}

	if triage == nil {
		triageStart := time.Now()
		t, err := c.triage(ctx, req.Question)
		if err != nil {
			return nil, err
		}
		triage = t
		slog.InfoContext(ctx, "triage done",
			"question_type", triage.QuestionType,
			"level", triage.Level,
			"needs_context", triage.NeedsContext,
			"must_defer", triage.MustDeferToRabbi,
			"triage_ms", time.Since(triageStart).Milliseconds(),
		)

		if triage.MustDeferToRabbi {
			return domain.DeferralResponse(triage), nil
		}
		if triage.NeedsContext && len(triage.ContextQuestions) > 0 {
			return c.followUp(domain.PhaseNeedsContext, triage)
		}
		if triage.IsAmbiguous && len(triage.Clarifications) > 0 {
			return c.followUp(domain.PhaseNeedsClarification, triage)
		}
	}

	retrieveStart := time.Now()
	evidence := c.retriever.Retrieve(ctx, triage.SearchTerms)
	slog.InfoContext(ctx, "retrieval done",
		"sources", evidence.TotalSources,
		"retrieve_ms", time.Since(retrieveStart).Milliseconds(),
	)

	// Reasoning is never invoked with an empty evidence set.
	if evidence.TotalSources == 0 {
		return domain.NoSourcesResponse(triage), nil
	}

	synthStart := time.Now()
	result, sourceTexts, err := c.synth.Synthesize(ctx, req.Question, req.Context, triage, evidence)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "answer synthesized",
		"can_answer", result.CanAnswer,
		"confidence", result.Confidence,
		"synthesize_ms", time.Since(synthStart).Milliseconds(),
	)

	resp := &domain.AskResponse{
		Phase:        domain.PhaseComplete,
		CanAnswer:    result.CanAnswer,
		Answer:       result.Answer,
		Ruling:       result.Ruling,
		Reasoning:    result.Reasoning,
		Sources:      result.Sources,
		Confidence:   result.Confidence,
		SourceTexts:  sourceTexts,
		Triage:       triage,
		SourcesFound: evidence.TotalSources,
	}

	// Cache only answers that depend on nothing but the bare question: an
	// answer shaped by user-supplied context must not be served to the next
	// caller asking the same words.
	if !req.HasContext() {
		c.cache.Set(req.Question, resp)
	}

	return resp, nil
}

// followUp emits a needs_context or needs_clarification payload together
// with a signed continuation token.
func (c *Controller) followUp(phase string, triage *domain.TriageResult) (*domain.AskResponse, error) {
	token, err := c.tokens.Encode(&domain.SessionState{
		TriageComplete:  true,
		ContextComplete: false,
		Triage:          triage,
	})
	if err != nil {
		return nil, domain.NewInternalError("encode session state", err)
	}
	resp := &domain.AskResponse{
		Phase:        phase,
		SessionState: token,
		Triage:       triage,
	}
	if phase == domain.PhaseNeedsContext {
		resp.ContextQuestions = triage.ContextQuestions
	} else {
		resp.Clarifications = triage.Clarifications
	}
	return resp, nil
}

func (c *Controller) triage(ctx context.Context, question string) (*domain.TriageResult, error) {
	userPrompt := llm.RenderTemplate(c.prompts.TriageUser, map[string]string{
		"question": question,
	})
	raw, err := c.completer.Complete(ctx, c.prompts.TriageSystem, userPrompt, triageMaxTokens)
	if err != nil {
		return nil, domain.NewUpstreamError("question triage failed", err)
	}
	var t domain.TriageResult
	if err := llm.ExtractJSON(raw, &t); err != nil {
		return nil, domain.NewParseError("triage response malformed", err)
	}
	return &t, nil
}
