package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DougGuttenberg/halacha-helper/internal/cache"
	"github.com/DougGuttenberg/halacha-helper/internal/domain"
)

// --- Mocks ---

type mockRetriever struct {
	calls     int
	lastTerms domain.SearchTerms
	set       *domain.EvidenceSet
}

func (m *mockRetriever) Retrieve(_ context.Context, terms domain.SearchTerms) *domain.EvidenceSet {
	m.calls++
	m.lastTerms = terms
	if m.set != nil {
		return m.set
	}
	return &domain.EvidenceSet{Sources: []domain.Document{}}
}

type mockSynth struct {
	calls       int
	lastContext []domain.ContextAnswer
	result      *domain.AnswerResult
	err         error
}

func (m *mockSynth) Synthesize(_ context.Context, _ string, contextAnswers []domain.ContextAnswer, _ *domain.TriageResult, evidence *domain.EvidenceSet) (*domain.AnswerResult, map[string]domain.SourceText, error) {
	m.calls++
	m.lastContext = contextAnswers
	if m.err != nil {
		return nil, nil, m.err
	}
	texts := make(map[string]domain.SourceText, len(evidence.Sources))
	for _, d := range evidence.Sources {
		texts[d.Ref] = domain.SourceText{Ref: d.Ref, HebrewText: d.HebrewText, EnglishText: d.EnglishText, Found: true}
	}
	return m.result, texts, nil
}

func triageJSON(t *testing.T, triage domain.TriageResult) string {
	t.Helper()
	b, err := json.Marshal(triage)
	require.NoError(t, err)
	return string(b)
}

func plainTriage() domain.TriageResult {
	return domain.TriageResult{
		QuestionType: domain.QuestionTypeDin,
		Level:        domain.LevelDRabbanan,
		SearchTerms: domain.SearchTerms{
			Hebrew:  []string{"בשר בחלב"},
			English: []string{"waiting between meat and milk"},
		},
	}
}

func goodEvidence() *domain.EvidenceSet {
	return &domain.EvidenceSet{
		Success:      true,
		TotalSources: 1,
		Sources: []domain.Document{
			{Ref: "Shulchan Arukh, Yoreh De'ah 89:1", Category: "Shulchan Arukh", Priority: 1, HebrewText: "אכל בשר", EnglishText: "One who ate meat"},
		},
	}
}

func goodAnswer() *domain.AnswerResult {
	return &domain.AnswerResult{
		CanAnswer:  true,
		Answer:     "One must wait before eating dairy.",
		Confidence: 85,
		Sources:    []string{"Shulchan Arukh, Yoreh De'ah 89:1"},
	}
}

type controllerFixture struct {
	completer *mockCompleter
	retriever *mockRetriever
	synth     *mockSynth
	cache     *cache.ResponseCache
	ctrl      *Controller
}

func newFixture(triageResponse string) *controllerFixture {
	f := &controllerFixture{
		completer: &mockCompleter{response: triageResponse},
		retriever: &mockRetriever{set: goodEvidence()},
		synth:     &mockSynth{result: goodAnswer()},
		cache:     cache.New(0, 0, nil),
	}
	f.ctrl = NewController(f.completer, f.retriever, f.synth, f.cache, NewTokenCodec("test-secret"), testPrompts())
	return f
}

// --- Tests ---

func TestAnswer_FullPipeline(t *testing.T) {
	f := newFixture(triageJSON(t, plainTriage()))

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "Can I eat dairy right after chicken?"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseComplete, resp.Phase)
	assert.True(t, resp.CanAnswer)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, 1, resp.SourcesFound)
	assert.False(t, resp.FromCache)
	require.NotNil(t, resp.Triage)
	assert.Equal(t, domain.QuestionTypeDin, resp.Triage.QuestionType)
	require.Contains(t, resp.SourceTexts, "Shulchan Arukh, Yoreh De'ah 89:1")

	assert.Equal(t, []string{"בשר בחלב"}, f.retriever.lastTerms.Hebrew)
}

func TestAnswer_SecondCallServedFromCache(t *testing.T) {
	f := newFixture(triageJSON(t, plainTriage()))

	_, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "Can I eat dairy right after chicken?"})
	require.NoError(t, err)

	upstreamCalls := f.completer.calls
	retrieverCalls := f.retriever.calls

	// Case/punctuation variant of the same question, no session token.
	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "can i eat DAIRY right after chicken"})
	require.NoError(t, err)

	assert.True(t, resp.FromCache)
	assert.Equal(t, domain.PhaseComplete, resp.Phase)
	assert.Equal(t, upstreamCalls, f.completer.calls, "no upstream call on cache hit")
	assert.Equal(t, retrieverCalls, f.retriever.calls, "no retrieval on cache hit")
}

func TestAnswer_DeferralShortCircuits(t *testing.T) {
	triage := plainTriage()
	triage.MustDeferToRabbi = true
	triage.DeferReason = "This depends on personal health circumstances."
	// Deferral wins even when the triage would also ask for context.
	triage.NeedsContext = true
	triage.ContextQuestions = []domain.ContextQuestion{{Question: "How ill are you?"}}

	f := newFixture(triageJSON(t, triage))

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "May I fast on Yom Kippur while sick?"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseComplete, resp.Phase)
	assert.False(t, resp.CanAnswer)
	assert.Equal(t, "This depends on personal health circumstances.", resp.Message)
	assert.Empty(t, resp.ContextQuestions)
	assert.Equal(t, 0, f.retriever.calls, "deferral must not trigger retrieval")
	assert.Equal(t, 0, f.synth.calls, "deferral must not trigger reasoning")
}

func TestAnswer_NeedsContextEmitsSession(t *testing.T) {
	triage := plainTriage()
	triage.NeedsContext = true
	triage.ContextQuestions = []domain.ContextQuestion{
		{Question: "Do you follow Ashkenazi or Sephardi practice?", Options: []string{"Ashkenazi", "Sephardi"}},
	}

	f := newFixture(triageJSON(t, triage))

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "How long do I wait after meat?"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseNeedsContext, resp.Phase)
	require.Len(t, resp.ContextQuestions, 1)
	require.NotEmpty(t, resp.SessionState)
	assert.Equal(t, 0, f.retriever.calls)

	state, err := NewTokenCodec("test-secret").Decode(resp.SessionState)
	require.NoError(t, err)
	assert.True(t, state.TriageComplete)
	assert.False(t, state.ContextComplete)
	require.NotNil(t, state.Triage)
}

func TestAnswer_NeedsClarification(t *testing.T) {
	triage := plainTriage()
	triage.IsAmbiguous = true
	triage.Clarifications = []string{"Do you mean poultry or red meat?"}

	f := newFixture(triageJSON(t, triage))

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "How long after meat?"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseNeedsClarification, resp.Phase)
	assert.Equal(t, []string{"Do you mean poultry or red meat?"}, resp.Clarifications)
	assert.NotEmpty(t, resp.SessionState)
	assert.Equal(t, 0, f.retriever.calls)
}

func TestAnswer_ResumeWithSessionSkipsTriage(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	triage := plainTriage()
	token, err := codec.Encode(&domain.SessionState{TriageComplete: true, Triage: &triage})
	require.NoError(t, err)

	f := newFixture("not called")

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{
		Question:     "How long do I wait after meat?",
		SessionState: token,
		Context: []domain.ContextAnswer{
			{Question: "Practice?", Answer: "Ashkenazi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseComplete, resp.Phase)
	assert.Equal(t, 0, f.completer.calls, "triage must not rerun on resume")
	assert.Equal(t, 1, f.retriever.calls)
	assert.Equal(t, []string{"בשר בחלב"}, f.retriever.lastTerms.Hebrew)
	require.Len(t, f.synth.lastContext, 1)
	assert.Equal(t, "Ashkenazi", f.synth.lastContext[0].Answer)
}

func TestAnswer_ContextualAnswerNotCached(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	triage := plainTriage()
	token, err := codec.Encode(&domain.SessionState{TriageComplete: true, Triage: &triage})
	require.NoError(t, err)

	f := newFixture(triageJSON(t, plainTriage()))

	_, err = f.ctrl.Answer(context.Background(), &domain.AskRequest{
		Question:     "How long do I wait after meat?",
		SessionState: token,
		Context:      []domain.ContextAnswer{{Question: "Practice?", Answer: "Ashkenazi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.cache.Len(), "context-dependent answer must not land in the bare-question cache")
}

func TestAnswer_ResumeWithoutContextIsCached(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	triage := plainTriage()
	token, err := codec.Encode(&domain.SessionState{TriageComplete: true, Triage: &triage})
	require.NoError(t, err)

	f := newFixture("not called")

	_, err = f.ctrl.Answer(context.Background(), &domain.AskRequest{
		Question:     "How long do I wait after meat?",
		SessionState: token,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.cache.Len())
}

func TestAnswer_CacheSkippedWithSessionToken(t *testing.T) {
	f := newFixture(triageJSON(t, plainTriage()))

	// Prime the cache.
	_, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "How long do I wait after meat?"})
	require.NoError(t, err)

	codec := NewTokenCodec("test-secret")
	triage := plainTriage()
	token, err := codec.Encode(&domain.SessionState{TriageComplete: true, Triage: &triage})
	require.NoError(t, err)

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{
		Question:     "How long do I wait after meat?",
		SessionState: token,
	})
	require.NoError(t, err)

	assert.False(t, resp.FromCache, "in-flight session must bypass the cache")
	assert.Equal(t, 2, f.retriever.calls)
}

func TestAnswer_NoEvidenceGracefulExit(t *testing.T) {
	f := newFixture(triageJSON(t, plainTriage()))
	f.retriever.set = &domain.EvidenceSet{Sources: []domain.Document{}}

	resp, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "obscure question"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseComplete, resp.Phase)
	assert.False(t, resp.CanAnswer)
	assert.True(t, resp.NoSourcesFound)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, 0, f.synth.calls, "reasoning is never invoked with an empty evidence set")
}

func TestAnswer_TriageUpstreamError(t *testing.T) {
	f := newFixture("")
	f.completer.err = errors.New("unavailable")

	_, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "q"})
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrCatUpstream, appErr.Category)
	assert.Equal(t, 0, f.cache.Len(), "no partial state cached on failure")
}

func TestAnswer_TriageParseError(t *testing.T) {
	f := newFixture("the model rambled and returned no JSON")

	_, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{Question: "q"})
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrCatParse, appErr.Category)
}

func TestAnswer_InvalidSessionToken(t *testing.T) {
	f := newFixture("not called")

	_, err := f.ctrl.Answer(context.Background(), &domain.AskRequest{
		Question:     "q",
		SessionState: "forged.token",
	})
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrCatValidation, appErr.Category)
	assert.Equal(t, 0, f.completer.calls)
	assert.Equal(t, 0, f.retriever.calls)
}
