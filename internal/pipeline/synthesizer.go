package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/DougGuttenberg/halacha-helper/internal/domain"
	"github.com/DougGuttenberg/halacha-helper/internal/llm"
)

const (
	answerMaxTokens = 8192
	// excerptLen bounds each text excerpt embedded in the reasoning prompt.
	// The full (already 1500-capped) texts still travel back to the client
	// in sourceTexts.
	excerptLen = 500
)

// Synthesizer builds the single reasoning call from the question, the
// accumulated context answers, the triage, and the ranked evidence, then
// post-processes the structured result.
type Synthesizer struct {
	completer llm.Completer
	prompts   *llm.PromptTemplates
}

func NewSynthesizer(completer llm.Completer, prompts *llm.PromptTemplates) *Synthesizer {
	return &Synthesizer{completer: completer, prompts: prompts}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, contextAnswers []domain.ContextAnswer, triage *domain.TriageResult, evidence *domain.EvidenceSet) (*domain.AnswerResult, map[string]domain.SourceText, error) {
	userPrompt := llm.RenderTemplate(s.prompts.AnswerUser, map[string]string{
		"question":        question,
		"triage_summary":  triageSummary(triage),
		"context_answers": renderContextAnswers(contextAnswers),
		"sources":         renderSources(evidence.Sources),
	})

	raw, err := s.completer.Complete(ctx, s.prompts.AnswerSystem, userPrompt, answerMaxTokens)
	if err != nil {
		return nil, nil, domain.NewUpstreamError("answer generation failed", err)
	}

	var result domain.AnswerResult
	if err := llm.ExtractJSON(raw, &result); err != nil {
		return nil, nil, domain.NewParseError("answer response malformed", err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 100 {
		result.Confidence = 100
	}

	// Attach verbatim texts for every evidence document, cited or not, so
	// the client can render the full evidence set.
	sourceTexts := make(map[string]domain.SourceText, len(evidence.Sources))
	for _, d := range evidence.Sources {
		sourceTexts[d.Ref] = domain.SourceText{
			Ref:         d.Ref,
			HebrewText:  d.HebrewText,
			EnglishText: d.EnglishText,
			Found:       true,
		}
	}

	return &result, sourceTexts, nil
}

// triageSummary renders a compact provenance line for the reasoning prompt.
func triageSummary(t *domain.TriageResult) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s | Level: %s", t.QuestionType, t.Level)
	if t.Domain.Name != "" {
		fmt.Fprintf(&b, " | Domain: %s", t.Domain.Name)
		if t.Domain.Section != "" {
			fmt.Fprintf(&b, " (%s)", t.Domain.Section)
		}
	}
	if t.InitialAssessment != "" {
		fmt.Fprintf(&b, "\nInitial assessment: %s", t.InitialAssessment)
	}
	return b.String()
}

func renderContextAnswers(answers []domain.ContextAnswer) string {
	if len(answers) == 0 {
		return "(none provided)"
	}
	var b strings.Builder
	for _, a := range answers {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", a.Question, a.Answer)
	}
	return strings.TrimSpace(b.String())
}

// renderSources embeds every evidence document in ranked order: ref,
// category, and the first excerptLen runes of each text. Only retrieved
// evidence goes into the prompt.
func renderSources(docs []domain.Document) string {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "### Source %d: %s (%s)\n", i+1, d.Ref, d.Category)
		if d.HebrewText != "" {
			fmt.Fprintf(&b, "Hebrew: %s\n", excerpt(d.HebrewText))
		}
		if d.EnglishText != "" {
			fmt.Fprintf(&b, "English: %s\n", excerpt(d.EnglishText))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "..."
}
