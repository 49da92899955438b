package domain

// Phase tags distinguishing the payloads returned by POST /api/ask.
const (
	PhaseComplete           = "complete"
	PhaseNeedsContext       = "needs_context"
	PhaseNeedsClarification = "needs_clarification"
)

// Ruling is the structured halachic conclusion inside an answer.
type Ruling struct {
	Summary   string `json:"summary"`
	Basis     string `json:"basis,omitempty"`
	Level     string `json:"level,omitempty"`
	Certainty string `json:"certainty,omitempty"`
}

// ReasoningStep traces one source's contribution to the ruling.
type ReasoningStep struct {
	Source      string `json:"source"`
	Explanation string `json:"explanation"`
}

// SourceText carries the verbatim texts of one cited document so the client
// can render full evidence regardless of what the model quoted.
type SourceText struct {
	Ref         string `json:"ref"`
	HebrewText  string `json:"hebrewText"`
	EnglishText string `json:"englishText"`
	Found       bool   `json:"found"`
}

// AnswerResult is the structured output of the reasoning call.
type AnswerResult struct {
	CanAnswer  bool            `json:"canAnswer"`
	Answer     string          `json:"answer"`
	Ruling     *Ruling         `json:"ruling,omitempty"`
	Reasoning  []ReasoningStep `json:"reasoning,omitempty"`
	Sources    []string        `json:"sources,omitempty"`
	Confidence int             `json:"confidence"`
}

// AskResponse is the JSON response for POST /api/ask, tagged by Phase.
type AskResponse struct {
	Phase            string                `json:"phase"`
	CanAnswer        bool                  `json:"canAnswer"`
	Answer           string                `json:"answer,omitempty"`
	Ruling           *Ruling               `json:"ruling,omitempty"`
	Reasoning        []ReasoningStep       `json:"reasoning,omitempty"`
	Sources          []string              `json:"sources,omitempty"`
	Confidence       int                   `json:"confidence,omitempty"`
	SourceTexts      map[string]SourceText `json:"sourceTexts,omitempty"`
	Message          string                `json:"message,omitempty"`
	NoSourcesFound   bool                  `json:"noSourcesFound,omitempty"`
	ContextQuestions []ContextQuestion     `json:"contextQuestions,omitempty"`
	Clarifications   []string              `json:"clarifications,omitempty"`
	SessionState     string                `json:"sessionState,omitempty"`
	Triage           *TriageResult         `json:"triage,omitempty"`
	SourcesFound     int                   `json:"sourcesFound,omitempty"`
	FromCache        bool                  `json:"fromCache,omitempty"`
}

const defaultDeferMessage = "This question should be discussed with your rav, who can weigh the personal circumstances involved."

// DeferralResponse is the terminal payload for a question triage marked as
// requiring a human posek.
func DeferralResponse(triage *TriageResult) *AskResponse {
	msg := defaultDeferMessage
	if triage != nil && triage.DeferReason != "" {
		msg = triage.DeferReason
	}
	return &AskResponse{
		Phase:     PhaseComplete,
		CanAnswer: false,
		Message:   msg,
		Triage:    triage,
	}
}

// NoSourcesResponse is the graceful outcome when retrieval found nothing.
func NoSourcesResponse(triage *TriageResult) *AskResponse {
	return &AskResponse{
		Phase:          PhaseComplete,
		CanAnswer:      false,
		NoSourcesFound: true,
		Message:        "No sources were found for this question. Please consult your rav.",
		Triage:         triage,
	}
}

// ErrorResponse is used for non-200 error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
