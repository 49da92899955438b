package domain

// Question types assigned during triage.
const (
	QuestionTypeDin       = "din"
	QuestionTypeMinhag    = "minhag"
	QuestionTypeHashkafa  = "hashkafa"
	QuestionTypePractical = "practical"
)

// Halachic levels assigned during triage.
const (
	LevelDOraita   = "d_oraita"
	LevelDRabbanan = "d_rabbanan"
	LevelMinhag    = "minhag"
	LevelUncertain = "uncertain"
)

// TriageResult is the structured classification of a question, produced once
// by the completion primitive and carried unchanged through subsequent turns
// inside the session state.
type TriageResult struct {
	QuestionType      string            `json:"questionType"`
	Level             string            `json:"level"`
	Domain            TriageDomain      `json:"domain"`
	NeedsContext      bool              `json:"needsContext"`
	ContextQuestions  []ContextQuestion `json:"contextQuestions,omitempty"`
	IsAmbiguous       bool              `json:"isAmbiguous"`
	Clarifications    []string          `json:"clarifications,omitempty"`
	MustDeferToRabbi  bool              `json:"mustDeferToRabbi"`
	DeferReason       string            `json:"deferReason,omitempty"`
	SearchTerms       SearchTerms       `json:"searchTerms"`
	InitialAssessment string            `json:"initialAssessment,omitempty"`
}

// TriageDomain names the halachic area a question falls under, with the
// Shulchan Arukh section it maps to.
type TriageDomain struct {
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
}

// ContextQuestion is a follow-up the user must answer before the question
// can be researched.
type ContextQuestion struct {
	Question string   `json:"question"`
	Why      string   `json:"why,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// SearchTerms are the retrieval inputs produced by triage. SefariaRefs are
// exact citations to fetch directly, not via search.
type SearchTerms struct {
	Hebrew      []string `json:"hebrew,omitempty"`
	English     []string `json:"english,omitempty"`
	SefariaRefs []string `json:"sefariaRefs,omitempty"`
}

// SessionState is the continuation token payload round-tripped through the
// client between turns. It is never persisted server-side; the client echoes
// it back verbatim (signed, see pipeline.TokenCodec).
type SessionState struct {
	TriageComplete  bool          `json:"triageComplete"`
	ContextComplete bool          `json:"contextComplete"`
	Triage          *TriageResult `json:"triage,omitempty"`
}
