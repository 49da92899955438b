package domain

import "fmt"

// AskRequest is the JSON body for POST /api/ask.
type AskRequest struct {
	Question     string          `json:"question"`
	Context      []ContextAnswer `json:"context,omitempty"`
	SessionState string          `json:"sessionState,omitempty"`
}

// ContextAnswer is one answer the user supplied in response to a follow-up
// question from a previous needs_context turn.
type ContextAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const MaxQuestionLen = 1000

// Validate checks required fields.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return NewValidationError("question is required")
	}
	if len([]rune(r.Question)) > MaxQuestionLen {
		return NewValidationError(fmt.Sprintf("question must be <= %d characters", MaxQuestionLen))
	}
	return nil
}

// HasContext reports whether the caller supplied at least one non-empty
// context answer.
func (r *AskRequest) HasContext() bool {
	for _, c := range r.Context {
		if c.Answer != "" {
			return true
		}
	}
	return false
}
