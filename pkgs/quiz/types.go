package quiz

import (
	"encoding/json"
	"fmt"
)

// InteractiveType tags the five interactive question element kinds.
type InteractiveType string

const (
	TypeWordJumble      InteractiveType = "word-jumble"
	TypeConceptMatching InteractiveType = "concept-matching"
	TypeTimelineBuilder InteractiveType = "timeline-builder"
	TypeTrueFalseSet    InteractiveType = "true-false-set"
	TypeDragDrop        InteractiveType = "drag-drop"
)

// Bank is the external quiz-question document, keyed by achievement id.
type Bank map[string]*BankEntry

// BankEntry holds the question set for one achievement.
type BankEntry struct {
	PassingScore float64    `json:"passingScore,omitempty"` // percent; 0 = use catalog default
	Questions    []Question `json:"questions"`
}

// Question is one configured quiz question.
type Question struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Options     []string  `json:"options,omitempty"` // empty for interactive types
	Answer      AnswerKey `json:"answer"`
	Points      float64   `json:"points"`
	Explanation string    `json:"explanation,omitempty"`
}

// AnswerKey is the configured correct answer: either a plain option string
// for multiple choice, or a tagged interactive spec {type, data}.
type AnswerKey struct {
	Text string          // multiple choice correct option
	Type InteractiveType // set for interactive questions
	Spec json.RawMessage // interactive spec payload
}

// IsInteractive reports whether the key describes an interactive element.
func (k *AnswerKey) IsInteractive() bool {
	return k.Type != ""
}

// UnmarshalJSON accepts either a JSON string or a {type, data} object.
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		k.Text = text
		return nil
	}

	var tagged struct {
		Type InteractiveType `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("answer key must be a string or a {type, data} object: %w", err)
	}
	if tagged.Type == "" {
		return fmt.Errorf("interactive answer key is missing its type tag")
	}

	k.Type = tagged.Type
	k.Spec = tagged.Data
	return nil
}

// MarshalJSON round-trips the tagged form.
func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if !k.IsInteractive() {
		return json.Marshal(k.Text)
	}
	return json.Marshal(struct {
		Type InteractiveType `json:"type"`
		Data json.RawMessage `json:"data"`
	}{k.Type, k.Spec})
}

// Answer is a submitted answer: a plain string for traditional multiple
// choice or a typed interactive response. The union is decided by the request
// schema, never inferred from the string's shape, so a literal answer that
// happens to start with "{" stays a traditional answer.
type Answer struct {
	Text        string
	Interactive *InteractiveResponse
}

// InteractiveResponse is the typed envelope for interactive element answers.
type InteractiveResponse struct {
	Type     InteractiveType `json:"type"`
	Response json.RawMessage `json:"response"`
}

// UnmarshalJSON accepts a JSON string (traditional) or a typed envelope.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		a.Text = text
		a.Interactive = nil
		return nil
	}

	var envelope InteractiveResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("answer must be a string or a {type, response} object: %w", err)
	}
	if envelope.Type == "" {
		return fmt.Errorf("interactive answer is missing its type tag")
	}

	a.Text = ""
	a.Interactive = &envelope
	return nil
}

// MarshalJSON round-trips the union.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Interactive != nil {
		return json.Marshal(a.Interactive)
	}
	return json.Marshal(a.Text)
}

// Interactive answer specs and responses. The spec shapes live in the
// question bank; the response shapes arrive from the client.

// WordJumbleSpec holds the target word.
type WordJumbleSpec struct {
	Word string `json:"word"`
}

// WordJumbleResponse is the unscrambled word the learner built.
type WordJumbleResponse struct {
	Word string `json:"word"`
}

// ConceptPair links a concept to its definition by id.
type ConceptPair struct {
	ConceptID    string `json:"conceptId"`
	DefinitionID string `json:"definitionId"`
}

// ConceptMatchingSpec lists the required concept-definition pairs.
type ConceptMatchingSpec struct {
	Pairs []ConceptPair `json:"pairs"`
}

// ConceptMatchingResponse lists the pairs the learner matched.
type ConceptMatchingResponse struct {
	Pairs []ConceptPair `json:"pairs"`
}

// SequenceSpec is the expected ordering for timeline-builder and
// drag-and-drop questions.
type SequenceSpec struct {
	Order []string `json:"order"`
}

// SequenceResponse is the ordering the learner arranged.
type SequenceResponse struct {
	Order []string `json:"order"`
}

// Statement is one true/false classification, matched by id.
type Statement struct {
	ID    string `json:"id"`
	Value bool   `json:"value"`
}

// TrueFalseSetSpec lists the expected classifications.
type TrueFalseSetSpec struct {
	Statements []Statement `json:"statements"`
}

// TrueFalseSetResponse lists the learner's classifications.
type TrueFalseSetResponse struct {
	Statements []Statement `json:"statements"`
}
