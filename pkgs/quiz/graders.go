package quiz

import (
	"encoding/json"
	"strings"
)

// The graders are pure functions taking the learner's raw response JSON, the
// configured answer spec JSON, and the question's point value. Malformed
// input on either side awards 0 - a grader never returns an error.

// GradeInteractive dispatches to the grader for the question's configured
// type. A response whose type tag disagrees with the spec scores 0.
func GradeInteractive(specType InteractiveType, response *InteractiveResponse, spec json.RawMessage, maxPoints float64) float64 {
	if response == nil || response.Type != specType {
		return 0
	}

	switch specType {
	case TypeWordJumble:
		return GradeWordJumble(response.Response, spec, maxPoints)
	case TypeConceptMatching:
		return GradeConceptMatching(response.Response, spec, maxPoints)
	case TypeTimelineBuilder:
		return GradeTimelineBuilder(response.Response, spec, maxPoints)
	case TypeTrueFalseSet:
		return GradeTrueFalseSet(response.Response, spec, maxPoints)
	case TypeDragDrop:
		return GradeDragDrop(response.Response, spec, maxPoints)
	default:
		return 0
	}
}

// GradeWordJumble awards full points iff the submitted word matches the
// target case-insensitively, otherwise 0.
func GradeWordJumble(response, spec json.RawMessage, maxPoints float64) float64 {
	var resp WordJumbleResponse
	var key WordJumbleSpec
	if json.Unmarshal(response, &resp) != nil || json.Unmarshal(spec, &key) != nil {
		return 0
	}
	if key.Word == "" {
		return 0
	}

	if strings.EqualFold(resp.Word, key.Word) {
		return maxPoints
	}
	return 0
}

// GradeConceptMatching awards partial credit proportional to the number of
// correctly matched concept-definition pairs. A pair counts only when both
// ids match an expected pair exactly.
func GradeConceptMatching(response, spec json.RawMessage, maxPoints float64) float64 {
	var resp ConceptMatchingResponse
	var key ConceptMatchingSpec
	if json.Unmarshal(response, &resp) != nil || json.Unmarshal(spec, &key) != nil {
		return 0
	}
	if len(key.Pairs) == 0 {
		return 0
	}

	expected := make(map[string]string, len(key.Pairs))
	for _, p := range key.Pairs {
		expected[p.ConceptID] = p.DefinitionID
	}

	correct := 0
	seen := make(map[string]bool, len(resp.Pairs))
	for _, p := range resp.Pairs {
		if seen[p.ConceptID] {
			continue
		}
		seen[p.ConceptID] = true
		if def, ok := expected[p.ConceptID]; ok && def == p.DefinitionID {
			correct++
		}
	}

	return float64(correct) / float64(len(key.Pairs)) * maxPoints
}

// GradeTimelineBuilder awards partial credit by position: a correct element
// in the wrong slot scores nothing for that slot.
func GradeTimelineBuilder(response, spec json.RawMessage, maxPoints float64) float64 {
	var resp SequenceResponse
	var key SequenceSpec
	if json.Unmarshal(response, &resp) != nil || json.Unmarshal(spec, &key) != nil {
		return 0
	}
	return gradeSequence(resp.Order, key.Order, maxPoints)
}

// GradeDragDrop uses the same position-indexed algorithm as the timeline
// builder.
func GradeDragDrop(response, spec json.RawMessage, maxPoints float64) float64 {
	var resp SequenceResponse
	var key SequenceSpec
	if json.Unmarshal(response, &resp) != nil || json.Unmarshal(spec, &key) != nil {
		return 0
	}
	return gradeSequence(resp.Order, key.Order, maxPoints)
}

func gradeSequence(got, want []string, maxPoints float64) float64 {
	if len(want) == 0 {
		return 0
	}

	// Only compare up to the shorter length; extra or missing items earn nothing
	n := len(got)
	if len(want) < n {
		n = len(want)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if got[i] == want[i] {
			correct++
		}
	}

	return float64(correct) / float64(len(want)) * maxPoints
}

// GradeTrueFalseSet awards partial credit per statement whose submitted
// boolean matches the expected one, matched by statement id.
func GradeTrueFalseSet(response, spec json.RawMessage, maxPoints float64) float64 {
	var resp TrueFalseSetResponse
	var key TrueFalseSetSpec
	if json.Unmarshal(response, &resp) != nil || json.Unmarshal(spec, &key) != nil {
		return 0
	}
	if len(key.Statements) == 0 {
		return 0
	}

	submitted := make(map[string]bool, len(resp.Statements))
	answered := make(map[string]bool, len(resp.Statements))
	for _, s := range resp.Statements {
		if answered[s.ID] {
			continue
		}
		answered[s.ID] = true
		submitted[s.ID] = s.Value
	}

	correct := 0
	for _, s := range key.Statements {
		if v, ok := submitted[s.ID]; ok && v == s.Value {
			correct++
		}
	}

	return float64(correct) / float64(len(key.Statements)) * maxPoints
}
