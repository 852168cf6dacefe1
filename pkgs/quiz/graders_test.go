package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func raw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestGradeWordJumble(t *testing.T) {
	spec := raw(t, WordJumbleSpec{Word: "Blockchain"})

	assert.Equal(t, 10.0, GradeWordJumble(raw(t, WordJumbleResponse{Word: "blockchain"}), spec, 10),
		"match is case-insensitive")
	assert.Equal(t, 10.0, GradeWordJumble(raw(t, WordJumbleResponse{Word: "BLOCKCHAIN"}), spec, 10))
	assert.Equal(t, 0.0, GradeWordJumble(raw(t, WordJumbleResponse{Word: "blockchains"}), spec, 10))
	assert.Equal(t, 0.0, GradeWordJumble(raw(t, WordJumbleResponse{}), spec, 10))

	// empty target word never awards points, even against an empty response
	empty := raw(t, WordJumbleSpec{})
	assert.Equal(t, 0.0, GradeWordJumble(raw(t, WordJumbleResponse{Word: ""}), empty, 10))

	assert.Equal(t, 0.0, GradeWordJumble(json.RawMessage(`{broken`), spec, 10))
}

func TestGradeConceptMatching(t *testing.T) {
	spec := raw(t, ConceptMatchingSpec{Pairs: []ConceptPair{
		{ConceptID: "c1", DefinitionID: "d1"},
		{ConceptID: "c2", DefinitionID: "d2"},
		{ConceptID: "c3", DefinitionID: "d3"},
		{ConceptID: "c4", DefinitionID: "d4"},
	}})

	all := raw(t, ConceptMatchingResponse{Pairs: []ConceptPair{
		{ConceptID: "c1", DefinitionID: "d1"},
		{ConceptID: "c2", DefinitionID: "d2"},
		{ConceptID: "c3", DefinitionID: "d3"},
		{ConceptID: "c4", DefinitionID: "d4"},
	}})
	assert.Equal(t, 8.0, GradeConceptMatching(all, spec, 8))

	half := raw(t, ConceptMatchingResponse{Pairs: []ConceptPair{
		{ConceptID: "c1", DefinitionID: "d1"},
		{ConceptID: "c2", DefinitionID: "d3"}, // wrong definition
		{ConceptID: "c3", DefinitionID: "d3"},
		{ConceptID: "c9", DefinitionID: "d4"}, // unknown concept
	}})
	assert.Equal(t, 4.0, GradeConceptMatching(half, spec, 8))

	// duplicate concept ids: only the first submission counts
	duped := raw(t, ConceptMatchingResponse{Pairs: []ConceptPair{
		{ConceptID: "c1", DefinitionID: "d9"},
		{ConceptID: "c1", DefinitionID: "d1"},
	}})
	assert.Equal(t, 0.0, GradeConceptMatching(duped, spec, 8))

	assert.Equal(t, 0.0, GradeConceptMatching(all, raw(t, ConceptMatchingSpec{}), 8),
		"empty spec awards nothing")
}

func TestGradeSequencePositional(t *testing.T) {
	spec := raw(t, SequenceSpec{Order: []string{"a", "b", "c", "d"}})

	assert.Equal(t, 12.0, GradeTimelineBuilder(raw(t, SequenceResponse{Order: []string{"a", "b", "c", "d"}}), spec, 12))

	// swapped neighbors lose both slots
	swapped := raw(t, SequenceResponse{Order: []string{"b", "a", "c", "d"}})
	assert.Equal(t, 6.0, GradeTimelineBuilder(swapped, spec, 12))

	// a short response is graded against the full expected length
	short := raw(t, SequenceResponse{Order: []string{"a", "b"}})
	assert.Equal(t, 6.0, GradeTimelineBuilder(short, spec, 12))

	// extra trailing items earn nothing
	long := raw(t, SequenceResponse{Order: []string{"a", "b", "c", "d", "e"}})
	assert.Equal(t, 12.0, GradeTimelineBuilder(long, spec, 12))

	assert.Equal(t, 0.0, GradeTimelineBuilder(swapped, raw(t, SequenceSpec{}), 12))

	// drag-drop shares the positional algorithm
	assert.Equal(t, 6.0, GradeDragDrop(swapped, spec, 12))
}

func TestGradeTrueFalseSet(t *testing.T) {
	spec := raw(t, TrueFalseSetSpec{Statements: []Statement{
		{ID: "s1", Value: true},
		{ID: "s2", Value: false},
		{ID: "s3", Value: true},
		{ID: "s4", Value: false},
	}})

	resp := raw(t, TrueFalseSetResponse{Statements: []Statement{
		{ID: "s2", Value: false},
		{ID: "s1", Value: true},
		{ID: "s3", Value: false}, // wrong
	}})
	assert.Equal(t, 6.0, GradeTrueFalseSet(resp, spec, 12), "order does not matter, match is by id")

	// conflicting duplicates: first answer per id wins
	duped := raw(t, TrueFalseSetResponse{Statements: []Statement{
		{ID: "s1", Value: false},
		{ID: "s1", Value: true},
	}})
	assert.Equal(t, 0.0, GradeTrueFalseSet(duped, spec, 12))
}

func TestGradeInteractiveDispatch(t *testing.T) {
	spec := raw(t, WordJumbleSpec{Word: "ledger"})
	resp := &InteractiveResponse{
		Type:     TypeWordJumble,
		Response: raw(t, WordJumbleResponse{Word: "ledger"}),
	}

	assert.Equal(t, 5.0, GradeInteractive(TypeWordJumble, resp, spec, 5))

	// type tag disagreement scores zero
	assert.Equal(t, 0.0, GradeInteractive(TypeConceptMatching, resp, spec, 5))
	assert.Equal(t, 0.0, GradeInteractive(TypeWordJumble, nil, spec, 5))
}

func TestGradersAreIdempotent(t *testing.T) {
	spec := raw(t, SequenceSpec{Order: []string{"x", "y", "z"}})
	resp := raw(t, SequenceResponse{Order: []string{"x", "z", "y"}})

	first := GradeTimelineBuilder(resp, spec, 9)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, GradeTimelineBuilder(resp, spec, 9))
	}
}
