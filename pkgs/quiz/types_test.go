package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerKeyDecodesStringForm(t *testing.T) {
	var k AnswerKey
	require.NoError(t, json.Unmarshal([]byte(`"option-b"`), &k))
	assert.Equal(t, "option-b", k.Text)
	assert.False(t, k.IsInteractive())
}

func TestAnswerKeyDecodesTaggedForm(t *testing.T) {
	var k AnswerKey
	require.NoError(t, json.Unmarshal([]byte(`{"type": "word-jumble", "data": {"word": "ledger"}}`), &k))
	assert.True(t, k.IsInteractive())
	assert.Equal(t, TypeWordJumble, k.Type)

	var spec WordJumbleSpec
	require.NoError(t, json.Unmarshal(k.Spec, &spec))
	assert.Equal(t, "ledger", spec.Word)
}

func TestAnswerKeyRejectsUntaggedObject(t *testing.T) {
	var k AnswerKey
	err := json.Unmarshal([]byte(`{"data": {"word": "ledger"}}`), &k)
	assert.Error(t, err, "an interactive key without a type tag is a bank defect")
}

func TestAnswerDecodesStringForm(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &a))
	assert.Equal(t, "42", a.Text)
	assert.Nil(t, a.Interactive)
}

func TestAnswerDecodesEnvelopeForm(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`{"type": "drag-drop", "response": {"order": ["a", "b"]}}`), &a))
	require.NotNil(t, a.Interactive)
	assert.Equal(t, TypeDragDrop, a.Interactive.Type)
}

func TestAnswerRejectsUntaggedEnvelope(t *testing.T) {
	var a Answer
	err := json.Unmarshal([]byte(`{"response": {"order": []}}`), &a)
	assert.Error(t, err)
}

func TestBankDecodesFullDocument(t *testing.T) {
	doc := []byte(`{
		"0001": {
			"passingScore": 80,
			"questions": [
				{"id": "q1", "prompt": "Pick one", "options": ["a", "b"], "answer": "a", "points": 6},
				{"id": "q2", "prompt": "Unscramble", "answer": {"type": "word-jumble", "data": {"word": "chain"}}, "points": 6}
			]
		}
	}`)

	var bank Bank
	require.NoError(t, json.Unmarshal(doc, &bank))

	entry := bank["0001"]
	require.NotNil(t, entry)
	assert.Equal(t, 80.0, entry.PassingScore)
	require.Len(t, entry.Questions, 2)
	assert.False(t, entry.Questions[0].Answer.IsInteractive())
	assert.True(t, entry.Questions[1].Answer.IsInteractive())
}
