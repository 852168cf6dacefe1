package submissions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletPattern(t *testing.T) {
	valid := []string{
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"0x0000000000000000000000000000000000000000",
	}
	for _, w := range valid {
		assert.True(t, WalletPattern.MatchString(w), w)
	}

	invalid := []string{
		"",
		"0x123",
		"f39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb9226",   // 39 chars
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb922666", // 41 chars
		"0xZ39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	}
	for _, w := range invalid {
		assert.False(t, WalletPattern.MatchString(w), w)
	}
}

func TestTxHashPattern(t *testing.T) {
	assert.True(t, TxHashPattern.MatchString(
		"0x4f6742badb049791cd9a37ea913f2bac38d01279e5c9c1b40d71571fabab3f38"))
	assert.False(t, TxHashPattern.MatchString("0xdeadbeef"))
	assert.False(t, TxHashPattern.MatchString(
		"4f6742badb049791cd9a37ea913f2bac38d01279e5c9c1b40d71571fabab3f38"))
}

func TestSubmitRequestDecodesRawPayload(t *testing.T) {
	body := []byte(`{
		"walletAddress": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"achievementNumber": "0001",
		"submissionType": "quiz",
		"submissionData": {"answers": {"q1": "option-a"}},
		"metadata": {"submittedAt": 1750000000, "elapsedSeconds": 120}
	}`)

	var req SubmitRequest
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, KindQuiz, req.SubmissionType)
	require.NotNil(t, req.Metadata)
	assert.Equal(t, int64(1750000000), req.Metadata.SubmittedAt)

	// the payload stays raw until the kind is known
	var p QuizPayload
	require.NoError(t, json.Unmarshal(req.SubmissionData, &p))
	assert.Contains(t, p.Answers, "q1")
}

func TestPayloadKinds(t *testing.T) {
	assert.Equal(t, KindQuiz, QuizPayload{}.Kind())
	assert.Equal(t, KindTransaction, TransactionPayload{}.Kind())
	assert.Equal(t, KindContract, ContractPayload{}.Kind())
	assert.Equal(t, KindSecret, SecretPayload{}.Kind())
}

func TestPassIsNeverRetryable(t *testing.T) {
	res := Pass("done", "next")
	assert.True(t, res.Passed)
	assert.False(t, res.RetryAllowed)

	assert.True(t, Retryable("try again").RetryAllowed)
	assert.False(t, Terminal("closed").RetryAllowed)
}

func TestValidationResultOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(Retryable("nope"))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "score")
	assert.NotContains(t, string(data), "blockNumber")
	assert.Contains(t, string(data), `"retryAllowed":true`)
}
