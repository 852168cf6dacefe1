package submissions

import (
	"encoding/json"
	"regexp"
)

// Kind is a declared submission kind. The set is closed: every payload shape
// is one of the variants below and the router matches them exhaustively.
type Kind string

const (
	KindQuiz        Kind = "quiz"
	KindTransaction Kind = "transaction"
	KindContract    Kind = "contract"
	KindSecret      Kind = "secret"
)

// Machine-readable error codes surfaced to the client.
const (
	CodeInvalidWallet    = "INVALID_WALLET"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeTypeMismatch     = "TYPE_MISMATCH"
	CodeAlreadyCompleted = "ALREADY_COMPLETED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// WalletPattern matches a 0x-prefixed 20-byte hex address.
var WalletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// TxHashPattern matches a 0x-prefixed 32-byte hex transaction hash. Enforced
// before any RPC call is attempted.
var TxHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Payload is the closed sum over kind-specific submission payloads.
type Payload interface {
	Kind() Kind
}

// QuizPayload carries the answers map keyed by question id. Each answer is
// either a JSON string (traditional) or a typed interactive envelope; the
// quiz validator decodes them.
type QuizPayload struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

// TransactionPayload carries an on-chain proof reference.
type TransactionPayload struct {
	TransactionHash string `json:"transactionHash"`
	ChainID         int64  `json:"chainId,omitempty"`
	Claimant        string `json:"claimant,omitempty"`
	CreationMethod  string `json:"creationMethod,omitempty"` // "factory" or "deployment"
}

// ContractPayload carries a deployed contract address (upgradeable-proxy
// checks probe storage, not a transaction).
type ContractPayload struct {
	ContractAddress string `json:"contractAddress"`
	ChainID         int64  `json:"chainId,omitempty"`
}

// SecretPayload carries the submitted secret string.
type SecretPayload struct {
	Secret string `json:"secret"`
}

func (QuizPayload) Kind() Kind        { return KindQuiz }
func (TransactionPayload) Kind() Kind { return KindTransaction }
func (ContractPayload) Kind() Kind    { return KindContract }
func (SecretPayload) Kind() Kind      { return KindSecret }

// Metadata is optional submission context supplied by the client.
type Metadata struct {
	SubmittedAt    int64 `json:"submittedAt,omitempty"`
	ElapsedSeconds int64 `json:"elapsedSeconds,omitempty"`
}

// SubmitRequest is the raw inbound submission envelope.
type SubmitRequest struct {
	WalletAddress     string          `json:"walletAddress"`
	AchievementNumber string          `json:"achievementNumber"`
	SubmissionType    Kind            `json:"submissionType"`
	SubmissionData    json.RawMessage `json:"submissionData"`
	Metadata          *Metadata       `json:"metadata,omitempty"`
}

// ValidationResult is the universal output contract of every validator.
type ValidationResult struct {
	Passed bool `json:"passed"`

	// quiz only
	Score          *float64 `json:"score,omitempty"`
	MaxScore       *float64 `json:"maxScore,omitempty"`
	PassingScore   *float64 `json:"passingScore,omitempty"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
	CorrectAnswers *int     `json:"correctAnswers,omitempty"`
	TotalQuestions *int     `json:"totalQuestions,omitempty"`

	// transaction/contract only
	ContractAddress string `json:"contractAddress,omitempty"`
	TokenAddress    string `json:"tokenAddress,omitempty"`
	CreationMethod  string `json:"creationMethod,omitempty"`
	BlockNumber     uint64 `json:"blockNumber,omitempty"`

	Feedback     string   `json:"feedback"`
	NextSteps    []string `json:"nextSteps,omitempty"`
	RetryAllowed bool     `json:"retryAllowed"`
	Error        string   `json:"error,omitempty"`
}

// Pass builds a passed result. A passed achievement is terminal, so
// retryAllowed is always false.
func Pass(feedback string, nextSteps ...string) *ValidationResult {
	return &ValidationResult{
		Passed:       true,
		Feedback:     feedback,
		NextSteps:    nextSteps,
		RetryAllowed: false,
	}
}

// Retryable builds a failed result the caller may correct and resubmit.
func Retryable(feedback string, nextSteps ...string) *ValidationResult {
	return &ValidationResult{
		Passed:       false,
		Feedback:     feedback,
		NextSteps:    nextSteps,
		RetryAllowed: true,
	}
}

// Terminal builds a failed result that cannot be retried (missing
// configuration, expired window).
func Terminal(feedback string, nextSteps ...string) *ValidationResult {
	return &ValidationResult{
		Passed:       false,
		Feedback:     feedback,
		NextSteps:    nextSteps,
		RetryAllowed: false,
	}
}

// VoucherInfo is the signed payload echoed back to the client.
type VoucherInfo struct {
	TaskCode int64  `json:"taskCode"`
	Wallet   string `json:"wallet"`
}

// SubmitResponse is the submission entry point's reply envelope.
type SubmitResponse struct {
	Success         bool              `json:"success"`
	Voucher         *VoucherInfo      `json:"voucher,omitempty"`
	Signature       string            `json:"signature,omitempty"`
	ContractAddress string            `json:"contractAddress,omitempty"`
	ChainID         int64             `json:"chainId,omitempty"`
	Results         *ValidationResult `json:"results,omitempty"`
	Error           string            `json:"error,omitempty"`
	Code            string            `json:"code,omitempty"`
}

// Float64 and Int are small helpers for the optional result fields.
func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }
