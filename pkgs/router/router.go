// Package router implements the submission pipeline: request validation,
// kind agreement, the idempotence gate, validator dispatch, attempt
// persistence, and voucher issuance.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/metrics"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/onchain"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/store"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/submissions"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/voucher"
)

// QuizValidator grades quiz submissions.
type QuizValidator interface {
	Validate(ctx context.Context, ach *catalog.Achievement, answers map[string]json.RawMessage) *submissions.ValidationResult
}

// SecretValidator matches secret submissions.
type SecretValidator interface {
	Validate(ctx context.Context, ach *catalog.Achievement, secret string) *submissions.ValidationResult
}

// ChainValidator verifies transaction and contract submissions.
type ChainValidator interface {
	VerifyTransaction(ctx context.Context, ach *catalog.Achievement, in *onchain.VerifyInput, payload *submissions.TransactionPayload) *submissions.ValidationResult
	VerifyContract(ctx context.Context, ach *catalog.Achievement, in *onchain.VerifyInput, payload *submissions.ContractPayload) *submissions.ValidationResult
}

// Options wires the router's collaborators.
type Options struct {
	Catalog *catalog.Registry
	Store   store.Store
	Signer  *voucher.Signer
	Quiz    QuizValidator
	Secret  SecretValidator
	Chain   ChainValidator

	RPCEndpoints   map[int64]string
	DefaultChainID int64

	// Echoed in successful responses so the client knows where to redeem.
	RegistryContract string
	RegistryChainID  int64
}

// Router validates, dispatches, persists, and signs.
type Router struct {
	opts Options
}

// New creates a router.
func New(opts Options) *Router {
	return &Router{opts: opts}
}

// Submit runs the full pipeline for one submission. It never panics and
// never leaks internal error detail to the caller.
func (r *Router) Submit(ctx context.Context, req *submissions.SubmitRequest) (resp *submissions.SubmitResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("Unexpected failure in submission pipeline")
			metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "error").Inc()
			resp = &submissions.SubmitResponse{
				Success: false,
				Error:   "internal error",
				Code:    submissions.CodeInternalError,
			}
		}
	}()

	// Input gates, cheapest first. Kind agreement is checked before the
	// payload is interpreted to avoid type confusion.
	if !submissions.WalletPattern.MatchString(req.WalletAddress) {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "rejected").Inc()
		return reject(submissions.CodeInvalidWallet, "invalid wallet address")
	}
	wallet := common.HexToAddress(req.WalletAddress)

	ach, err := r.opts.Catalog.Get(req.AchievementNumber)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "rejected").Inc()
		return reject(submissions.CodeInvalidRequest, "unknown achievement")
	}

	if string(req.SubmissionType) != string(ach.Kind) {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "rejected").Inc()
		return reject(submissions.CodeTypeMismatch, "submission type does not match the achievement")
	}

	if len(req.SubmissionData) == 0 {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "rejected").Inc()
		return reject(submissions.CodeInvalidRequest, "missing submission data")
	}

	payload, perr := decodePayload(req.SubmissionType, req.SubmissionData)
	if perr != nil {
		log.WithError(perr).WithField("achievement", ach.ID).Debug("Payload decode failed")
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "rejected").Inc()
		return reject(submissions.CodeInvalidRequest, "malformed submission data")
	}

	// Idempotence gate: at most one successful voucher per wallet+achievement.
	// This read is the fast path; the atomic claim below is authoritative.
	passed, err := r.opts.Store.HasPassed(ctx, wallet.Hex(), ach.ID)
	if err != nil {
		log.WithError(err).Error("Pass check failed")
		return internalError()
	}
	if passed {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "conflict").Inc()
		return conflict()
	}

	if err := r.opts.Store.EnsureWallet(ctx, wallet.Hex()); err != nil {
		log.WithError(err).Error("Wallet registration failed")
		return internalError()
	}

	result := r.dispatch(ctx, ach, wallet, payload)

	// Every attempt is persisted, pass or fail, including partial scores
	attempt := &store.Attempt{
		ID:            uuid.NewString(),
		Wallet:        wallet.Hex(),
		AchievementID: ach.ID,
		Kind:          string(req.SubmissionType),
		Passed:        result.Passed,
		Score:         result.Score,
		MaxScore:      result.MaxScore,
		Feedback:      result.Feedback,
		SubmittedAt:   submittedAt(req.Metadata),
	}
	if err := r.opts.Store.RecordAttempt(ctx, attempt); err != nil {
		log.WithError(err).Error("Attempt persistence failed")
		return internalError()
	}

	if !result.Passed {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "failed").Inc()
		return &submissions.SubmitResponse{Success: false, Results: result}
	}

	// The atomic claim is the authoritative conflict check: losing it means
	// a concurrent duplicate already took the single pass slot.
	claimed, err := r.opts.Store.ClaimPass(ctx, wallet.Hex(), ach.ID, attempt)
	if err != nil {
		log.WithError(err).Error("Pass claim failed")
		return internalError()
	}
	if !claimed {
		metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "conflict").Inc()
		return conflict()
	}

	v := &voucher.CompletionVoucher{TaskCode: ach.TaskCode, Wallet: wallet}
	signature, err := r.opts.Signer.Sign(v)
	if err != nil {
		log.WithError(err).Error("Voucher signing failed")
		return internalError()
	}

	metrics.SubmissionsTotal.WithLabelValues(string(req.SubmissionType), "passed").Inc()
	metrics.VouchersIssued.Inc()

	log.WithFields(log.Fields{
		"wallet":      wallet.Hex(),
		"achievement": ach.ID,
		"task_code":   ach.TaskCode,
	}).Info("🏆 Achievement completed, voucher issued")

	return &submissions.SubmitResponse{
		Success:         true,
		Voucher:         &submissions.VoucherInfo{TaskCode: ach.TaskCode, Wallet: wallet.Hex()},
		Signature:       hexutil.Encode(signature),
		ContractAddress: r.opts.RegistryContract,
		ChainID:         r.opts.RegistryChainID,
		Results:         result,
	}
}

// dispatch matches the payload sum exhaustively and times the validator.
func (r *Router) dispatch(ctx context.Context, ach *catalog.Achievement, wallet common.Address, payload submissions.Payload) *submissions.ValidationResult {
	timer := prometheus.NewTimer(metrics.ValidationDuration.WithLabelValues(string(payload.Kind())))
	defer timer.ObserveDuration()

	switch p := payload.(type) {
	case *submissions.QuizPayload:
		return r.opts.Quiz.Validate(ctx, ach, p.Answers)
	case *submissions.SecretPayload:
		return r.opts.Secret.Validate(ctx, ach, p.Secret)
	case *submissions.TransactionPayload:
		in := r.verifyInput(wallet, p.ChainID)
		return r.opts.Chain.VerifyTransaction(ctx, ach, in, p)
	case *submissions.ContractPayload:
		in := r.verifyInput(wallet, p.ChainID)
		return r.opts.Chain.VerifyContract(ctx, ach, in, p)
	default:
		// Unreachable: decodePayload only builds the variants above
		log.Errorf("Unhandled payload kind: %T", payload)
		return submissions.Terminal("unsupported submission kind")
	}
}

// verifyInput selects the RPC endpoint for the submitted chain id, falling
// back to the default chain with a warning when unrecognized.
func (r *Router) verifyInput(wallet common.Address, chainID int64) *onchain.VerifyInput {
	if chainID == 0 {
		chainID = r.opts.DefaultChainID
	}
	url, ok := r.opts.RPCEndpoints[chainID]
	if !ok {
		log.Warnf("No RPC endpoint for chain %d, falling back to default chain %d",
			chainID, r.opts.DefaultChainID)
		chainID = r.opts.DefaultChainID
		url = r.opts.RPCEndpoints[chainID]
	}
	return &onchain.VerifyInput{Wallet: wallet, RPCURL: url, ChainID: chainID}
}

func decodePayload(kind submissions.Kind, data json.RawMessage) (submissions.Payload, error) {
	switch kind {
	case submissions.KindQuiz:
		var p submissions.QuizPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case submissions.KindTransaction:
		var p submissions.TransactionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case submissions.KindContract:
		var p submissions.ContractPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case submissions.KindSecret:
		var p submissions.SecretPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown submission kind: %s", kind)
	}
}

var errInvalidWallet = errors.New("invalid wallet address")

func submittedAt(m *submissions.Metadata) int64 {
	if m != nil && m.SubmittedAt > 0 {
		return m.SubmittedAt
	}
	return time.Now().Unix()
}

func reject(code, msg string) *submissions.SubmitResponse {
	return &submissions.SubmitResponse{Success: false, Error: msg, Code: code}
}

func conflict() *submissions.SubmitResponse {
	return &submissions.SubmitResponse{
		Success: false,
		Error:   "achievement already completed by this wallet",
		Code:    submissions.CodeAlreadyCompleted,
	}
}

func internalError() *submissions.SubmitResponse {
	return &submissions.SubmitResponse{
		Success: false,
		Error:   "internal error",
		Code:    submissions.CodeInternalError,
	}
}

// Status describes voucher state for a wallet+achievement pair.
type Status struct {
	Wallet        string `json:"wallet"`
	AchievementID string `json:"achievementId"`
	Completed     bool   `json:"completed"`
	CompletedAt   int64  `json:"completedAt,omitempty"`
	Attempts      int    `json:"attempts"`
	LastAttemptAt int64  `json:"lastAttemptAt,omitempty"`
}

// Status reports whether a voucher has been signed for the pair, plus
// attempt history for retry tracking.
func (r *Router) Status(ctx context.Context, walletAddress, achievementID string) (*Status, error) {
	if !submissions.WalletPattern.MatchString(walletAddress) {
		return nil, errInvalidWallet
	}
	wallet := common.HexToAddress(walletAddress)

	if _, err := r.opts.Catalog.Get(achievementID); err != nil {
		return nil, err
	}

	pass, err := r.opts.Store.LatestPassed(ctx, wallet.Hex(), achievementID)
	if err != nil {
		return nil, err
	}

	attempts, err := r.opts.Store.Attempts(ctx, wallet.Hex(), achievementID)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Wallet:        wallet.Hex(),
		AchievementID: achievementID,
		Completed:     pass != nil,
		Attempts:      len(attempts),
	}
	if pass != nil {
		status.CompletedAt = pass.SubmittedAt
	}
	if len(attempts) > 0 {
		status.LastAttemptAt = attempts[0].SubmittedAt
	}
	return status, nil
}
