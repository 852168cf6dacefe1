package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/onchain"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/router"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/store"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/submissions"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/voucher"
)

const (
	testWallet = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

type passAllSecret struct{}

func (passAllSecret) Validate(ctx context.Context, ach *catalog.Achievement, secret string) *submissions.ValidationResult {
	if secret == "FIRSTSECRET" {
		return submissions.Pass("ok")
	}
	return submissions.Retryable("nope")
}

type noQuiz struct{}

func (noQuiz) Validate(ctx context.Context, ach *catalog.Achievement, answers map[string]json.RawMessage) *submissions.ValidationResult {
	return submissions.Terminal("no quiz configured")
}

type noChain struct{}

func (noChain) VerifyTransaction(ctx context.Context, ach *catalog.Achievement, in *onchain.VerifyInput, payload *submissions.TransactionPayload) *submissions.ValidationResult {
	return submissions.Retryable("unverifiable")
}

func (noChain) VerifyContract(ctx context.Context, ach *catalog.Achievement, in *onchain.VerifyInput, payload *submissions.ContractPayload) *submissions.ValidationResult {
	return submissions.Retryable("unverifiable")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	signer, err := voucher.NewSigner(testKeyHex, "PlunderAcademyBadges", "1", 11155111,
		"0x5FbDB2315678afecb367f032d93F642f64180aa3")
	require.NoError(t, err)

	registry := catalog.NewRegistry()
	pipeline := router.New(router.Options{
		Catalog:          registry,
		Store:            store.NewMemoryStore(),
		Signer:           signer,
		Quiz:             noQuiz{},
		Secret:           passAllSecret{},
		Chain:            noChain{},
		RPCEndpoints:     map[int64]string{11155111: "https://sepolia.example/rpc"},
		DefaultChainID:   11155111,
		RegistryContract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		RegistryChainID:  11155111,
	})

	return NewServer(pipeline, registry, nil)
}

func postSubmission(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func secretBody(wallet, secret string) map[string]interface{} {
	return map[string]interface{}{
		"walletAddress":     wallet,
		"achievementNumber": "1001",
		"submissionType":    "secret",
		"submissionData":    map[string]string{"secret": secret},
	}
}

func TestSubmissionEndpointSuccess(t *testing.T) {
	srv := newTestServer(t)

	rec := postSubmission(t, srv, secretBody(testWallet, "FIRSTSECRET"))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp submissions.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Voucher)
	assert.Equal(t, int64(1001), resp.Voucher.TaskCode)
	assert.NotEmpty(t, resp.Signature)
}

func TestSubmissionEndpointFailedAttemptIs200(t *testing.T) {
	srv := newTestServer(t)

	rec := postSubmission(t, srv, secretBody(testWallet, "WRONG"))
	assert.Equal(t, http.StatusOK, rec.Code, "a graded failure is data, not a transport error")

	var resp submissions.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Results)
	assert.True(t, resp.Results.RetryAllowed)
}

func TestSubmissionEndpointStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	// invalid wallet
	rec := postSubmission(t, srv, secretBody("0xnope", "FIRSTSECRET"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// duplicate completion
	rec = postSubmission(t, srv, secretBody(testWallet, "FIRSTSECRET"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postSubmission(t, srv, secretBody(testWallet, "FIRSTSECRET"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader([]byte(`{broken`)))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postSubmission(t, srv, secretBody(testWallet, "FIRSTSECRET"))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/completions/%s/1001", testWallet), nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, req)

	require.Equal(t, http.StatusOK, getRec.Code)

	var status router.Status
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &status))
	assert.True(t, status.Completed)
	assert.Equal(t, 1, status.Attempts)
	assert.Equal(t, testWallet, status.Wallet)
}

func TestCompletionEndpointUnknownAchievement(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/completions/%s/9999", testWallet), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAchievementsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/achievements", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count        int `json:"count"`
		Achievements []struct {
			ID       string `json:"id"`
			TaskCode int64  `json:"taskCode"`
			Kind     string `json:"kind"`
		} `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 10, body.Count)
	assert.Equal(t, "0001", body.Achievements[0].ID)
	assert.Equal(t, "quiz", body.Achievements[0].Kind)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/achievements", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
