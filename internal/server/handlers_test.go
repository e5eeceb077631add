package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tubescript/internal/common/config"
	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls  int
	result *models.GenerationResult
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGate struct {
	checkErr  error
	commitErr error
	checked   []models.Identity
	committed []models.Identity
}

func (f *fakeGate) CheckAndReserve(ctx context.Context, identity models.Identity) error {
	f.checked = append(f.checked, identity)
	return f.checkErr
}

func (f *fakeGate) Commit(ctx context.Context, identity models.Identity) error {
	f.committed = append(f.committed, identity)
	return f.commitErr
}

type fakeBilling struct {
	sessionID  string
	checkoutEr error
	webhookErr error
	payloads   [][]byte
	signatures []string
}

func (f *fakeBilling) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error) {
	if f.checkoutEr != nil {
		return "", f.checkoutEr
	}
	return f.sessionID, nil
}

func (f *fakeBilling) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	f.payloads = append(f.payloads, payload)
	f.signatures = append(f.signatures, signature)
	return f.webhookErr
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(t *testing.T, gen *fakeGenerator, gate *fakeGate, billing *fakeBilling) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	srv := New(cfg, gen, gate, billing, &fakePinger{}, &fakePinger{}, logger.NewTestLogger(t))
	return srv.Handler()
}

func postJSON(handler http.Handler, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{result: &models.GenerationResult{Script: "the script", StyleApplied: true}}
	gate := &fakeGate{}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Unboxing a new gadget","contentType":"Vlog","referenceUrl":"https://youtube.com/@x"}`,
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                    `json:"success"`
		Data    models.GenerationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "the script", resp.Data.Script)
	assert.True(t, resp.Data.StyleApplied)

	require.Len(t, gate.checked, 1)
	require.Len(t, gate.committed, 1)
	assert.Equal(t, "user-1", gate.checked[0].UserID)
}

func TestHandleGenerate_QuotaRejectedBeforeGeneration(t *testing.T) {
	gen := &fakeGenerator{result: &models.GenerationResult{Script: "unused"}}
	gate := &fakeGate{checkErr: apperrors.NewQuotaExceededError("user-1", 3)}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Unboxing a new gadget","contentType":"Vlog"}`,
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, 0, gen.calls, "no provider work once the quota is exhausted")
	assert.Empty(t, gate.committed)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Free Limit Reached", resp.Error)
	assert.Equal(t, "QUOTA_EXCEEDED", resp.Code)
}

func TestHandleGenerate_ValidationFailure(t *testing.T) {
	gen := &fakeGenerator{}
	gate := &fakeGate{}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Hi","contentType":"Vlog"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, gen.calls)
	assert.Empty(t, gate.checked, "invalid requests never reach the gate")

	var resp struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.Equal(t, "topic", resp.Field)
}

func TestHandleGenerate_GenerationFailureIsBadGateway(t *testing.T) {
	gen := &fakeGenerator{err: apperrors.NewGenerationError(assert.AnError)}
	gate := &fakeGate{}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Unboxing a new gadget","contentType":"Vlog"}`,
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, gate.committed, "failed generations are not counted")
}

func TestHandleGenerate_MintsAnonymousToken(t *testing.T) {
	gen := &fakeGenerator{result: &models.GenerationResult{Script: "s"}}
	gate := &fakeGate{}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Unboxing a new gadget","contentType":"Vlog"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-Anon-Token")
	require.NotEmpty(t, token, "first anonymous contact gets a minted token")
	require.Len(t, gate.checked, 1)
	assert.Equal(t, token, gate.checked[0].AnonToken)
}

func TestHandleGenerate_EchoesExistingAnonymousToken(t *testing.T) {
	gen := &fakeGenerator{result: &models.GenerationResult{Script: "s"}}
	gate := &fakeGate{}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Unboxing a new gadget","contentType":"Vlog"}`,
		map[string]string{"X-Anon-Token": "tok-existing"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-existing", rec.Header().Get("X-Anon-Token"))
	require.Len(t, gate.checked, 1)
	assert.Equal(t, "tok-existing", gate.checked[0].AnonToken)
}

func TestHandleGenerate_CommitFailureStillSucceeds(t *testing.T) {
	gen := &fakeGenerator{result: &models.GenerationResult{Script: "s"}}
	gate := &fakeGate{commitErr: assert.AnError}
	handler := newTestServer(t, gen, gate, &fakeBilling{})

	rec := postJSON(handler, "/api/scripts/generate",
		`{"topic":"Unboxing a new gadget","contentType":"Vlog"}`,
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code, "a generated script is returned even when the count fails")
}

func TestHandleCheckout(t *testing.T) {
	billing := &fakeBilling{sessionID: "cs_test_123"}
	handler := newTestServer(t, &fakeGenerator{}, &fakeGate{}, billing)

	rec := postJSON(handler, "/api/billing/checkout",
		`{"userId":"user-1","priceId":"price_1"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cs_test_123", resp.SessionID)
}

func TestHandleCheckout_RequiresUser(t *testing.T) {
	handler := newTestServer(t, &fakeGenerator{}, &fakeGate{}, &fakeBilling{})

	rec := postJSON(handler, "/api/billing/checkout", `{"priceId":"price_1"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhook_PassesRawBodyAndSignature(t *testing.T) {
	billing := &fakeBilling{}
	handler := newTestServer(t, &fakeGenerator{}, &fakeGate{}, billing)

	payload := `{"id":"evt_1","type":"checkout.session.completed"}`
	rec := postJSON(handler, "/api/billing/webhook", payload,
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, billing.payloads, 1)
	assert.Equal(t, payload, string(billing.payloads[0]), "signature checks need the raw body untouched")
	assert.Equal(t, "t=1,v1=abc", billing.signatures[0])
}

func TestHandleWebhook_VerificationFailure(t *testing.T) {
	billing := &fakeBilling{webhookErr: apperrors.NewWebhookVerificationError(assert.AnError)}
	handler := newTestServer(t, &fakeGenerator{}, &fakeGate{}, billing)

	rec := postJSON(handler, "/api/billing/webhook", `{}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	handler := newTestServer(t, &fakeGenerator{}, &fakeGate{}, &fakeBilling{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
