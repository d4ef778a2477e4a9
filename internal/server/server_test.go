package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	result    *pipeline.Result
	err       error
	gotID     int64
	callCount int
}

func (s *stubHandler) HandleProductEvent(_ context.Context, productID int64) (*pipeline.Result, error) {
	s.callCount++
	s.gotID = productID
	return s.result, s.err
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postEvent(t *testing.T, srv *Server, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/products", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookProcessedResponse(t *testing.T) {
	handler := &stubHandler{result: &pipeline.Result{
		Outcome:             pipeline.OutcomeProcessed,
		ProductID:           42,
		AttachedCollections: []int64{1001, 1002},
	}}
	srv := New(config.ServerConfig{}, handler, NewNoopVerifier())

	rec := postEvent(t, srv, `{"id":42}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), handler.gotID)

	var response struct {
		Status      string  `json:"status"`
		ProductID   int64   `json:"product_id"`
		Collections []int64 `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "processed", response.Status)
	assert.Equal(t, int64(42), response.ProductID)
	assert.Equal(t, []int64{1001, 1002}, response.Collections)
}

func TestWebhookNotReadyIsAccepted(t *testing.T) {
	handler := &stubHandler{result: &pipeline.Result{Outcome: pipeline.OutcomeNotReady, ProductID: 42}}
	srv := New(config.ServerConfig{}, handler, NewNoopVerifier())

	rec := postEvent(t, srv, `{"id":42}`, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestWebhookInvalidSignatureRejected(t *testing.T) {
	handler := &stubHandler{result: &pipeline.Result{Outcome: pipeline.OutcomeProcessed}}
	srv := New(config.ServerConfig{}, handler, NewHMACVerifier("secret"))

	rec := postEvent(t, srv, `{"id":42}`, "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, handler.callCount)

	rec = postEvent(t, srv, `{"id":42}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, handler.callCount)
}

func TestWebhookValidSignatureAccepted(t *testing.T) {
	handler := &stubHandler{result: &pipeline.Result{Outcome: pipeline.OutcomeProcessed, ProductID: 42}}
	srv := New(config.ServerConfig{}, handler, NewHMACVerifier("secret"))

	body := `{"id":42}`
	rec := postEvent(t, srv, body, sign("secret", []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, handler.callCount)
}

func TestWebhookPayloadWithoutIDRejected(t *testing.T) {
	handler := &stubHandler{result: &pipeline.Result{Outcome: pipeline.OutcomeProcessed}}
	srv := New(config.ServerConfig{}, handler, NewNoopVerifier())

	assert.Equal(t, http.StatusBadRequest, postEvent(t, srv, `not json`, "").Code)
	assert.Equal(t, http.StatusBadRequest, postEvent(t, srv, `{"topic":"products/update"}`, "").Code)
	assert.Zero(t, handler.callCount)
}

func TestWebhookPipelineErrorIsInternal(t *testing.T) {
	handler := &stubHandler{err: errors.New("enrichment failed")}
	srv := New(config.ServerConfig{}, handler, NewNoopVerifier())

	rec := postEvent(t, srv, `{"id":42}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestHealthEndpoint(t *testing.T) {
	srv := New(config.ServerConfig{}, &stubHandler{}, NewNoopVerifier())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
