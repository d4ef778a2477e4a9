package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/pipeline"

	log "github.com/sirupsen/logrus"
)

// SignatureHeader carries the sender's HMAC of the raw body.
const SignatureHeader = "X-Webhook-Hmac-Sha256"

// ProductHandler runs one enrichment invocation for a product event.
type ProductHandler interface {
	HandleProductEvent(ctx context.Context, productID int64) (*pipeline.Result, error)
}

// Server exposes the inbound webhook endpoint. The payload is opaque except
// for the id field identifying the product.
type Server struct {
	pipeline ProductHandler
	verifier SignatureVerifier
	httpSrv  *http.Server
}

func New(cfg config.ServerConfig, p ProductHandler, verifier SignatureVerifier) *Server {
	s := &Server{
		pipeline: p,
		verifier: verifier,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/products", s.handleProductEvent)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Infof("🚀 Webhook server listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type eventPayload struct {
	ID int64 `json:"id"`
}

func (s *Server) handleProductEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !s.verifier.Verify(body, r.Header.Get(SignatureHeader)) {
		log.Warnf("🚫 Rejected webhook with invalid signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ID == 0 {
		http.Error(w, "payload has no product id", http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.HandleProductEvent(r.Context(), payload.ID)
	if err != nil {
		log.Errorf("❌ Enrichment failed for product %d: %v", payload.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	switch result.Outcome {
	case pipeline.OutcomeNotReady:
		// Accepted but deferred: the sender may redeliver later.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(result.Outcome)})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      string(result.Outcome),
			"product_id":  result.ProductID,
			"collections": result.AttachedCollections,
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("❌ Failed to write response: %v", err)
	}
}
