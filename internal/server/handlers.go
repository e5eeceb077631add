package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/validation"
	"tubescript/internal/models"

	"github.com/google/uuid"
)

const (
	userIDHeader    = "X-User-ID"
	anonTokenHeader = "X-Anon-Token"

	// Webhook payloads are small; bound the read anyway.
	maxBodyBytes = 1 << 20
)

type generateResponse struct {
	Success bool                     `json:"success"`
	Data    *models.GenerationResult `json:"data"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := decodeBody(r)
	if err != nil {
		s.errHandler.WriteError(w, err)
		return
	}

	if err := validation.ValidateGenerateRequest(body); err != nil {
		s.errHandler.WriteError(w, err)
		return
	}

	req := models.GenerationRequest{
		Topic:       body["topic"].(string),
		ContentType: body["contentType"].(string),
	}
	if raw, ok := body["referenceUrl"].(string); ok {
		req.ReferenceURL = raw
	}

	identity := s.identityFrom(w, r)

	// The gate runs before any provider call is issued.
	if err := s.gate.CheckAndReserve(r.Context(), identity); err != nil {
		s.errHandler.WriteError(w, err)
		return
	}

	result, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.recordOutcome(r.Context(), start, "failed")
		s.errHandler.WriteError(w, err)
		return
	}
	s.recordOutcome(r.Context(), start, "completed")

	if err := s.gate.Commit(r.Context(), identity); err != nil {
		// The script was generated; an uncounted generation is preferable
		// to a failed response here.
		s.logger.Error("usage commit failed", map[string]interface{}{
			"identity": identity.Key(),
			"error":    err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, generateResponse{Success: true, Data: result})
}

// identityFrom resolves the caller identity. Authenticated callers carry a
// user id verified by the identity provider upstream; anonymous callers
// carry a client-held token, minted here on first contact and echoed back.
func (s *Server) identityFrom(w http.ResponseWriter, r *http.Request) models.Identity {
	if userID := r.Header.Get(userIDHeader); userID != "" {
		return models.Identity{UserID: userID}
	}

	token := r.Header.Get(anonTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}
	w.Header().Set(anonTokenHeader, token)

	return models.Identity{AnonToken: token}
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
	UserID  string `json:"userId"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errHandler.WriteError(w, apperrors.NewValidationError("", "malformed JSON body"))
		return
	}
	if req.UserID == "" {
		s.errHandler.WriteError(w, apperrors.NewValidationError("userId", "user not authenticated"))
		return
	}

	sessionID, err := s.billing.CreateCheckoutSession(r.Context(), req.UserID, req.PriceID)
	if err != nil {
		s.errHandler.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: sessionID})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.errHandler.WriteError(w, apperrors.NewWebhookVerificationError(err))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := s.billing.HandleWebhook(r.Context(), payload, signature); err != nil {
		s.errHandler.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, apperrors.NewValidationError("", "malformed JSON body")
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
