package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fintrack/fintrack-api/internal/application/verification"
	"github.com/fintrack/fintrack-api/internal/pkg/phone"
	"github.com/fintrack/fintrack-api/internal/transport/http/middleware"
)

// VerificationHandler handles the sync-code lifecycle endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// CreateSyncCode issues (or re-issues) the caller's sync code. Repeated calls
// within the code's lifetime return the same code.
func (h *VerificationHandler) CreateSyncCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	code, err := h.svc.CreateSyncCode(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SyncCodeEnvelope{Code: code})
}

func (h *VerificationHandler) RevokeSyncCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.svc.RevokeSyncCode(r.Context(), userID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "sync code revoked"})
}

type validateRequest struct {
	Code        string `json:"code"`
	PhoneNumber string `json:"phone_number"`
}

type validateResponse struct {
	IsValid bool   `json:"is_valid"`
	UserID  string `json:"user_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Validate checks a (code, phone) pair without consuming it. Exposed for
// sibling services that need to resolve a sync code to its owner.
func (h *VerificationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Registry entries are keyed by digits-only phones; accept "+1555..." here.
	res, err := h.svc.Validate(r.Context(), req.Code, phone.Normalize(req.PhoneNumber))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		IsValid: res.IsValid,
		UserID:  res.UserID,
		Reason:  string(res.Reason),
	})
}
