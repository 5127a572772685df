package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fintrack/fintrack-api/internal/application/user"
	"github.com/fintrack/fintrack-api/internal/application/verification"
	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/pkg/validate"
	"github.com/fintrack/fintrack-api/internal/transport/http/middleware"
)

// UserHandler handles the authenticated user's profile endpoints. All routes
// operate on the token subject; there is no cross-user access.
type UserHandler struct {
	users    user.Service
	verifier verification.Service
}

func NewUserHandler(users user.Service, verifier verification.Service) *UserHandler {
	return &UserHandler{users: users, verifier: verifier}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.users.SetUserName(r.Context(), userID, req.Name)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.users.SetLanguage(r.Context(), userID, req.Language)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdatePhone claims a phone number. Verification state resets to unverified
// until the new number is proven with a sync code.
func (h *UserHandler) UpdatePhone(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdatePhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.verifier.SetPhoneNumber(r.Context(), userID, req.PhoneNumber); err != nil {
		httpError(w, err)
		return
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateAllowedEmails(w http.ResponseWriter, r *http.Request) {
	h.updateEmails(w, r, h.users.SetAllowedEmails)
}

func (h *UserHandler) UpdateConfirmedEmails(w http.ResponseWriter, r *http.Request) {
	h.updateEmails(w, r, h.users.SetConfirmedEmails)
}

func (h *UserHandler) updateEmails(w http.ResponseWriter, r *http.Request,
	set func(ctx context.Context, userID string, emails []string) (*domain.User, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateEmailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range req.Emails {
		req.Emails[i] = strings.ToLower(req.Emails[i])
	}
	u, err := set(r.Context(), userID, req.Emails)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.users.Delete(r.Context(), userID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
