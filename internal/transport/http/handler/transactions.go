package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fintrack/fintrack-api/internal/application/transaction"
	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/pkg/validate"
	"github.com/fintrack/fintrack-api/internal/transport/http/middleware"
)

// TransactionHandler handles the per-user transaction log endpoints.
type TransactionHandler struct {
	svc transaction.Service
}

func NewTransactionHandler(svc transaction.Service) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

func (h *TransactionHandler) Append(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.AppendTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Transaction != nil {
		if err := validate.Struct(req.Transaction); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for i := range req.Transactions {
		if err := validate.Struct(&req.Transactions[i]); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	stored, err := h.svc.Append(r.Context(), userID, &req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PageEnvelope{Data: stored})
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, next, err := h.svc.List(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: items, Cursor: next})
}

func (h *TransactionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Clear(r.Context(), userID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "transactions cleared"})
}
