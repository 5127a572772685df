package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fintrack/fintrack-api/internal/application/email"
	"github.com/fintrack/fintrack-api/internal/application/message"
	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/pkg/validate"
)

// WebhookHandler handles inbound payloads from the messaging gateway and the
// email forwarder. Both callers retry on 5xx, so handler errors are surfaced
// with their real status.
type WebhookHandler struct {
	messages message.Service
	emails   email.Service
}

func NewWebhookHandler(messages message.Service, emails email.Service) *WebhookHandler {
	return &WebhookHandler{messages: messages, emails: emails}
}

func (h *WebhookHandler) InboundMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&msg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.messages.Handle(r.Context(), &msg); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "processed"})
}

func (h *WebhookHandler) InboundEmail(w http.ResponseWriter, r *http.Request) {
	var em domain.InboundEmail
	if err := json.NewDecoder(r.Body).Decode(&em); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.emails.Handle(r.Context(), &em); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "processed"})
}
