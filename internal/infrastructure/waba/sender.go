package waba

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Template names understood by the WhatsApp gateway worker. The worker owns
// rendering and localization; this client only names the template and passes
// context values.
const (
	TemplateGettingStarted    = "gettingStarted"
	TemplateVerified          = "verified"
	TemplateHelloVerified     = "helloVerified"
	TemplateUnableToVerify    = "unableToVerify"
	TemplateLanguageChanged   = "languageChanged"
	TemplateTransactionParsed = "transactionParsed"
	TemplateNotUnderstood     = "notUnderstood"
)

var supportedLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true, "pt": true,
}

// SupportedLanguage reports whether the gateway has templates for lang.
func SupportedLanguage(lang string) bool {
	return supportedLanguages[lang]
}

// Message is one templated outbound WhatsApp message.
type Message struct {
	To               string         `json:"to"`
	Template         string         `json:"template"`
	Language         string         `json:"language"`
	ReplyToMessageID string         `json:"reply_to_message_id,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
}

// Sender delivers templated messages through the WhatsApp gateway worker.
type Sender interface {
	Send(ctx context.Context, messages []Message) error
}

type sender struct {
	workerURL string
	client    *http.Client
}

func NewSender(workerURL string) Sender {
	return &sender{
		workerURL: workerURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *sender) Send(ctx context.Context, messages []Message) error {
	for i := range messages {
		if !supportedLanguages[messages[i].Language] {
			messages[i].Language = "en"
		}
	}
	body, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal waba messages: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.workerURL+"/messages/sendMany", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call waba worker: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("waba worker responded with status %d", resp.StatusCode)
	}
	return nil
}
