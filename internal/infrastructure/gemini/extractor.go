package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fintrack/fintrack-api/internal/config"
	"github.com/fintrack/fintrack-api/internal/domain"
	"google.golang.org/genai"
)

// Extractor parses financial transactions out of free-form message text
// using the Gemini API. The model and prompt are opaque collaborators; the
// rest of the system only sees the structured result.
type Extractor struct {
	client *genai.Client
	model  string
}

func NewExtractor(ctx context.Context, cfg *config.Config) (*Extractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Extractor{client: client, model: cfg.GeminiModel}, nil
}

const extractionPrompt = `Extract financial transactions from the following message.
Respond with a JSON array of objects with fields: type (expense|income|transfer),
amount (number), description, category, date (YYYY-MM-DD, empty if unknown),
time (HH:MM, empty if unknown), method (card|cash|transfer|whatsapp).
Respond with an empty array if the message contains no transaction.

Message:
`

// Extract returns the transactions found in text. An empty slice with a nil
// error means the model understood the message but found no transactions.
func (e *Extractor) Extract(ctx context.Context, text string) ([]domain.Transaction, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.model,
		genai.Text(extractionPrompt+text),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, nil
	}
	var txs []domain.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return txs, nil
}
