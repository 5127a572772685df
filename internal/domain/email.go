package domain

// InboundEmail is the parsed payload delivered by the inbound-email webhook.
type InboundEmail struct {
	Envelope struct {
		From    string `json:"from"`
		To      string `json:"to"`
		RawSize int    `json:"rawSize"`
	} `json:"envelope"`
	SMTPHeaders   map[string]string `json:"smtpHeaders"`
	ParsedHeaders map[string]string `json:"parsedHeaders"`
	Subject       string            `json:"subject"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Date          string            `json:"date"`
	MessageID     string            `json:"messageId"`
	Body          string            `json:"body"`
}

// InboundMessage is a standardized inbound WhatsApp message from the
// messaging gateway webhook.
type InboundMessage struct {
	From      string `json:"from" validate:"required"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
	MediaURL  string `json:"media_url"`
}
