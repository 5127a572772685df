package domain

// Transaction types, methods, and statuses accepted from the extraction
// pipeline and the API.
const (
	TxTypeExpense  = "expense"
	TxTypeIncome   = "income"
	TxTypeTransfer = "transfer"

	TxMethodCard     = "card"
	TxMethodCash     = "cash"
	TxMethodTransfer = "transfer"
	TxMethodWhatsApp = "whatsapp"

	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
	TxStatusFailed    = "failed"
)

// Transaction is one financial movement extracted from a message or entered
// through the API. PK: user_id, SK: tx_id (ULID, so range queries return
// creation order).
type Transaction struct {
	UserID      string  `json:"-" dynamodbav:"user_id"`
	TxID        string  `json:"id" dynamodbav:"tx_id"`
	Type        string  `json:"type" dynamodbav:"type" validate:"omitempty,oneof=expense income transfer"`
	Amount      float64 `json:"amount" dynamodbav:"amount"`
	Description string  `json:"description" dynamodbav:"description"`
	Category    string  `json:"category" dynamodbav:"category"`
	Date        string  `json:"date" dynamodbav:"date"` // YYYY-MM-DD
	Time        string  `json:"time" dynamodbav:"time"` // HH:MM
	Location    string  `json:"location,omitempty" dynamodbav:"location"`
	MediaURL    string  `json:"mediaUrl,omitempty" dynamodbav:"media_url"`
	Method      string  `json:"method" dynamodbav:"method" validate:"omitempty,oneof=card cash transfer whatsapp"`
	Status      string  `json:"status" dynamodbav:"status" validate:"omitempty,oneof=completed pending failed"`
}

// AppendTransactionsRequest accepts a single transaction, a batch, or both.
type AppendTransactionsRequest struct {
	Transaction  *Transaction  `json:"transaction"`
	Transactions []Transaction `json:"transactions"`
}
