package domain

// SyncCodeEntry is one outstanding phone verification attempt.
// PK: code, SK: phone_number — the code alone is not globally unique,
// uniqueness is scoped to the (code, phone) pair.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type SyncCodeEntry struct {
	Code        string `json:"code" dynamodbav:"code"`
	PhoneNumber string `json:"phone_number" dynamodbav:"phone_number"`
	UserID      string `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt   int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// ValidationReason classifies a negative sync-code validation. These are
// expected outcomes, not errors; only storage faults surface as errors.
type ValidationReason string

const (
	ReasonInvalidFormat  ValidationReason = "invalid_format"
	ReasonNotFound       ValidationReason = "not_found"
	ReasonCorruptData    ValidationReason = "corrupt_data"
	ReasonIncompleteData ValidationReason = "incomplete_data"
	ReasonExpired        ValidationReason = "expired"
)

// SyncCodeValidation is the structured result of validating a (code, phone)
// pair. UserID is populated only when IsValid is true.
type SyncCodeValidation struct {
	IsValid bool             `json:"is_valid"`
	UserID  string           `json:"user_id,omitempty"`
	Reason  ValidationReason `json:"reason,omitempty"`
}
