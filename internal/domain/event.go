package domain

// Event categories mirror the activity feed shown in the frontend.
const (
	EventCategoryEmail        = "email"
	EventCategoryPhone        = "phone"
	EventCategoryUser         = "user"
	EventCategoryPayment      = "payment"
	EventCategorySystem       = "system"
	EventCategoryNotification = "notification"
	EventCategoryInfo         = "info"
	EventCategoryWarning      = "warning"
	EventCategorySuccess      = "success"
	EventCategoryError        = "error"
)

// Event is one entry in a user's activity feed.
// PK: user_id, SK: event_id (ULID).
type Event struct {
	UserID      string `json:"-" dynamodbav:"user_id"`
	EventID     string `json:"-" dynamodbav:"event_id"`
	Title       string `json:"title" dynamodbav:"title" validate:"required"`
	Description string `json:"description" dynamodbav:"description" validate:"required"`
	Category    string `json:"category" dynamodbav:"category" validate:"required,oneof=email phone user payment system notification info warning success error"`
	Date        string `json:"date" dynamodbav:"date"` // RFC 3339
}
