package domain

import (
	"fmt"
	"time"
)

// PhoneState is the per-user phone verification state. Transitions are
// enforced by the methods on User so that impossible combinations (for
// example a verified phone with a pending code) cannot be produced.
type PhoneState string

const (
	// PhoneStateNone means no phone number is on record.
	PhoneStateNone PhoneState = "none"
	// PhoneStateUnverified means a phone number is claimed but not yet proven.
	PhoneStateUnverified PhoneState = "unverified"
	// PhoneStateCodeOutstanding means a sync code has been issued for the
	// claimed phone and has not been consumed or revoked yet.
	PhoneStateCodeOutstanding PhoneState = "code_outstanding"
	// PhoneStateVerified means the phone has been proven and is bound to the
	// user in the phone directory.
	PhoneStateVerified PhoneState = "verified"
)

// User is the per-user profile record. Created lazily as an empty record on
// first access; mutated only by the verification and user services.
type User struct {
	UserID          string     `json:"user_id" dynamodbav:"user_id"`
	UserName        string     `json:"user_name,omitempty" dynamodbav:"user_name"`
	PhoneNumber     string     `json:"phone_number,omitempty" dynamodbav:"phone_number"`
	PhoneState      PhoneState `json:"phone_state" dynamodbav:"phone_state"`
	PendingSyncCode string     `json:"-" dynamodbav:"pending_sync_code"`
	Language        string     `json:"language,omitempty" dynamodbav:"language"`
	ConfirmedEmails []string   `json:"confirmed_emails,omitempty" dynamodbav:"confirmed_emails"`
	AllowedEmails   []string   `json:"allowed_emails,omitempty" dynamodbav:"allowed_emails"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// PhoneVerified reports whether the user's phone has been proven.
func (u *User) PhoneVerified() bool {
	return u.PhoneState == PhoneStateVerified
}

// ClaimPhone records a new (already normalized) phone number. Any prior
// verification or outstanding code is discarded; an orphaned registry entry
// simply expires on its own.
func (u *User) ClaimPhone(phone string) {
	u.PhoneNumber = phone
	u.PhoneState = PhoneStateUnverified
	u.PendingSyncCode = ""
}

// AttachCode records an issued sync code for the claimed phone.
func (u *User) AttachCode(code string) error {
	switch u.PhoneState {
	case PhoneStateUnverified, PhoneStateCodeOutstanding:
		u.PhoneState = PhoneStateCodeOutstanding
		u.PendingSyncCode = code
		return nil
	case PhoneStateNone, "":
		return ErrPhoneNotSet
	default:
		return fmt.Errorf("cannot issue sync code in state %q: %w", u.PhoneState, ErrConflict)
	}
}

// ClearCode drops the outstanding code without verifying. No-op when no code
// is outstanding.
func (u *User) ClearCode() {
	u.PendingSyncCode = ""
	if u.PhoneState == PhoneStateCodeOutstanding {
		u.PhoneState = PhoneStateUnverified
	}
}

// MarkVerified transitions to the verified state, dropping the consumed code.
func (u *User) MarkVerified() error {
	switch u.PhoneState {
	case PhoneStateNone, "":
		return ErrPhoneNotSet
	default:
		u.PhoneState = PhoneStateVerified
		u.PendingSyncCode = ""
		return nil
	}
}

// UpdateNameRequest sets the display name shown in outbound messages.
type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// UpdateLanguageRequest sets the preferred locale for outbound messages.
type UpdateLanguageRequest struct {
	Language string `json:"language" validate:"required"`
}

// UpdatePhoneRequest claims a phone number prior to verification.
type UpdatePhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,min=7,max=20"`
}

// UpdateEmailsRequest replaces one of the user's email sets.
type UpdateEmailsRequest struct {
	Emails []string `json:"emails" validate:"required,dive,email"`
}
