package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	"github.com/fintrack/fintrack-api/internal/pkg/phone"
)

// generateAttempts bounds collision retries during code generation. The
// keyspace holds 90,000 codes per phone, so hitting the bound means
// something is badly wrong, not bad luck.
const generateAttempts = 10

// Service owns the sync-code registry and the per-user phone verification
// state machine. All state lives in the external stores; the service itself
// is stateless and safe for concurrent use.
type Service interface {
	// Registry operations.
	Generate(ctx context.Context, userID, phoneNumber string) (string, error)
	Validate(ctx context.Context, code, phoneNumber string) (domain.SyncCodeValidation, error)
	Revoke(ctx context.Context, code, phoneNumber string) (bool, error)

	// Coordinator operations, keyed by the authenticated user.
	SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error
	CreateSyncCode(ctx context.Context, userID string) (string, error)
	RevokeSyncCode(ctx context.Context, userID string) (bool, error)

	// VerifyPhone consumes a (code, phone) pair submitted from an inbound
	// message. Returns true when the phone is (or already was) verified.
	VerifyPhone(ctx context.Context, code, phoneNumber string) (bool, error)
}

type codeStore interface {
	Put(ctx context.Context, e *domain.SyncCodeEntry) error
	Get(ctx context.Context, code, phone string) (*domain.SyncCodeEntry, error)
	Delete(ctx context.Context, code, phone string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type directoryStore interface {
	Bind(ctx context.Context, key, ownerID string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	codes     codeStore
	users     userStore
	directory directoryStore
	waba      waba.Sender // optional
	sms       smsSender   // optional
	ttl       time.Duration
}

type ServiceDeps struct {
	CodeRepo      codeStore
	UserRepo      userStore
	DirectoryRepo directoryStore
	WabaSender    waba.Sender
	SMSSender     smsSender
	CodeTTL       time.Duration
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.CodeTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		codes:     deps.CodeRepo,
		users:     deps.UserRepo,
		directory: deps.DirectoryRepo,
		waba:      deps.WabaSender,
		sms:       deps.SMSSender,
		ttl:       ttl,
	}
}

// Generate finds a free (code, phone) slot and persists a new entry for it.
// An existing expired entry counts as free and is overwritten.
func (s *service) Generate(ctx context.Context, userID, phoneNumber string) (string, error) {
	for i := 0; i < generateAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(90000))
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%05d", n.Int64()+10000)

		existing, err := s.codes.Get(ctx, code, phoneNumber)
		switch {
		case err == nil:
			if existing.ExpiresAt >= time.Now().Unix() {
				// Live entry owned by someone; try another code.
				continue
			}
		case errors.Is(err, domain.ErrNotFound):
			// Slot is free.
		case errors.Is(err, domain.ErrCorruptData):
			slog.Warn("overwriting corrupt sync code entry", "code", code)
		default:
			return "", err
		}

		entry := &domain.SyncCodeEntry{
			Code:        code,
			PhoneNumber: phoneNumber,
			UserID:      userID,
			ExpiresAt:   time.Now().Add(s.ttl).Unix(),
		}
		if err := s.codes.Put(ctx, entry); err != nil {
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("no free slot for phone %s after %d attempts: %w",
		phoneNumber, generateAttempts, domain.ErrCodeGenerationExhausted)
}

// Validate checks a (code, phone) pair and reports a structured result.
// Expected negatives (not found, expired, malformed) are results, not
// errors; only storage faults return a non-nil error. A valid entry is NOT
// consumed here — revocation is the caller's responsibility, so Validate
// stays read-only idempotent.
func (s *service) Validate(ctx context.Context, code, phoneNumber string) (domain.SyncCodeValidation, error) {
	if code == "" {
		return domain.SyncCodeValidation{Reason: domain.ReasonInvalidFormat}, nil
	}

	entry, err := s.codes.Get(ctx, code, phoneNumber)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.SyncCodeValidation{Reason: domain.ReasonNotFound}, nil
	case errors.Is(err, domain.ErrCorruptData):
		return domain.SyncCodeValidation{Reason: domain.ReasonCorruptData}, nil
	case err != nil:
		return domain.SyncCodeValidation{}, err
	}

	if entry.UserID == "" || entry.ExpiresAt == 0 {
		return domain.SyncCodeValidation{Reason: domain.ReasonIncompleteData}, nil
	}

	if entry.ExpiresAt < time.Now().Unix() {
		// Lazy cleanup: expired entries are removed on discovery, not swept.
		if err := s.codes.Delete(ctx, code, phoneNumber); err != nil {
			slog.Warn("failed to delete expired sync code", "code", code, "err", err)
		}
		return domain.SyncCodeValidation{Reason: domain.ReasonExpired}, nil
	}

	return domain.SyncCodeValidation{IsValid: true, UserID: entry.UserID}, nil
}

// Revoke deletes the (code, phone) entry. Absence is not an error.
func (s *service) Revoke(ctx context.Context, code, phoneNumber string) (bool, error) {
	if err := s.codes.Delete(ctx, code, phoneNumber); err != nil {
		return false, err
	}
	return true, nil
}

// SetPhoneNumber claims a phone number for the user, resetting any prior
// verification. An outstanding code for the old phone is left to expire.
func (s *service) SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error {
	normalized := phone.Normalize(phoneNumber)
	if normalized == "" {
		return fmt.Errorf("phone number must contain digits: %w", domain.ErrBadRequest)
	}
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	u.ClaimPhone(normalized)
	return s.users.Put(ctx, u)
}

// CreateSyncCode issues (or re-issues) the user's sync code. While an
// outstanding code is still live the same code is returned, so repeated
// calls within the TTL are idempotent.
func (s *service) CreateSyncCode(ctx context.Context, userID string) (string, error) {
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.PhoneNumber == "" {
		return "", domain.ErrPhoneNotSet
	}

	if u.PendingSyncCode != "" {
		res, err := s.Validate(ctx, u.PendingSyncCode, u.PhoneNumber)
		if err != nil {
			return "", err
		}
		if res.IsValid {
			return u.PendingSyncCode, nil
		}
		if _, err := s.Revoke(ctx, u.PendingSyncCode, u.PhoneNumber); err != nil {
			return "", err
		}
		u.ClearCode()
	}

	code, err := s.Generate(ctx, userID, u.PhoneNumber)
	if err != nil {
		return "", err
	}
	if err := u.AttachCode(code); err != nil {
		return "", err
	}
	if err := s.users.Put(ctx, u); err != nil {
		return "", err
	}

	if s.sms != nil {
		if err := s.sms.SendSMS(ctx, "+"+u.PhoneNumber, "Your verification code: "+code); err != nil {
			slog.Warn("failed to send sync code SMS", "user_id", userID, "err", err)
		}
	}
	return code, nil
}

// RevokeSyncCode drops the user's outstanding code. Idempotent when no code
// is outstanding.
func (s *service) RevokeSyncCode(ctx context.Context, userID string) (bool, error) {
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.PhoneNumber == "" {
		return false, domain.ErrPhoneNotSet
	}
	if u.PendingSyncCode == "" {
		return true, nil
	}
	if _, err := s.Revoke(ctx, u.PendingSyncCode, u.PhoneNumber); err != nil {
		return false, err
	}
	u.ClearCode()
	if err := s.users.Put(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

// VerifyPhone validates the submitted code and, on success, binds the phone
// to its owner and consumes the code. The validate-bind-persist-revoke
// sequence is not wrapped in a transaction; a re-submitted code lands on the
// already-verified branch and is a no-op.
func (s *service) VerifyPhone(ctx context.Context, code, phoneNumber string) (bool, error) {
	normalized := phone.Normalize(phoneNumber)
	res, err := s.Validate(ctx, code, normalized)
	if err != nil {
		return false, err
	}
	if !res.IsValid {
		slog.Info("sync code validation failed", "phone", normalized, "reason", res.Reason)
		return false, nil
	}

	u, err := s.getOrCreate(ctx, res.UserID)
	if err != nil {
		return false, err
	}
	if u.PhoneVerified() {
		// Idempotent: no second directory write, no user mutation.
		return true, nil
	}
	if u.PhoneNumber == "" {
		return false, nil
	}

	if err := u.MarkVerified(); err != nil {
		return false, err
	}
	if err := s.directory.Bind(ctx, u.PhoneNumber, u.UserID); err != nil {
		return false, err
	}
	if err := s.users.Put(ctx, u); err != nil {
		return false, err
	}
	if _, err := s.Revoke(ctx, code, normalized); err != nil {
		slog.Warn("failed to revoke consumed sync code", "user_id", u.UserID, "err", err)
	}

	// Post-commit notification: dispatched after the durable writes, failures
	// logged but never rolled back.
	s.notifyVerified(ctx, u)
	return true, nil
}

func (s *service) notifyVerified(ctx context.Context, u *domain.User) {
	if s.waba == nil {
		return
	}
	lang := u.Language
	if lang == "" {
		lang = phone.Language(u.PhoneNumber)
	}
	err := s.waba.Send(ctx, []waba.Message{{
		To:       u.PhoneNumber,
		Template: waba.TemplateVerified,
		Language: lang,
		Context:  map[string]any{"userName": u.UserName},
	}})
	if err != nil {
		slog.Warn("failed to send verified notification", "user_id", u.UserID, "err", err)
	}
}

// getOrCreate loads the user record, creating an empty one on first access.
func (s *service) getOrCreate(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := time.Now().UTC()
	u = &domain.User{
		UserID:     userID,
		PhoneState: domain.PhoneStateNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
