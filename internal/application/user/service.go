package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
)

// Service manages the user profile: name, language, email allow-lists and
// account removal. Phone and sync-code mutations live in the verification
// service.
type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	SetUserName(ctx context.Context, userID, name string) (*domain.User, error)
	SetLanguage(ctx context.Context, userID, language string) (*domain.User, error)
	SetAllowedEmails(ctx context.Context, userID string, emails []string) (*domain.User, error)
	SetConfirmedEmails(ctx context.Context, userID string, emails []string) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
}

type codeStore interface {
	Delete(ctx context.Context, code, phone string) error
}

type directoryStore interface {
	Lookup(ctx context.Context, key string) (*domain.DirectoryRecord, error)
	Unbind(ctx context.Context, key string) error
}

type purgeableLog interface {
	DeleteAll(ctx context.Context, userID string) error
}

type service struct {
	users     userStore
	codes     codeStore
	directory directoryStore
	txs       purgeableLog
	events    purgeableLog
	waba      waba.Sender // optional
}

type ServiceDeps struct {
	UserRepo        userStore
	CodeRepo        codeStore
	DirectoryRepo   directoryStore
	TransactionRepo purgeableLog
	EventRepo       purgeableLog
	WabaSender      waba.Sender
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:     deps.UserRepo,
		codes:     deps.CodeRepo,
		directory: deps.DirectoryRepo,
		txs:       deps.TransactionRepo,
		events:    deps.EventRepo,
		waba:      deps.WabaSender,
	}
}

// Get returns the profile, creating an empty record on first access.
func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.getOrCreate(ctx, userID)
}

func (s *service) SetUserName(ctx context.Context, userID, name string) (*domain.User, error) {
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.UserName = name
	if err := s.users.Update(ctx, userID, map[string]interface{}{"user_name": name}); err != nil {
		return nil, err
	}
	return u, nil
}

// SetLanguage switches the preferred locale for outbound messages. When the
// user's phone is verified a confirmation is sent in the new language, so the
// user sees immediately that the switch took effect.
func (s *service) SetLanguage(ctx context.Context, userID, language string) (*domain.User, error) {
	if !waba.SupportedLanguage(language) {
		return nil, fmt.Errorf("unsupported language %q: %w", language, domain.ErrBadRequest)
	}
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Language = language
	if err := s.users.Update(ctx, userID, map[string]interface{}{"language": language}); err != nil {
		return nil, err
	}

	if s.waba != nil && u.PhoneVerified() {
		err := s.waba.Send(ctx, []waba.Message{{
			To:       u.PhoneNumber,
			Template: waba.TemplateLanguageChanged,
			Language: language,
			Context:  map[string]any{"userName": u.UserName},
		}})
		if err != nil {
			slog.Warn("failed to send language change notification", "user_id", userID, "err", err)
		}
	}
	return u, nil
}

func (s *service) SetAllowedEmails(ctx context.Context, userID string, emails []string) (*domain.User, error) {
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.AllowedEmails = emails
	if err := s.users.Update(ctx, userID, map[string]interface{}{"allowed_emails": emails}); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) SetConfirmedEmails(ctx context.Context, userID string, emails []string) (*domain.User, error) {
	u, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.ConfirmedEmails = emails
	if err := s.users.Update(ctx, userID, map[string]interface{}{"confirmed_emails": emails}); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes the account: directory bindings for the phone and confirmed
// emails, any outstanding sync code, both append-only logs, and finally the
// profile record itself. Cleanup steps after the first are best-effort so a
// partial failure never strands a half-deleted account behind an error; the
// record delete at the end is the one that must succeed.
func (s *service) Delete(ctx context.Context, userID string) error {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if u.PendingSyncCode != "" && u.PhoneNumber != "" {
		if err := s.codes.Delete(ctx, u.PendingSyncCode, u.PhoneNumber); err != nil {
			slog.Warn("failed to revoke sync code during account deletion", "user_id", userID, "err", err)
		}
	}
	if u.PhoneNumber != "" {
		s.unbindOwned(ctx, u.PhoneNumber, userID)
	}
	for _, email := range u.ConfirmedEmails {
		s.unbindOwned(ctx, email, userID)
	}
	if err := s.txs.DeleteAll(ctx, userID); err != nil {
		slog.Warn("failed to purge transactions during account deletion", "user_id", userID, "err", err)
	}
	if err := s.events.DeleteAll(ctx, userID); err != nil {
		slog.Warn("failed to purge events during account deletion", "user_id", userID, "err", err)
	}
	return s.users.Delete(ctx, userID)
}

// unbindOwned removes a directory binding only when it still points at the
// user being deleted. A later claimant's binding is left alone.
func (s *service) unbindOwned(ctx context.Context, key, userID string) {
	rec, err := s.directory.Lookup(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("directory lookup failed during account deletion", "key", key, "err", err)
		return
	}
	if rec.OwnerID != userID {
		return
	}
	if err := s.directory.Unbind(ctx, key); err != nil {
		slog.Warn("failed to unbind directory key during account deletion", "key", key, "err", err)
	}
}

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
