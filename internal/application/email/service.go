package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	"github.com/fintrack/fintrack-api/internal/pkg/id"
	"github.com/fintrack/fintrack-api/internal/pkg/phone"
)

const googleForwardSender = "forwarding-noreply@google.com"

// confirmLinkRe matches the Gmail forwarding confirmation URL in the body of
// a forwarding-noreply email.
var confirmLinkRe = regexp.MustCompile(`https://[a-z0-9.-]*google\.com/mail[^\s"<>]*`)

// Association subjects are nothing but phone numbers, "+15551234567+34600111222":
// the sender asks to bind their address to each listed phone. The whole-subject
// gate keeps emails that merely mention a phone number out of the flow.
var (
	associationSubjectRe = regexp.MustCompile(`^(\+[0-9]{7,15})+$`)
	associationPhoneRe   = regexp.MustCompile(`\+([0-9]{7,15})`)
)

// archiver stores the raw inbound payload for audit and replay.
type archiver interface {
	PutJSON(ctx context.Context, key string, data []byte) error
}

type directoryStore interface {
	Lookup(ctx context.Context, key string) (*domain.DirectoryRecord, error)
	Bind(ctx context.Context, key, ownerID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type eventAppender interface {
	Append(ctx context.Context, userID string, e *domain.Event) (*domain.Event, error)
}

// Service handles the inbound-email webhook: archival, Gmail forwarding
// confirmation, and email-to-phone association.
type Service interface {
	Handle(ctx context.Context, email *domain.InboundEmail) error
}

type service struct {
	archive   archiver
	directory directoryStore
	users     userStore
	events    eventAppender
	waba      waba.Sender // optional
	client    *http.Client
}

type ServiceDeps struct {
	Archive       archiver
	DirectoryRepo directoryStore
	UserRepo      userStore
	EventService  eventAppender
	WabaSender    waba.Sender
}

func NewService(deps ServiceDeps) Service {
	return &service{
		archive:   deps.Archive,
		directory: deps.DirectoryRepo,
		users:     deps.UserRepo,
		events:    deps.EventService,
		waba:      deps.WabaSender,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Handle archives the raw email first, so nothing is lost even when the rest
// of the pipeline fails, then dispatches on sender and subject.
func (s *service) Handle(ctx context.Context, email *domain.InboundEmail) error {
	if err := s.archiveRaw(ctx, email); err != nil {
		slog.Warn("failed to archive inbound email", "from", email.From, "err", err)
	}

	from := senderAddress(email)
	if from == googleForwardSender {
		return s.confirmForwarding(ctx, email)
	}
	if subject := strings.TrimSpace(email.Subject); associationSubjectRe.MatchString(subject) {
		return s.associate(ctx, from, associationPhoneRe.FindAllStringSubmatch(subject, -1))
	}
	slog.Info("inbound email ignored", "from", from, "subject", email.Subject)
	return nil
}

func (s *service) archiveRaw(ctx context.Context, email *domain.InboundEmail) error {
	if s.archive == nil {
		return nil
	}
	raw, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal inbound email: %w", err)
	}
	key := fmt.Sprintf("email-received/%d-%s.json", time.Now().UTC().Unix(), id.New())
	return s.archive.PutJSON(ctx, key, raw)
}

// confirmForwarding auto-accepts a Gmail forwarding request by visiting the
// confirmation link. Gmail serves the link on mail.google.com but the accept
// endpoint lives on mail-settings.google.com.
func (s *service) confirmForwarding(ctx context.Context, email *domain.InboundEmail) error {
	link := confirmLinkRe.FindString(email.Body)
	if link == "" {
		return fmt.Errorf("no confirmation link in forwarding email: %w", domain.ErrBadRequest)
	}
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parse confirmation link: %w", err)
	}
	u.Host = "mail-settings.google.com"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("confirm gmail forwarding: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gmail forwarding confirmation responded with status %d", resp.StatusCode)
	}
	slog.Info("gmail forwarding confirmed", "to", email.To)
	return nil
}

// associate binds the sender's address to each phone listed in the subject.
// Each phone must already belong to a user; the email is bound to that owner
// and added to the owner's confirmed set.
func (s *service) associate(ctx context.Context, from string, matches [][]string) error {
	if from == "" {
		return fmt.Errorf("association email without sender: %w", domain.ErrBadRequest)
	}
	var firstErr error
	for _, m := range matches {
		p := phone.Normalize(m[1])
		if err := s.associateOne(ctx, from, p); err != nil {
			slog.Warn("email association failed", "email", from, "phone", p, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *service) associateOne(ctx context.Context, from, phoneNumber string) error {
	rec, err := s.directory.Lookup(ctx, phoneNumber)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("phone %s is not registered: %w", phoneNumber, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}

	u, err := s.users.Get(ctx, rec.OwnerID)
	if err != nil {
		return err
	}
	// Last writer wins on the email key, same as on phone keys.
	if err := s.directory.Bind(ctx, from, rec.OwnerID); err != nil {
		return err
	}
	if !containsFold(u.ConfirmedEmails, from) {
		u.ConfirmedEmails = append(u.ConfirmedEmails, from)
		if err := s.users.Put(ctx, u); err != nil {
			return err
		}
	}

	if s.events != nil {
		_, err := s.events.Append(ctx, rec.OwnerID, &domain.Event{
			Title:       "Email linked",
			Description: fmt.Sprintf("Email %s linked to phone %s", from, phoneNumber),
			Category:    domain.EventCategoryEmail,
		})
		if err != nil {
			slog.Warn("failed to record email association event", "user_id", rec.OwnerID, "err", err)
		}
	}
	if s.waba != nil {
		lang := u.Language
		if lang == "" {
			lang = phone.Language(phoneNumber)
		}
		err := s.waba.Send(ctx, []waba.Message{{
			To:       phoneNumber,
			Template: waba.TemplateHelloVerified,
			Language: lang,
			Context:  map[string]any{"userName": u.UserName, "email": from},
		}})
		if err != nil {
			slog.Warn("failed to notify phone of email association", "phone", phoneNumber, "err", err)
		}
	}
	return nil
}

// senderAddress extracts the bare lowercased address, preferring the envelope
// sender over the display header.
func senderAddress(email *domain.InboundEmail) string {
	from := email.Envelope.From
	if from == "" {
		from = email.From
	}
	if i := strings.LastIndex(from, "<"); i >= 0 {
		from = strings.TrimRight(from[i+1:], ">")
	}
	return strings.ToLower(strings.TrimSpace(from))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
