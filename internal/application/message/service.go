package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	"github.com/fintrack/fintrack-api/internal/pkg/phone"
)

// codeRe matches a message that is exactly a five digit sync code.
var codeRe = regexp.MustCompile(`^\s*([0-9]{5})\s*$`)

// Service handles inbound WhatsApp messages from the gateway webhook. Every
// message gets a reply; the pipeline decides which template fits.
type Service interface {
	Handle(ctx context.Context, msg *domain.InboundMessage) error
}

// verifier is the slice of the verification service the pipeline needs.
type verifier interface {
	VerifyPhone(ctx context.Context, code, phoneNumber string) (bool, error)
}

type directoryStore interface {
	Lookup(ctx context.Context, key string) (*domain.DirectoryRecord, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type txAppender interface {
	Append(ctx context.Context, userID string, req *domain.AppendTransactionsRequest) ([]domain.Transaction, error)
}

type eventAppender interface {
	Append(ctx context.Context, userID string, e *domain.Event) (*domain.Event, error)
}

// extractor pulls structured transactions out of free-form text.
type extractor interface {
	Extract(ctx context.Context, text string) ([]domain.Transaction, error)
}

type service struct {
	verifier  verifier
	directory directoryStore
	users     userStore
	txs       txAppender
	events    eventAppender
	extract   extractor // optional
	waba      waba.Sender
}

type ServiceDeps struct {
	Verifier      verifier
	DirectoryRepo directoryStore
	UserRepo      userStore
	TxService     txAppender
	EventService  eventAppender
	Extractor     extractor
	WabaSender    waba.Sender
}

func NewService(deps ServiceDeps) Service {
	return &service{
		verifier:  deps.Verifier,
		directory: deps.DirectoryRepo,
		users:     deps.UserRepo,
		txs:       deps.TxService,
		events:    deps.EventService,
		extract:   deps.Extractor,
		waba:      deps.WabaSender,
	}
}

// Handle routes one inbound message. A bare five digit text is treated as a
// sync code submission; anything else from a known sender goes through
// transaction extraction. Unknown senders get an onboarding reply.
func (s *service) Handle(ctx context.Context, msg *domain.InboundMessage) error {
	from := phone.Normalize(msg.From)
	if from == "" {
		return fmt.Errorf("inbound message without sender: %w", domain.ErrBadRequest)
	}

	if m := codeRe.FindStringSubmatch(msg.Text); m != nil {
		return s.handleCode(ctx, m[1], from, msg.MessageID)
	}

	rec, err := s.directory.Lookup(ctx, from)
	if errors.Is(err, domain.ErrNotFound) {
		return s.reply(ctx, waba.Message{
			To:               from,
			Template:         waba.TemplateGettingStarted,
			Language:         phone.Language(from),
			ReplyToMessageID: msg.MessageID,
		})
	}
	if err != nil {
		return err
	}
	return s.handleKnownSender(ctx, rec.OwnerID, from, msg)
}

func (s *service) handleCode(ctx context.Context, code, from, msgID string) error {
	ok, err := s.verifier.VerifyPhone(ctx, code, from)
	if err != nil {
		return err
	}
	if ok {
		// The verification service already sends the verified notification as
		// its post-commit hook; here we only record the activity. The directory
		// binding exists by now, so it resolves the owner.
		if rec, err := s.directory.Lookup(ctx, from); err == nil {
			s.record(ctx, rec.OwnerID, domain.EventCategoryPhone, "Phone verified",
				"Phone number "+from+" was verified by sync code")
		}
		return nil
	}
	return s.reply(ctx, waba.Message{
		To:               from,
		Template:         waba.TemplateUnableToVerify,
		Language:         phone.Language(from),
		ReplyToMessageID: msgID,
	})
}

func (s *service) handleKnownSender(ctx context.Context, userID, from string, msg *domain.InboundMessage) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	lang := u.Language
	if lang == "" {
		lang = phone.Language(from)
	}

	if s.extract == nil || msg.Text == "" {
		return s.reply(ctx, waba.Message{
			To:               from,
			Template:         waba.TemplateNotUnderstood,
			Language:         lang,
			ReplyToMessageID: msg.MessageID,
		})
	}

	txs, err := s.extract.Extract(ctx, msg.Text)
	if err != nil {
		slog.Warn("transaction extraction failed", "user_id", userID, "err", err)
		return s.reply(ctx, waba.Message{
			To:               from,
			Template:         waba.TemplateNotUnderstood,
			Language:         lang,
			ReplyToMessageID: msg.MessageID,
		})
	}
	if len(txs) == 0 {
		return s.reply(ctx, waba.Message{
			To:               from,
			Template:         waba.TemplateNotUnderstood,
			Language:         lang,
			ReplyToMessageID: msg.MessageID,
		})
	}

	for i := range txs {
		if txs[i].Method == "" {
			txs[i].Method = domain.TxMethodWhatsApp
		}
		if msg.MediaURL != "" && txs[i].MediaURL == "" {
			txs[i].MediaURL = msg.MediaURL
		}
	}
	stored, err := s.txs.Append(ctx, userID, &domain.AppendTransactionsRequest{Transactions: txs})
	if err != nil {
		return err
	}

	s.record(ctx, userID, domain.EventCategoryPayment, "Transactions recorded",
		fmt.Sprintf("%d transaction(s) recorded from WhatsApp message", len(stored)))

	return s.reply(ctx, waba.Message{
		To:               from,
		Template:         waba.TemplateTransactionParsed,
		Language:         lang,
		ReplyToMessageID: msg.MessageID,
		Context: map[string]any{
			"userName":     u.UserName,
			"transactions": stored,
		},
	})
}

func (s *service) reply(ctx context.Context, m waba.Message) error {
	if s.waba == nil {
		return nil
	}
	return s.waba.Send(ctx, []waba.Message{m})
}

// record appends an activity event. Feed entries are informational; failures
// are logged and swallowed.
func (s *service) record(ctx context.Context, userID, category, title, description string) {
	if s.events == nil {
		return
	}
	_, err := s.events.Append(ctx, userID, &domain.Event{
		Title:       title,
		Description: description,
		Category:    category,
	})
	if err != nil {
		slog.Warn("failed to record activity event", "user_id", userID, "err", err)
	}
}
