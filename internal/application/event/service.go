package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/pkg/id"
	"github.com/fintrack/fintrack-api/internal/pkg/validate"
)

const (
	retentionCap    = 1000
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service owns the per-user activity feed.
type Service interface {
	Append(ctx context.Context, userID string, e *domain.Event) (*domain.Event, error)
	List(ctx context.Context, userID string, limit int, cursor string) ([]domain.Event, string, error)
	Clear(ctx context.Context, userID string) error
}

type eventStore interface {
	Put(ctx context.Context, e *domain.Event) error
	QueryPage(ctx context.Context, userID string, limit int32, cursor string) ([]domain.Event, string, error)
	Count(ctx context.Context, userID string) (int, error)
	DeleteOldest(ctx context.Context, userID string, n int) error
	DeleteAll(ctx context.Context, userID string) error
}

type service struct {
	events eventStore
}

func NewService(events eventStore) Service {
	return &service{events: events}
}

func (s *service) Append(ctx context.Context, userID string, e *domain.Event) (*domain.Event, error) {
	if err := validate.Struct(e); err != nil {
		return nil, err
	}
	e.UserID = userID
	if e.EventID == "" {
		e.EventID = id.New()
	}
	if e.Date == "" {
		e.Date = time.Now().UTC().Format(time.RFC3339)
	}
	if err := s.events.Put(ctx, e); err != nil {
		return nil, err
	}
	s.trim(ctx, userID)
	return e, nil
}

func (s *service) List(ctx context.Context, userID string, limit int, cursor string) ([]domain.Event, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	items, next, err := s.events.QueryPage(ctx, userID, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	if items == nil {
		items = []domain.Event{}
	}
	return items, next, nil
}

func (s *service) Clear(ctx context.Context, userID string) error {
	return s.events.DeleteAll(ctx, userID)
}

func (s *service) trim(ctx context.Context, userID string) {
	count, err := s.events.Count(ctx, userID)
	if err != nil {
		slog.Warn("failed to count events for retention trim", "user_id", userID, "err", err)
		return
	}
	if count <= retentionCap {
		return
	}
	if err := s.events.DeleteOldest(ctx, userID, count-retentionCap); err != nil {
		slog.Warn("failed to trim event log", "user_id", userID, "err", err)
	}
}
