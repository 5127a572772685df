package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/pkg/id"
)

const (
	// retentionCap bounds the per-user log. Once exceeded, the oldest rows
	// are trimmed after each append.
	retentionCap = 2000

	defaultPageSize = 20
	maxPageSize     = 100
)

// Service owns the per-user transaction log.
type Service interface {
	Append(ctx context.Context, userID string, req *domain.AppendTransactionsRequest) ([]domain.Transaction, error)
	List(ctx context.Context, userID string, limit int, cursor string) ([]domain.Transaction, string, error)
	Clear(ctx context.Context, userID string) error
}

type txStore interface {
	Put(ctx context.Context, t *domain.Transaction) error
	QueryPage(ctx context.Context, userID string, limit int32, cursor string) ([]domain.Transaction, string, error)
	Count(ctx context.Context, userID string) (int, error)
	DeleteOldest(ctx context.Context, userID string, n int) error
	DeleteAll(ctx context.Context, userID string) error
}

type service struct {
	txs txStore
}

func NewService(txs txStore) Service {
	return &service{txs: txs}
}

// Append stores one or more transactions. Missing IDs, dates, times and
// statuses are filled with defaults so extraction output can be stored as-is.
func (s *service) Append(ctx context.Context, userID string, req *domain.AppendTransactionsRequest) ([]domain.Transaction, error) {
	var incoming []domain.Transaction
	if req.Transaction != nil {
		incoming = append(incoming, *req.Transaction)
	}
	incoming = append(incoming, req.Transactions...)
	if len(incoming) == 0 {
		return nil, fmt.Errorf("no transactions supplied: %w", domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	stored := make([]domain.Transaction, 0, len(incoming))
	for i := range incoming {
		t := incoming[i]
		t.UserID = userID
		if t.TxID == "" {
			t.TxID = id.New()
		}
		if t.Date == "" {
			t.Date = now.Format("2006-01-02")
		}
		if t.Time == "" {
			t.Time = now.Format("15:04")
		}
		if t.Status == "" {
			t.Status = domain.TxStatusCompleted
		}
		if err := s.txs.Put(ctx, &t); err != nil {
			return nil, err
		}
		stored = append(stored, t)
	}

	s.trim(ctx, userID)
	return stored, nil
}

// List returns a newest-first page. Limit is clamped to [1, 100] with a
// default of 20; the returned cursor is empty on the last page.
func (s *service) List(ctx context.Context, userID string, limit int, cursor string) ([]domain.Transaction, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	items, next, err := s.txs.QueryPage(ctx, userID, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	if items == nil {
		items = []domain.Transaction{}
	}
	return items, next, nil
}

func (s *service) Clear(ctx context.Context, userID string) error {
	return s.txs.DeleteAll(ctx, userID)
}

// trim drops the oldest rows beyond the retention cap. Best-effort: a failed
// trim only delays cleanup until the next append.
func (s *service) trim(ctx context.Context, userID string) {
	count, err := s.txs.Count(ctx, userID)
	if err != nil {
		slog.Warn("failed to count transactions for retention trim", "user_id", userID, "err", err)
		return
	}
	if count <= retentionCap {
		return
	}
	if err := s.txs.DeleteOldest(ctx, userID, count-retentionCap); err != nil {
		slog.Warn("failed to trim transaction log", "user_id", userID, "err", err)
	}
}
