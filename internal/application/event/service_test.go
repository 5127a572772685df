package event

import (
	"context"
	"testing"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventStore struct{ mock.Mock }

func (m *mockEventStore) Put(ctx context.Context, e *domain.Event) error {
	return m.Called(ctx, e).Error(0)
}
func (m *mockEventStore) QueryPage(ctx context.Context, userID string, limit int32, cursor string) ([]domain.Event, string, error) {
	args := m.Called(ctx, userID, limit, cursor)
	items, _ := args.Get(0).([]domain.Event)
	return items, args.String(1), args.Error(2)
}
func (m *mockEventStore) Count(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockEventStore) DeleteOldest(ctx context.Context, userID string, n int) error {
	return m.Called(ctx, userID, n).Error(0)
}
func (m *mockEventStore) DeleteAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func TestAppend_FillsIDAndDate(t *testing.T) {
	es := &mockEventStore{}
	es.On("Put", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)
	es.On("Count", mock.Anything, "u1").Return(1, nil)

	svc := NewService(es)
	e, err := svc.Append(context.Background(), "u1", &domain.Event{
		Title:       "Phone verified",
		Description: "Phone number 15551234567 was verified",
		Category:    domain.EventCategoryPhone,
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", e.UserID)
	assert.NotEmpty(t, e.EventID)
	assert.NotEmpty(t, e.Date)
}

func TestAppend_RejectsUnknownCategory(t *testing.T) {
	svc := NewService(&mockEventStore{})
	_, err := svc.Append(context.Background(), "u1", &domain.Event{
		Title:       "x",
		Description: "y",
		Category:    "gossip",
	})
	require.Error(t, err)
}

func TestAppend_TrimsBeyondCap(t *testing.T) {
	es := &mockEventStore{}
	es.On("Put", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)
	es.On("Count", mock.Anything, "u1").Return(1005, nil)
	es.On("DeleteOldest", mock.Anything, "u1", 5).Return(nil)

	svc := NewService(es)
	_, err := svc.Append(context.Background(), "u1", &domain.Event{
		Title:       "x",
		Description: "y",
		Category:    domain.EventCategorySystem,
	})

	require.NoError(t, err)
	es.AssertCalled(t, "DeleteOldest", mock.Anything, "u1", 5)
}

func TestList_DefaultsLimit(t *testing.T) {
	es := &mockEventStore{}
	es.On("QueryPage", mock.Anything, "u1", int32(20), "").Return([]domain.Event{}, "", nil)

	svc := NewService(es)
	items, next, err := svc.List(context.Background(), "u1", 0, "")

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, next)
	es.AssertExpectations(t)
}
