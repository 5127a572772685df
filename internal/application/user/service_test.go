package user

import (
	"context"
	"errors"
	"testing"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Delete(ctx context.Context, code, phone string) error {
	return m.Called(ctx, code, phone).Error(0)
}

type mockDirectoryStore struct{ mock.Mock }

func (m *mockDirectoryStore) Lookup(ctx context.Context, key string) (*domain.DirectoryRecord, error) {
	args := m.Called(ctx, key)
	if r, _ := args.Get(0).(*domain.DirectoryRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDirectoryStore) Unbind(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockLog struct{ mock.Mock }

func (m *mockLog) DeleteAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockWabaSender struct{ mock.Mock }

func (m *mockWabaSender) Send(ctx context.Context, messages []waba.Message) error {
	return m.Called(ctx, messages).Error(0)
}

func TestGet_CreatesEmptyRecordLazily(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "new-user").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	svc := NewService(ServiceDeps{UserRepo: us})
	u, err := svc.Get(context.Background(), "new-user")

	require.NoError(t, err)
	assert.Equal(t, "new-user", u.UserID)
	assert.Equal(t, domain.PhoneStateNone, u.PhoneState)
	us.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSetUserName_UpdatesSingleField(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"user_name": "Ada"}).Return(nil)

	svc := NewService(ServiceDeps{UserRepo: us})
	u, err := svc.SetUserName(context.Background(), "u1", "Ada")

	require.NoError(t, err)
	assert.Equal(t, "Ada", u.UserName)
	us.AssertExpectations(t)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSetAllowedEmails_UpdatesSingleField(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	us.On("Update", mock.Anything, "u1",
		map[string]interface{}{"allowed_emails": []string{"a@example.com"}}).Return(nil)

	svc := NewService(ServiceDeps{UserRepo: us})
	u, err := svc.SetAllowedEmails(context.Background(), "u1", []string{"a@example.com"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, u.AllowedEmails)
	us.AssertExpectations(t)
}

func TestSetLanguage_RejectsUnsupported(t *testing.T) {
	svc := NewService(ServiceDeps{})
	_, err := svc.SetLanguage(context.Background(), "u1", "tlh")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSetLanguage_NotifiesVerifiedUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:      "u1",
		UserName:    "Ada",
		PhoneNumber: "15551234567",
		PhoneState:  domain.PhoneStateVerified,
	}, nil)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"language": "es"}).Return(nil)

	wb := &mockWabaSender{}
	wb.On("Send", mock.Anything, mock.MatchedBy(func(msgs []waba.Message) bool {
		return len(msgs) == 1 &&
			msgs[0].Template == waba.TemplateLanguageChanged &&
			msgs[0].Language == "es" &&
			msgs[0].To == "15551234567"
	})).Return(nil)

	svc := NewService(ServiceDeps{UserRepo: us, WabaSender: wb})
	u, err := svc.SetLanguage(context.Background(), "u1", "es")

	require.NoError(t, err)
	assert.Equal(t, "es", u.Language)
	wb.AssertExpectations(t)
}

func TestSetLanguage_SkipsNotificationWhenUnverified(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:     "u1",
		PhoneState: domain.PhoneStateUnverified,
	}, nil)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"language": "fr"}).Return(nil)

	wb := &mockWabaSender{}
	svc := NewService(ServiceDeps{UserRepo: us, WabaSender: wb})
	_, err := svc.SetLanguage(context.Background(), "u1", "fr")

	require.NoError(t, err)
	wb.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDelete_Cascades(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:          "u1",
		PhoneNumber:     "15551234567",
		PhoneState:      domain.PhoneStateVerified,
		PendingSyncCode: "",
		ConfirmedEmails: []string{"a@example.com"},
	}, nil)
	us.On("Delete", mock.Anything, "u1").Return(nil)

	ds := &mockDirectoryStore{}
	ds.On("Lookup", mock.Anything, "15551234567").
		Return(&domain.DirectoryRecord{Key: "15551234567", OwnerID: "u1"}, nil)
	ds.On("Unbind", mock.Anything, "15551234567").Return(nil)
	ds.On("Lookup", mock.Anything, "a@example.com").
		Return(&domain.DirectoryRecord{Key: "a@example.com", OwnerID: "u1"}, nil)
	ds.On("Unbind", mock.Anything, "a@example.com").Return(nil)

	txs := &mockLog{}
	txs.On("DeleteAll", mock.Anything, "u1").Return(nil)
	evs := &mockLog{}
	evs.On("DeleteAll", mock.Anything, "u1").Return(nil)

	svc := NewService(ServiceDeps{
		UserRepo:        us,
		DirectoryRepo:   ds,
		TransactionRepo: txs,
		EventRepo:       evs,
	})
	err := svc.Delete(context.Background(), "u1")

	require.NoError(t, err)
	ds.AssertExpectations(t)
	txs.AssertExpectations(t)
	evs.AssertExpectations(t)
	us.AssertCalled(t, "Delete", mock.Anything, "u1")
}

func TestDelete_LeavesRebindingByAnotherUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:      "u1",
		PhoneNumber: "15551234567",
		PhoneState:  domain.PhoneStateVerified,
	}, nil)
	us.On("Delete", mock.Anything, "u1").Return(nil)

	ds := &mockDirectoryStore{}
	// The phone has since been claimed by someone else; the binding stays.
	ds.On("Lookup", mock.Anything, "15551234567").
		Return(&domain.DirectoryRecord{Key: "15551234567", OwnerID: "u2"}, nil)

	txs := &mockLog{}
	txs.On("DeleteAll", mock.Anything, "u1").Return(nil)
	evs := &mockLog{}
	evs.On("DeleteAll", mock.Anything, "u1").Return(nil)

	svc := NewService(ServiceDeps{
		UserRepo:        us,
		DirectoryRepo:   ds,
		TransactionRepo: txs,
		EventRepo:       evs,
	})
	err := svc.Delete(context.Background(), "u1")

	require.NoError(t, err)
	ds.AssertNotCalled(t, "Unbind", mock.Anything, mock.Anything)
}

func TestDelete_MissingUserIsNoOp(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{UserRepo: us})
	err := svc.Delete(context.Background(), "ghost")

	require.NoError(t, err)
	us.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_RevokesOutstandingCode(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:          "u1",
		PhoneNumber:     "15551234567",
		PhoneState:      domain.PhoneStateCodeOutstanding,
		PendingSyncCode: "12345",
	}, nil)
	us.On("Delete", mock.Anything, "u1").Return(nil)

	cs := &mockCodeStore{}
	cs.On("Delete", mock.Anything, "12345", "15551234567").Return(nil)

	ds := &mockDirectoryStore{}
	ds.On("Lookup", mock.Anything, "15551234567").Return(nil, domain.ErrNotFound)

	txs := &mockLog{}
	txs.On("DeleteAll", mock.Anything, "u1").Return(nil)
	evs := &mockLog{}
	evs.On("DeleteAll", mock.Anything, "u1").Return(nil)

	svc := NewService(ServiceDeps{
		UserRepo:        us,
		CodeRepo:        cs,
		DirectoryRepo:   ds,
		TransactionRepo: txs,
		EventRepo:       evs,
	})
	err := svc.Delete(context.Background(), "u1")

	require.NoError(t, err)
	cs.AssertExpectations(t)
}
