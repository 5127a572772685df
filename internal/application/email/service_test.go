package email

import (
	"context"
	"strings"
	"testing"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArchive struct{ mock.Mock }

func (m *mockArchive) PutJSON(ctx context.Context, key string, data []byte) error {
	return m.Called(ctx, key, data).Error(0)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) Lookup(ctx context.Context, key string) (*domain.DirectoryRecord, error) {
	args := m.Called(ctx, key)
	if r, _ := args.Get(0).(*domain.DirectoryRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDirectory) Bind(ctx context.Context, key, ownerID string) error {
	return m.Called(ctx, key, ownerID).Error(0)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUsers) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

type mockEventService struct{ mock.Mock }

func (m *mockEventService) Append(ctx context.Context, userID string, e *domain.Event) (*domain.Event, error) {
	args := m.Called(ctx, userID, e)
	if ev, _ := args.Get(0).(*domain.Event); ev != nil {
		return ev, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockWabaSender struct{ mock.Mock }

func (m *mockWabaSender) Send(ctx context.Context, messages []waba.Message) error {
	return m.Called(ctx, messages).Error(0)
}

func TestHandle_ArchivesRawEmail(t *testing.T) {
	ar := &mockArchive{}
	ar.On("PutJSON", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "email-received/") && strings.HasSuffix(key, ".json")
	}), mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{Archive: ar})
	e := &domain.InboundEmail{Subject: "lunch receipt"}
	e.Envelope.From = "someone@example.com"

	require.NoError(t, svc.Handle(context.Background(), e))
	ar.AssertExpectations(t)
}

func TestHandle_Association_BindsEmailToPhoneOwner(t *testing.T) {
	ds := &mockDirectory{}
	ds.On("Lookup", mock.Anything, "15551234567").
		Return(&domain.DirectoryRecord{Key: "15551234567", OwnerID: "u1"}, nil)
	ds.On("Bind", mock.Anything, "me@example.com", "u1").Return(nil)

	us := &mockUsers{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:      "u1",
		PhoneNumber: "15551234567",
		PhoneState:  domain.PhoneStateVerified,
	}, nil)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return len(u.ConfirmedEmails) == 1 && u.ConfirmedEmails[0] == "me@example.com"
	})).Return(nil)

	es := &mockEventService{}
	es.On("Append", mock.Anything, "u1", mock.AnythingOfType("*domain.Event")).
		Return(&domain.Event{}, nil)

	wb := &mockWabaSender{}
	wb.On("Send", mock.Anything, mock.MatchedBy(func(msgs []waba.Message) bool {
		return len(msgs) == 1 && msgs[0].To == "15551234567"
	})).Return(nil)

	svc := NewService(ServiceDeps{
		DirectoryRepo: ds, UserRepo: us, EventService: es, WabaSender: wb,
	})
	e := &domain.InboundEmail{Subject: "+15551234567"}
	e.Envelope.From = "Me <Me@Example.com>"

	require.NoError(t, svc.Handle(context.Background(), e))
	ds.AssertExpectations(t)
	us.AssertExpectations(t)
	wb.AssertExpectations(t)
}

func TestHandle_Association_MultiplePhonesInSubject(t *testing.T) {
	ds := &mockDirectory{}
	ds.On("Lookup", mock.Anything, "15551234567").
		Return(&domain.DirectoryRecord{Key: "15551234567", OwnerID: "u1"}, nil)
	ds.On("Lookup", mock.Anything, "34600111222").
		Return(&domain.DirectoryRecord{Key: "34600111222", OwnerID: "u2"}, nil)
	ds.On("Bind", mock.Anything, "me@example.com", "u1").Return(nil)
	ds.On("Bind", mock.Anything, "me@example.com", "u2").Return(nil)

	us := &mockUsers{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", ConfirmedEmails: []string{"me@example.com"}}, nil)
	us.On("Get", mock.Anything, "u2").Return(&domain.User{UserID: "u2", ConfirmedEmails: []string{"me@example.com"}}, nil)

	svc := NewService(ServiceDeps{DirectoryRepo: ds, UserRepo: us})
	e := &domain.InboundEmail{Subject: " +15551234567+34600111222 "}
	e.Envelope.From = "me@example.com"

	require.NoError(t, svc.Handle(context.Background(), e))
	ds.AssertExpectations(t)
}

func TestHandle_SubjectMentioningPhoneDoesNotAssociate(t *testing.T) {
	ds := &mockDirectory{}
	svc := NewService(ServiceDeps{DirectoryRepo: ds})
	e := &domain.InboundEmail{Subject: "Re: call me at +15551234567 tomorrow"}
	e.Envelope.From = "stranger@example.com"

	require.NoError(t, svc.Handle(context.Background(), e))
	ds.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_Association_UnregisteredPhone(t *testing.T) {
	ds := &mockDirectory{}
	ds.On("Lookup", mock.Anything, "15551234567").Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{DirectoryRepo: ds})
	e := &domain.InboundEmail{Subject: "+15551234567"}
	e.Envelope.From = "me@example.com"

	err := svc.Handle(context.Background(), e)
	require.Error(t, err)
	ds.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_Association_AlreadyConfirmedEmailNotDuplicated(t *testing.T) {
	ds := &mockDirectory{}
	ds.On("Lookup", mock.Anything, "15551234567").
		Return(&domain.DirectoryRecord{Key: "15551234567", OwnerID: "u1"}, nil)
	ds.On("Bind", mock.Anything, "me@example.com", "u1").Return(nil)

	us := &mockUsers{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:          "u1",
		PhoneNumber:     "15551234567",
		ConfirmedEmails: []string{"me@example.com"},
	}, nil)

	svc := NewService(ServiceDeps{DirectoryRepo: ds, UserRepo: us})
	e := &domain.InboundEmail{Subject: "+15551234567"}
	e.Envelope.From = "me@example.com"

	require.NoError(t, svc.Handle(context.Background(), e))
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestHandle_UnmatchedEmailIsIgnored(t *testing.T) {
	svc := NewService(ServiceDeps{})
	e := &domain.InboundEmail{Subject: "newsletter"}
	e.Envelope.From = "noreply@shop.example"

	require.NoError(t, svc.Handle(context.Background(), e))
}

func TestSenderAddress(t *testing.T) {
	e := &domain.InboundEmail{From: "Display Name <USER@Example.COM>"}
	assert.Equal(t, "user@example.com", senderAddress(e))

	e2 := &domain.InboundEmail{}
	e2.Envelope.From = "plain@example.com"
	e2.From = "other@example.com"
	assert.Equal(t, "plain@example.com", senderAddress(e2))
}

func TestConfirmForwarding_MissingLink(t *testing.T) {
	svc := NewService(ServiceDeps{})
	e := &domain.InboundEmail{Body: "no link here"}
	e.Envelope.From = "forwarding-noreply@google.com"

	err := svc.Handle(context.Background(), e)
	require.Error(t, err)
}
