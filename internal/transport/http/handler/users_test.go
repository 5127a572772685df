package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fintrack/fintrack-api/internal/domain"
	jwtinfra "github.com/fintrack/fintrack-api/internal/infrastructure/jwt"
	"github.com/fintrack/fintrack-api/internal/transport/http/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) SetUserName(ctx context.Context, userID, name string) (*domain.User, error) {
	args := m.Called(ctx, userID, name)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) SetLanguage(ctx context.Context, userID, language string) (*domain.User, error) {
	args := m.Called(ctx, userID, language)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) SetAllowedEmails(ctx context.Context, userID string, emails []string) (*domain.User, error) {
	args := m.Called(ctx, userID, emails)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) SetConfirmedEmails(ctx context.Context, userID string, emails []string) (*domain.User, error) {
	args := m.Called(ctx, userID, emails)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) Generate(ctx context.Context, userID, phoneNumber string) (string, error) {
	args := m.Called(ctx, userID, phoneNumber)
	return args.String(0), args.Error(1)
}
func (m *mockVerificationSvc) Validate(ctx context.Context, code, phoneNumber string) (domain.SyncCodeValidation, error) {
	args := m.Called(ctx, code, phoneNumber)
	return args.Get(0).(domain.SyncCodeValidation), args.Error(1)
}
func (m *mockVerificationSvc) Revoke(ctx context.Context, code, phoneNumber string) (bool, error) {
	args := m.Called(ctx, code, phoneNumber)
	return args.Bool(0), args.Error(1)
}
func (m *mockVerificationSvc) SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error {
	return m.Called(ctx, userID, phoneNumber).Error(0)
}
func (m *mockVerificationSvc) CreateSyncCode(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
func (m *mockVerificationSvc) RevokeSyncCode(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *mockVerificationSvc) VerifyPhone(ctx context.Context, code, phoneNumber string) (bool, error) {
	args := m.Called(ctx, code, phoneNumber)
	return args.Bool(0), args.Error(1)
}

// --- helpers ---

// authedReq builds a request carrying verified claims for userID, the way the
// auth middleware leaves them.
func authedReq(method, target, userID string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	claims := &jwtinfra.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsKey, claims))
}

// --- profile tests ---

func TestGetProfile_MissingClaims(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{}, &mockVerificationSvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetProfile_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:     "u1",
		UserName:   "Ada",
		PhoneState: domain.PhoneStateVerified,
	}, nil)
	h := NewUserHandler(svc, &mockVerificationSvc{})

	rr := httptest.NewRecorder()
	h.Get(rr, authedReq(http.MethodGet, "/v1/users/me", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Ada", resp.UserName)
	svc.AssertExpectations(t)
}

func TestUpdateName_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{}, &mockVerificationSvc{})
	rr := httptest.NewRecorder()
	h.UpdateName(rr, authedReq(http.MethodPut, "/v1/users/me/name", "u1", []byte("not-json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateName_ValidationFailure(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{}, &mockVerificationSvc{})
	body, _ := json.Marshal(domain.UpdateNameRequest{}) // missing name
	rr := httptest.NewRecorder()
	h.UpdateName(rr, authedReq(http.MethodPut, "/v1/users/me/name", "u1", body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateName_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("SetUserName", mock.Anything, "u1", "Ada").
		Return(&domain.User{UserID: "u1", UserName: "Ada"}, nil)
	h := NewUserHandler(svc, &mockVerificationSvc{})

	body, _ := json.Marshal(domain.UpdateNameRequest{Name: "Ada"})
	rr := httptest.NewRecorder()
	h.UpdateName(rr, authedReq(http.MethodPut, "/v1/users/me/name", "u1", body))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestUpdatePhone_ClaimsPhoneThroughVerifier(t *testing.T) {
	users := &mockUserSvc{}
	users.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:      "u1",
		PhoneNumber: "15551234567",
		PhoneState:  domain.PhoneStateUnverified,
	}, nil)

	ver := &mockVerificationSvc{}
	ver.On("SetPhoneNumber", mock.Anything, "u1", "+1 555 123 4567").Return(nil)

	h := NewUserHandler(users, ver)
	body, _ := json.Marshal(domain.UpdatePhoneRequest{PhoneNumber: "+1 555 123 4567"})
	rr := httptest.NewRecorder()
	h.UpdatePhone(rr, authedReq(http.MethodPut, "/v1/users/me/phone", "u1", body))

	assert.Equal(t, http.StatusOK, rr.Code)
	ver.AssertExpectations(t)
}

func TestUpdateAllowedEmails_Lowercases(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("SetAllowedEmails", mock.Anything, "u1", []string{"a@example.com"}).
		Return(&domain.User{UserID: "u1", AllowedEmails: []string{"a@example.com"}}, nil)
	h := NewUserHandler(svc, &mockVerificationSvc{})

	body, _ := json.Marshal(domain.UpdateEmailsRequest{Emails: []string{"A@Example.COM"}})
	rr := httptest.NewRecorder()
	h.UpdateAllowedEmails(rr, authedReq(http.MethodPut, "/v1/users/me/emails/allowed", "u1", body))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestDeleteAccount_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, "u1").Return(nil)
	h := NewUserHandler(svc, &mockVerificationSvc{})

	rr := httptest.NewRecorder()
	h.Delete(rr, authedReq(http.MethodDelete, "/v1/users/me", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- sync-code endpoint tests ---

func TestCreateSyncCode_HappyPath(t *testing.T) {
	ver := &mockVerificationSvc{}
	ver.On("CreateSyncCode", mock.Anything, "u1").Return("12345", nil)
	h := NewVerificationHandler(ver)

	rr := httptest.NewRecorder()
	h.CreateSyncCode(rr, authedReq(http.MethodPost, "/v1/sync-code", "u1", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp SyncCodeEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "12345", resp.Code)
	ver.AssertExpectations(t)
}

func TestCreateSyncCode_PhoneNotSet(t *testing.T) {
	ver := &mockVerificationSvc{}
	ver.On("CreateSyncCode", mock.Anything, "u1").Return("", domain.ErrPhoneNotSet)
	h := NewVerificationHandler(ver)

	rr := httptest.NewRecorder()
	h.CreateSyncCode(rr, authedReq(http.MethodPost, "/v1/sync-code", "u1", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRevokeSyncCode_HappyPath(t *testing.T) {
	ver := &mockVerificationSvc{}
	ver.On("RevokeSyncCode", mock.Anything, "u1").Return(true, nil)
	h := NewVerificationHandler(ver)

	rr := httptest.NewRecorder()
	h.RevokeSyncCode(rr, authedReq(http.MethodDelete, "/v1/sync-code", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	ver.AssertExpectations(t)
}

func TestValidate_Public(t *testing.T) {
	ver := &mockVerificationSvc{}
	ver.On("Validate", mock.Anything, "12345", "15551234567").
		Return(domain.SyncCodeValidation{IsValid: true, UserID: "u1"}, nil)
	h := NewVerificationHandler(ver)

	body, _ := json.Marshal(validateRequest{Code: "12345", PhoneNumber: "15551234567"})
	r := httptest.NewRequest(http.MethodPost, "/v1/sync-code/validate", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Validate(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp validateResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.IsValid)
	assert.Equal(t, "u1", resp.UserID)
	ver.AssertExpectations(t)
}

func TestValidate_NormalizesPhoneInput(t *testing.T) {
	ver := &mockVerificationSvc{}
	ver.On("Validate", mock.Anything, "12345", "15551234567").
		Return(domain.SyncCodeValidation{IsValid: true, UserID: "u1"}, nil)
	h := NewVerificationHandler(ver)

	body, _ := json.Marshal(validateRequest{Code: "12345", PhoneNumber: "+1 (555) 123-4567"})
	r := httptest.NewRequest(http.MethodPost, "/v1/sync-code/validate", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Validate(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	ver.AssertExpectations(t)
}

func TestValidate_NotFoundReason(t *testing.T) {
	ver := &mockVerificationSvc{}
	ver.On("Validate", mock.Anything, "99999", "15551234567").
		Return(domain.SyncCodeValidation{IsValid: false, Reason: domain.ReasonNotFound}, nil)
	h := NewVerificationHandler(ver)

	body, _ := json.Marshal(validateRequest{Code: "99999", PhoneNumber: "15551234567"})
	r := httptest.NewRequest(http.MethodPost, "/v1/sync-code/validate", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Validate(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp validateResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.IsValid)
	assert.Equal(t, string(domain.ReasonNotFound), resp.Reason)
}
