package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

type mockAdminRepo struct {
	admins    []models.Admin
	findErr   error
	createErr error
}

func (m *mockAdminRepo) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := range m.admins {
		if strings.EqualFold(m.admins[i].Username, username) {
			return &m.admins[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.admins {
		if strings.EqualFold(existing.Username, admin.Username) {
			return repository.ErrDuplicate
		}
	}
	admin.ID = len(m.admins) + 1
	m.admins = append(m.admins, *admin)
	return nil
}

type stubSyncer struct {
	result *models.SyncResult
	err    error
	calls  []string
}

func (s *stubSyncer) Run(ctx context.Context, trigger string) (*models.SyncResult, error) {
	s.calls = append(s.calls, trigger)
	return s.result, s.err
}

type stubFinalizer struct{ calls int }

func (f *stubFinalizer) Finalize(ctx context.Context) *models.FinalizeResult {
	f.calls++
	return &models.FinalizeResult{Status: "success", RecordsFinalized: 2, Errors: []string{}}
}

var testAuthConfig = AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "recordsync"}

func TestAuthServiceLogin(t *testing.T) {
	repo := &mockAdminRepo{admins: []models.Admin{{ID: 1, Username: "Principal", Password: "pw"}}}
	svc := NewAuthService(repo, nil, nil, nil, nil, testAuthConfig)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: " principal ", Password: "pw "})
	require.NoError(t, err)
	assert.Equal(t, models.AdminInfo{ID: 1, Username: "Principal"}, resp.Admin)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.AdminID)
	assert.Equal(t, "recordsync", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := &mockAdminRepo{admins: []models.Admin{{ID: 1, Username: "principal", Password: "pw"}}}
	svc := NewAuthService(repo, nil, nil, nil, nil, testAuthConfig)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "ghost", Password: "pw"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotRegistered.Code))
	assert.Equal(t, "account not registered", appErrors.FromError(err).Message)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "principal", Password: "nope"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIncorrectPassword.Code))

	_, err = svc.Login(ctx, models.LoginRequest{Username: "principal", Password: "  "})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	repo.findErr = errors.New("disk")
	_, err = svc.Login(ctx, models.LoginRequest{Username: "principal", Password: "pw"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorage.Code))
}

func TestAuthServiceSignup(t *testing.T) {
	repo := &mockAdminRepo{}
	cfg := testAuthConfig
	cfg.HashPasswords = true
	svc := NewAuthService(repo, nil, nil, nil, nil, cfg)
	ctx := context.Background()

	info, err := svc.Signup(ctx, models.SignupRequest{Username: "clerk", Password: "pw", ConfirmPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 1, info.ID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.admins[0].Password), []byte("pw")))

	_, err = svc.Login(ctx, models.LoginRequest{Username: "clerk", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, models.SignupRequest{Username: "CLERK", Password: "x", ConfirmPassword: "x"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	_, err = svc.Signup(ctx, models.SignupRequest{Username: "new", Password: "a", ConfirmPassword: "b"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Signup(ctx, models.SignupRequest{Username: "new"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestAuthServiceValidateTokenRejectsExpired(t *testing.T) {
	repo := &mockAdminRepo{admins: []models.Admin{{ID: 1, Username: "a", Password: "pw"}}}
	svc := NewAuthService(repo, nil, nil, nil, nil, testAuthConfig)
	issued := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "a", Password: "pw"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	_, err = svc.ValidateToken("garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestAuthServiceLogout(t *testing.T) {
	sync := &stubSyncer{result: &models.SyncResult{Updated: 2}}
	fin := &stubFinalizer{}
	svc := NewAuthService(&mockAdminRepo{}, sync, fin, nil, nil, testAuthConfig)

	resp := svc.Logout(context.Background(), &models.JWTClaims{Username: "a"})
	assert.Equal(t, 2, resp.Sync.Updated)
	assert.Equal(t, 2, resp.Finalize.RecordsFinalized)
	assert.Equal(t, []string{TriggerLogout}, sync.calls)
	assert.Equal(t, 1, fin.calls)

	sync.err = errors.New("queue stopped")
	resp = svc.Logout(context.Background(), nil)
	assert.Equal(t, []string{"queue stopped"}, resp.Sync.Errors)
	assert.Equal(t, 2, fin.calls)
}

func TestPasswordMatches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, PasswordMatches(string(hash), "pw"))
	assert.False(t, PasswordMatches(string(hash), "px"))
	assert.True(t, PasswordMatches("plain", "plain"))
	assert.False(t, PasswordMatches("plain", "Plain"))
}
