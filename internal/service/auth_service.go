package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

type adminRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
}

type syncer interface {
	Run(ctx context.Context, trigger string) (*models.SyncResult, error)
}

type finalizer interface {
	Finalize(ctx context.Context) *models.FinalizeResult
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	HashPasswords     bool
}

// AuthService provides admin authentication use cases.
type AuthService struct {
	repo      adminRepository
	sync      syncer
	finalizer finalizer
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. sync and finalizer
// back Logout and may be nil for tools that only register accounts.
func NewAuthService(repo adminRepository, sync syncer, finalizer finalizer, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		sync:      sync,
		finalizer: finalizer,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Login checks credentials and issues an access token. Unknown usernames
// and wrong passwords are reported with distinct messages.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username and password are required")
	}

	admin, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotRegistered, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}

	if !PasswordMatches(admin.Password, req.Password) {
		s.logger.Info("login rejected", zap.String("username", admin.Username))
		return nil, appErrors.Clone(appErrors.ErrIncorrectPassword, "")
	}

	token, issuedAt, err := s.generateAccessToken(admin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Info("admin logged in", zap.String("username", admin.Username))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Admin:       models.AdminInfo{ID: admin.ID, Username: admin.Username},
	}, nil
}

// Signup registers a new admin account.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AdminInfo, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
	req.ConfirmPassword = strings.TrimSpace(req.ConfirmPassword)
	if req.Username == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "all fields are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "passwords do not match")
	}

	password := req.Password
	if s.config.HashPasswords {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		password = string(hash)
	}

	admin := &models.Admin{Username: req.Username, Password: password}
	if err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	s.logger.Info("admin registered", zap.String("username", admin.Username), zap.Int("admin_id", admin.ID))
	return &models.AdminInfo{ID: admin.ID, Username: admin.Username}, nil
}

// Logout runs a status sync followed by the finalize pass.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) *models.LogoutResponse {
	resp := &models.LogoutResponse{}
	if s.sync != nil {
		result, err := s.sync.Run(ctx, TriggerLogout)
		if err != nil {
			s.logger.Warn("sync on logout failed", zap.Error(err))
			result = &models.SyncResult{Changed: map[string]models.StatusChange{}, Errors: []string{err.Error()}}
		}
		resp.Sync = result
	}
	if s.finalizer != nil {
		resp.Finalize = s.finalizer.Finalize(ctx)
	}
	if claims != nil {
		s.logger.Info("admin logged out", zap.String("username", claims.Username))
	}
	return resp
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(admin *models.Admin) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.Itoa(admin.ID),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

// PasswordMatches compares a stored password, plaintext or bcrypt hash,
// with a candidate.
func PasswordMatches(stored, candidate string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
