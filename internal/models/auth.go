package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds admin credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest registers a new admin account.
type SignupRequest struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Admin       AdminInfo `json:"admin"`
}

// LogoutResponse reports the sync and finalize passes run on logout.
type LogoutResponse struct {
	Sync     *SyncResult     `json:"sync"`
	Finalize *FinalizeResult `json:"logout"`
}

// AdminInfo describes the authenticated admin.
type AdminInfo struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// JWTClaims is the access token payload.
type JWTClaims struct {
	AdminID  int    `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
