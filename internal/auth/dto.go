package auth

import (
	"github.com/tutorgoat/tutorgoat-backend/internal/admins"
)

// LoginRequest captures the admin credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest is sent by a signed-in admin.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

// ClientInfo identifies the caller for audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse contains the tokens and the signed-in admin.
type LoginResponse struct {
	TokenPair
	Admin *admins.AdminDTO `json:"admin"`
}
