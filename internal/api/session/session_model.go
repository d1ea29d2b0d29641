package session

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/adminkit/adminkit/internal/models"
)

// Claims are the custom claims carried by the access token.
type Claims struct {
	UserID               string `json:"uid"`
	Username             string `json:"usr,omitempty"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt, Issuer, Audience, Subject
}

// LoginRequest is the expected JSON body for password login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the successful JSON response after login or an OAuth
// callback.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}
