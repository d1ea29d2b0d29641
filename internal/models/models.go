package models

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the identity and audit columns shared by every table.
type Base struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (b Base) RecordID() uuid.UUID { return b.ID }
func (b Base) IsDeleted() bool     { return b.DeletedAt != nil }

// User is an administrative account. Email and password are optional so
// that accounts provisioned through an OAuth provider can exist without
// either.
type User struct {
	Base
	Username     string     `json:"username"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash *string    `json:"-"`
	Phone        *string    `json:"phone,omitempty"`
	Bio          *string    `json:"bio,omitempty"`
	RoleID       *uuid.UUID `json:"role_id,omitempty"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	OAuthGitHub  *string    `json:"oauth_github,omitempty"`
	OAuthGoogle  *string    `json:"oauth_google,omitempty"`
}

// Role is a named permission bucket users point at.
type Role struct {
	Base
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Group is a named organizational bucket users point at.
type Group struct {
	Base
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// OAuthLink ties a user to one external provider identity.
type OAuthLink struct {
	Base
	UserID         uuid.UUID `json:"user_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	Token          *string   `json:"-"`
}
