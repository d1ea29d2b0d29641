package user

import (
	"github.com/google/uuid"

	"github.com/adminkit/adminkit/internal/record"
)

// RegisterParams is the input for account registration. Email and password
// are optional so OAuth-provisioned accounts can be created through the
// same path.
type RegisterParams struct {
	Username string     `json:"username"`
	Email    *string    `json:"email,omitempty"`
	Password string     `json:"password,omitempty"`
	Phone    *string    `json:"phone,omitempty"`
	Bio      *string    `json:"bio,omitempty"`
	RoleID   *uuid.UUID `json:"role_id,omitempty"`
	GroupID  *uuid.UUID `json:"group_id,omitempty"`
}

// UpdateUserParams carries the mutable profile fields. Nil means "leave
// unchanged"; password changes go through SetPassword instead.
type UpdateUserParams struct {
	Username    *string    `json:"username,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	RoleID      *uuid.UUID `json:"role_id,omitempty"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	OAuthGitHub *string    `json:"oauth_github,omitempty"`
	OAuthGoogle *string    `json:"oauth_google,omitempty"`
}

// Fields flattens the set params into a column map for the record service.
func (p UpdateUserParams) Fields() record.Fields {
	f := record.Fields{}
	if p.Username != nil {
		f["username"] = *p.Username
	}
	if p.Email != nil {
		f["email"] = *p.Email
	}
	if p.Phone != nil {
		f["phone"] = *p.Phone
	}
	if p.Bio != nil {
		f["bio"] = *p.Bio
	}
	if p.RoleID != nil {
		f["role_id"] = *p.RoleID
	}
	if p.GroupID != nil {
		f["group_id"] = *p.GroupID
	}
	if p.OAuthGitHub != nil {
		f["oauth_github"] = *p.OAuthGitHub
	}
	if p.OAuthGoogle != nil {
		f["oauth_google"] = *p.OAuthGoogle
	}
	return f
}
