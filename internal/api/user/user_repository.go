package user

import (
	"log/slog"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

var descriptor = record.Descriptor[models.User]{
	Name:  "user",
	Table: "users",
	Columns: []string{
		"id", "username", "email", "password_hash", "phone", "bio",
		"role_id", "group_id", "last_login_at", "oauth_github", "oauth_google",
		"created_at", "updated_at", "deleted_at",
	},
	Writable: []string{
		"username", "email", "password_hash", "phone", "bio",
		"role_id", "group_id", "last_login_at", "oauth_github", "oauth_google",
	},
	Searchable: []string{"username", "email", "phone", "bio"},
	Required:   []string{"username"},
	Bind: func(u *models.User) map[string]any {
		return map[string]any{
			"id":            &u.ID,
			"username":      &u.Username,
			"email":         &u.Email,
			"password_hash": &u.PasswordHash,
			"phone":         &u.Phone,
			"bio":           &u.Bio,
			"role_id":       &u.RoleID,
			"group_id":      &u.GroupID,
			"last_login_at": &u.LastLoginAt,
			"oauth_github":  &u.OAuthGitHub,
			"oauth_google":  &u.OAuthGoogle,
			"created_at":    &u.CreatedAt,
			"updated_at":    &u.UpdatedAt,
			"deleted_at":    &u.DeletedAt,
		}
	},
}

// NewStore builds the record service backing all user persistence.
func NewStore(db record.DB, logger *slog.Logger) *record.Service[models.User] {
	return record.New(db, descriptor, logger)
}
