package oauthlink

import (
	"log/slog"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

var descriptor = record.Descriptor[models.OAuthLink]{
	Name:  "oauth_link",
	Table: "oauth_links",
	Columns: []string{
		"id", "user_id", "provider", "provider_user_id", "token",
		"created_at", "updated_at", "deleted_at",
	},
	Writable:   []string{"user_id", "provider", "provider_user_id", "token"},
	Searchable: []string{"provider", "provider_user_id"},
	Required:   []string{"user_id", "provider", "provider_user_id"},
	Bind: func(l *models.OAuthLink) map[string]any {
		return map[string]any{
			"id":               &l.ID,
			"user_id":          &l.UserID,
			"provider":         &l.Provider,
			"provider_user_id": &l.ProviderUserID,
			"token":            &l.Token,
			"created_at":       &l.CreatedAt,
			"updated_at":       &l.UpdatedAt,
			"deleted_at":       &l.DeletedAt,
		}
	},
}

// NewStore builds the record service backing OAuth link persistence.
func NewStore(db record.DB, logger *slog.Logger) *record.Service[models.OAuthLink] {
	return record.New(db, descriptor, logger)
}
