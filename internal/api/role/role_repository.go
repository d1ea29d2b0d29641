package role

import (
	"log/slog"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

var descriptor = record.Descriptor[models.Role]{
	Name:       "role",
	Table:      "roles",
	Columns:    []string{"id", "name", "description", "created_at", "updated_at", "deleted_at"},
	Writable:   []string{"name", "description"},
	Searchable: []string{"name", "description"},
	Required:   []string{"name"},
	Bind: func(r *models.Role) map[string]any {
		return map[string]any{
			"id":          &r.ID,
			"name":        &r.Name,
			"description": &r.Description,
			"created_at":  &r.CreatedAt,
			"updated_at":  &r.UpdatedAt,
			"deleted_at":  &r.DeletedAt,
		}
	},
}

// NewStore builds the record service backing role persistence.
func NewStore(db record.DB, logger *slog.Logger) *record.Service[models.Role] {
	return record.New(db, descriptor, logger)
}
