package group

import (
	"log/slog"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

var descriptor = record.Descriptor[models.Group]{
	Name:       "group",
	Table:      "groups",
	Columns:    []string{"id", "name", "description", "created_at", "updated_at", "deleted_at"},
	Writable:   []string{"name", "description"},
	Searchable: []string{"name", "description"},
	Required:   []string{"name"},
	Bind: func(g *models.Group) map[string]any {
		return map[string]any{
			"id":          &g.ID,
			"name":        &g.Name,
			"description": &g.Description,
			"created_at":  &g.CreatedAt,
			"updated_at":  &g.UpdatedAt,
			"deleted_at":  &g.DeletedAt,
		}
	},
}

// NewStore builds the record service backing group persistence.
func NewStore(db record.DB, logger *slog.Logger) *record.Service[models.Group] {
	return record.New(db, descriptor, logger)
}
