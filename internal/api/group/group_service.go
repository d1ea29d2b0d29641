package group

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// Ensure implementation satisfies the interface
var _ GroupService = (*GroupServiceImpl)(nil)

// Store is the slice of the record service the group domain relies on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.Group, error)
	GetAll(ctx context.Context, opts ...record.ReadOption) ([]*models.Group, error)
	FindOne(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (*models.Group, error)
	Search(ctx context.Context, term string, fields []string, opts ...record.ReadOption) ([]*models.Group, error)
	Create(ctx context.Context, data record.Fields) (*models.Group, error)
	Update(ctx context.Context, id uuid.UUID, data record.Fields) (*models.Group, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.Group, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.Group, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}

var _ Store = (*record.Service[models.Group])(nil)

// UserCounter counts live users matching a filter; satisfied by the user
// record service.
type UserCounter interface {
	Count(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (int64, error)
}

// CreateGroupParams is the input for creating a group.
type CreateGroupParams struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// UpdateGroupParams carries the mutable group fields; nil leaves a field
// unchanged.
type UpdateGroupParams struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// GroupService defines the business logic contract for group operations.
type GroupService interface {
	Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.Group, error)
	List(ctx context.Context, opts ...record.ReadOption) ([]*models.Group, error)
	Create(ctx context.Context, params CreateGroupParams) (*models.Group, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateGroupParams) (*models.Group, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.Group, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.Group, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, term string) ([]*models.Group, error)
	FindByName(ctx context.Context, name string) (*models.Group, error)
	UserCount(ctx context.Context, id uuid.UUID) (int64, error)
}

// GroupServiceImpl provides the implementation for GroupService.
type GroupServiceImpl struct {
	logger *slog.Logger
	store  Store
	users  UserCounter
}

// NewGroupService creates a new group service instance.
func NewGroupService(store Store, users UserCounter, logger *slog.Logger) *GroupServiceImpl {
	return &GroupServiceImpl{
		logger: logger,
		store:  store,
		users:  users,
	}
}

func (s *GroupServiceImpl) Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.Group, error) {
	return s.store.GetByID(ctx, id, opts...)
}

func (s *GroupServiceImpl) List(ctx context.Context, opts ...record.ReadOption) ([]*models.Group, error) {
	return s.store.GetAll(ctx, opts...)
}

func (s *GroupServiceImpl) Create(ctx context.Context, params CreateGroupParams) (*models.Group, error) {
	data := record.Fields{"name": params.Name}
	if params.Description != nil {
		data["description"] = *params.Description
	}
	return s.store.Create(ctx, data)
}

func (s *GroupServiceImpl) Update(ctx context.Context, id uuid.UUID, params UpdateGroupParams) (*models.Group, error) {
	data := record.Fields{}
	if params.Name != nil {
		data["name"] = *params.Name
	}
	if params.Description != nil {
		data["description"] = *params.Description
	}
	return s.store.Update(ctx, id, data)
}

func (s *GroupServiceImpl) SoftDelete(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return s.store.SoftDelete(ctx, id)
}

func (s *GroupServiceImpl) Restore(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return s.store.Restore(ctx, id)
}

func (s *GroupServiceImpl) HardDelete(ctx context.Context, id uuid.UUID) error {
	return s.store.HardDelete(ctx, id)
}

func (s *GroupServiceImpl) Search(ctx context.Context, term string) ([]*models.Group, error) {
	return s.store.Search(ctx, term, descriptor.Searchable)
}

// FindByName resolves a live group by its unique name.
func (s *GroupServiceImpl) FindByName(ctx context.Context, name string) (*models.Group, error) {
	return s.store.FindOne(ctx, record.Fields{"name": name})
}

// UserCount reports how many live users point at the group.
func (s *GroupServiceImpl) UserCount(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return 0, err
	}
	return s.users.Count(ctx, record.Fields{"group_id": id})
}
