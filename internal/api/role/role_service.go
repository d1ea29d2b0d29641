package role

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// Ensure implementation satisfies the interface
var _ RoleService = (*RoleServiceImpl)(nil)

// Store is the slice of the record service the role domain relies on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.Role, error)
	GetAll(ctx context.Context, opts ...record.ReadOption) ([]*models.Role, error)
	FindOne(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (*models.Role, error)
	Search(ctx context.Context, term string, fields []string, opts ...record.ReadOption) ([]*models.Role, error)
	Create(ctx context.Context, data record.Fields) (*models.Role, error)
	Update(ctx context.Context, id uuid.UUID, data record.Fields) (*models.Role, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.Role, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.Role, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}

var _ Store = (*record.Service[models.Role])(nil)

// UserCounter counts live users matching a filter; satisfied by the user
// record service.
type UserCounter interface {
	Count(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (int64, error)
}

// CreateRoleParams is the input for creating a role.
type CreateRoleParams struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// UpdateRoleParams carries the mutable role fields; nil leaves a field
// unchanged.
type UpdateRoleParams struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RoleService defines the business logic contract for role operations.
type RoleService interface {
	Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.Role, error)
	List(ctx context.Context, opts ...record.ReadOption) ([]*models.Role, error)
	Create(ctx context.Context, params CreateRoleParams) (*models.Role, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateRoleParams) (*models.Role, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.Role, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.Role, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, term string) ([]*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	UserCount(ctx context.Context, id uuid.UUID) (int64, error)
}

// RoleServiceImpl provides the implementation for RoleService.
type RoleServiceImpl struct {
	logger *slog.Logger
	store  Store
	users  UserCounter
}

// NewRoleService creates a new role service instance.
func NewRoleService(store Store, users UserCounter, logger *slog.Logger) *RoleServiceImpl {
	return &RoleServiceImpl{
		logger: logger,
		store:  store,
		users:  users,
	}
}

func (s *RoleServiceImpl) Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.Role, error) {
	return s.store.GetByID(ctx, id, opts...)
}

func (s *RoleServiceImpl) List(ctx context.Context, opts ...record.ReadOption) ([]*models.Role, error) {
	return s.store.GetAll(ctx, opts...)
}

func (s *RoleServiceImpl) Create(ctx context.Context, params CreateRoleParams) (*models.Role, error) {
	data := record.Fields{"name": params.Name}
	if params.Description != nil {
		data["description"] = *params.Description
	}
	return s.store.Create(ctx, data)
}

func (s *RoleServiceImpl) Update(ctx context.Context, id uuid.UUID, params UpdateRoleParams) (*models.Role, error) {
	data := record.Fields{}
	if params.Name != nil {
		data["name"] = *params.Name
	}
	if params.Description != nil {
		data["description"] = *params.Description
	}
	return s.store.Update(ctx, id, data)
}

func (s *RoleServiceImpl) SoftDelete(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.store.SoftDelete(ctx, id)
}

func (s *RoleServiceImpl) Restore(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.store.Restore(ctx, id)
}

func (s *RoleServiceImpl) HardDelete(ctx context.Context, id uuid.UUID) error {
	return s.store.HardDelete(ctx, id)
}

func (s *RoleServiceImpl) Search(ctx context.Context, term string) ([]*models.Role, error) {
	return s.store.Search(ctx, term, descriptor.Searchable)
}

// FindByName resolves a live role by its unique name.
func (s *RoleServiceImpl) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return s.store.FindOne(ctx, record.Fields{"name": name})
}

// UserCount reports how many live users point at the role.
func (s *RoleServiceImpl) UserCount(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return 0, err
	}
	return s.users.Count(ctx, record.Fields{"role_id": id})
}
