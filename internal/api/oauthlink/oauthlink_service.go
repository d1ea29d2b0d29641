package oauthlink

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// Ensure implementation satisfies the interface
var _ LinkService = (*LinkServiceImpl)(nil)

// Store is the slice of the record service the link domain relies on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.OAuthLink, error)
	FindBy(ctx context.Context, filter record.Fields, opts ...record.ReadOption) ([]*models.OAuthLink, error)
	FindOne(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (*models.OAuthLink, error)
	Create(ctx context.Context, data record.Fields) (*models.OAuthLink, error)
	Update(ctx context.Context, id uuid.UUID, data record.Fields) (*models.OAuthLink, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
}

var _ Store = (*record.Service[models.OAuthLink])(nil)

// CreateLinkParams is the input for linking a provider identity to a user.
type CreateLinkParams struct {
	UserID         uuid.UUID
	Provider       string
	ProviderUserID string
	Token          *string
}

// LinkService defines the business logic contract for provider links.
type LinkService interface {
	Create(ctx context.Context, params CreateLinkParams) (*models.OAuthLink, error)
	FindByUser(ctx context.Context, userID uuid.UUID, opts ...record.ReadOption) ([]*models.OAuthLink, error)
	FindByProviderIdentity(ctx context.Context, provider, providerUserID string) (*models.OAuthLink, error)
	RefreshToken(ctx context.Context, id uuid.UUID, token *string) (*models.OAuthLink, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
}

// LinkServiceImpl provides the implementation for LinkService.
type LinkServiceImpl struct {
	logger *slog.Logger
	store  Store
}

// NewLinkService creates a new link service instance.
func NewLinkService(store Store, logger *slog.Logger) *LinkServiceImpl {
	return &LinkServiceImpl{
		logger: logger,
		store:  store,
	}
}

func (s *LinkServiceImpl) Create(ctx context.Context, params CreateLinkParams) (*models.OAuthLink, error) {
	data := record.Fields{
		"user_id":          params.UserID,
		"provider":         params.Provider,
		"provider_user_id": params.ProviderUserID,
	}
	if params.Token != nil {
		data["token"] = *params.Token
	}
	return s.store.Create(ctx, data)
}

func (s *LinkServiceImpl) FindByUser(ctx context.Context, userID uuid.UUID, opts ...record.ReadOption) ([]*models.OAuthLink, error) {
	return s.store.FindBy(ctx, record.Fields{"user_id": userID}, opts...)
}

// FindByProviderIdentity resolves the link holding one external identity.
func (s *LinkServiceImpl) FindByProviderIdentity(ctx context.Context, provider, providerUserID string) (*models.OAuthLink, error) {
	return s.store.FindOne(ctx, record.Fields{
		"provider":         provider,
		"provider_user_id": providerUserID,
	})
}

// RefreshToken replaces the stored provider token.
func (s *LinkServiceImpl) RefreshToken(ctx context.Context, id uuid.UUID, token *string) (*models.OAuthLink, error) {
	return s.store.Update(ctx, id, record.Fields{"token": token})
}

func (s *LinkServiceImpl) HardDelete(ctx context.Context, id uuid.UUID) error {
	return s.store.HardDelete(ctx, id)
}

func (s *LinkServiceImpl) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	return s.store.BulkHardDelete(ctx, ids)
}
