package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// ErrInvalidCredentials is returned when a username/password pair does not
// match a live account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

// Store is the slice of the record service the user domain relies on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID, opts ...record.ReadOption) ([]*models.User, error)
	GetAll(ctx context.Context, opts ...record.ReadOption) ([]*models.User, error)
	FindBy(ctx context.Context, filter record.Fields, opts ...record.ReadOption) ([]*models.User, error)
	FindOne(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (*models.User, error)
	Search(ctx context.Context, term string, fields []string, opts ...record.ReadOption) ([]*models.User, error)
	Count(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (int64, error)
	FindSince(ctx context.Context, column string, since time.Time, opts ...record.ReadOption) ([]*models.User, error)
	CountSince(ctx context.Context, column string, since time.Time, opts ...record.ReadOption) (int64, error)
	Create(ctx context.Context, data record.Fields) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, data record.Fields) (*models.User, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.User, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.User, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	BulkCreate(ctx context.Context, items []record.Fields) (*record.BulkResult, error)
	BulkUpdate(ctx context.Context, ids []uuid.UUID, data record.Fields) (*record.BulkResult, error)
	BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
	BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
	BulkRestore(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
}

var _ Store = (*record.Service[models.User])(nil)

// LinkStore is the slice of the OAuth link service needed for cascades.
type LinkStore interface {
	FindByUser(ctx context.Context, userID uuid.UUID, opts ...record.ReadOption) ([]*models.OAuthLink, error)
	BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
}

// UserService defines the business logic contract for account operations.
type UserService interface {
	Register(ctx context.Context, params RegisterParams) (*models.User, error)
	VerifyPassword(ctx context.Context, username, password string) (*models.User, error)
	VerifyPasswordByID(ctx context.Context, id uuid.UUID, password string) (*models.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.User, error)
	List(ctx context.Context, opts ...record.ReadOption) ([]*models.User, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*models.User, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.User, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.User, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, term string) ([]*models.User, error)

	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRole(ctx context.Context, roleID uuid.UUID) ([]*models.User, error)
	FindByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.User, error)
	FindByProvider(ctx context.Context, provider, identity string) (*models.User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	IsEmailAvailable(ctx context.Context, email string) (bool, error)

	BulkCreate(ctx context.Context, items []record.Fields) (*record.BulkResult, error)
	BulkUpdateRole(ctx context.Context, ids []uuid.UUID, roleID uuid.UUID) (*record.BulkResult, error)
	BulkUpdateGroup(ctx context.Context, ids []uuid.UUID, groupID uuid.UUID) (*record.BulkResult, error)
	BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
	BulkRestore(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)
	BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error)

	RecentlyRegistered(ctx context.Context, since time.Time) ([]*models.User, error)
	ActiveSince(ctx context.Context, since time.Time) (int64, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger *slog.Logger
	store  Store
	links  LinkStore
}

// NewUserService creates a new user service instance.
func NewUserService(store Store, links LinkStore, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		store:  store,
		links:  links,
	}
}

// Register creates a new account, hashing the password when one is given.
func (s *UserServiceImpl) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", params.Username))

	data := record.Fields{"username": params.Username}
	if params.Email != nil {
		data["email"] = *params.Email
	}
	if params.Phone != nil {
		data["phone"] = *params.Phone
	}
	if params.Bio != nil {
		data["bio"] = *params.Bio
	}
	if params.RoleID != nil {
		data["role_id"] = *params.RoleID
	}
	if params.GroupID != nil {
		data["group_id"] = *params.GroupID
	}
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		data["password_hash"] = string(hash)
	}

	u, err := s.store.Create(ctx, data)
	if err != nil {
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "User registered", slog.String("userID", u.ID.String()))
	return u, nil
}

// VerifyPassword checks a username/password pair against the stored bcrypt
// hash. Accounts without a password hash never authenticate this way.
func (s *UserServiceImpl) VerifyPassword(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.store.FindOne(ctx, record.Fields{"username": username})
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// VerifyPasswordByID is VerifyPassword keyed by account id instead of
// username.
func (s *UserServiceImpl) VerifyPasswordByID(ctx context.Context, id uuid.UUID, password string) (*models.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SetPassword replaces the account's password hash.
func (s *UserServiceImpl) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	_, err = s.store.Update(ctx, id, record.Fields{"password_hash": string(hash)})
	return err
}

// UpdateLastLogin stamps the account's last login time.
func (s *UserServiceImpl) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.Update(ctx, id, record.Fields{"last_login_at": time.Now()})
	return err
}

func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.User, error) {
	return s.store.GetByID(ctx, id, opts...)
}

func (s *UserServiceImpl) List(ctx context.Context, opts ...record.ReadOption) ([]*models.User, error) {
	return s.store.GetAll(ctx, opts...)
}

func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*models.User, error) {
	return s.store.Update(ctx, id, params.Fields())
}

// SoftDelete retires the account and permanently removes its provider
// links so the external identities may be re-linked elsewhere.
func (s *UserServiceImpl) SoftDelete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	l := s.logger.With(slog.String("method", "SoftDelete"), slog.String("userID", id.String()))

	u, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.removeLinks(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to remove provider links", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "User soft-deleted")
	return u, nil
}

func (s *UserServiceImpl) Restore(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.Restore(ctx, id)
}

// HardDelete removes the account permanently, provider links first.
func (s *UserServiceImpl) HardDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.removeLinks(ctx, id); err != nil {
		return err
	}
	return s.store.HardDelete(ctx, id)
}

func (s *UserServiceImpl) removeLinks(ctx context.Context, id uuid.UUID) error {
	links, err := s.links.FindByUser(ctx, id, record.IncludeDeleted())
	if err != nil {
		return fmt.Errorf("error fetching provider links: %w", err)
	}
	if len(links) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(links))
	for i, link := range links {
		ids[i] = link.ID
	}
	res, err := s.links.BulkHardDelete(ctx, ids)
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("error removing provider links: %w", res.Errors[0].Err)
	}
	return nil
}

func (s *UserServiceImpl) Search(ctx context.Context, term string) ([]*models.User, error) {
	return s.store.Search(ctx, term, descriptor.Searchable)
}

func (s *UserServiceImpl) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.FindOne(ctx, record.Fields{"username": username})
}

func (s *UserServiceImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.FindOne(ctx, record.Fields{"email": email})
}

func (s *UserServiceImpl) FindByRole(ctx context.Context, roleID uuid.UUID) ([]*models.User, error) {
	return s.store.FindBy(ctx, record.Fields{"role_id": roleID})
}

func (s *UserServiceImpl) FindByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.User, error) {
	return s.store.FindBy(ctx, record.Fields{"group_id": groupID})
}

// FindByProvider resolves an account by its stored provider identity.
func (s *UserServiceImpl) FindByProvider(ctx context.Context, provider, identity string) (*models.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	return s.store.FindOne(ctx, record.Fields{column: identity})
}

func providerColumn(provider string) (string, error) {
	switch provider {
	case "github":
		return "oauth_github", nil
	case "google":
		return "oauth_google", nil
	default:
		return "", fmt.Errorf("unsupported provider %q", provider)
	}
}

// IsUsernameAvailable reports whether no live account holds the username.
func (s *UserServiceImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	n, err := s.store.Count(ctx, record.Fields{"username": username})
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// IsEmailAvailable reports whether no live account holds the email.
func (s *UserServiceImpl) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	n, err := s.store.Count(ctx, record.Fields{"email": email})
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *UserServiceImpl) BulkCreate(ctx context.Context, items []record.Fields) (*record.BulkResult, error) {
	return s.store.BulkCreate(ctx, items)
}

// BulkUpdateRole points many accounts at one role.
func (s *UserServiceImpl) BulkUpdateRole(ctx context.Context, ids []uuid.UUID, roleID uuid.UUID) (*record.BulkResult, error) {
	return s.store.BulkUpdate(ctx, ids, record.Fields{"role_id": roleID})
}

// BulkUpdateGroup points many accounts at one group.
func (s *UserServiceImpl) BulkUpdateGroup(ctx context.Context, ids []uuid.UUID, groupID uuid.UUID) (*record.BulkResult, error) {
	return s.store.BulkUpdate(ctx, ids, record.Fields{"group_id": groupID})
}

// BulkSoftDelete retires many accounts and removes provider links for the
// ones that were actually retired. A failed link cascade lands in the
// result's error list alongside the retired id.
func (s *UserServiceImpl) BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	res, err := s.store.BulkSoftDelete(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	for _, id := range res.Succeeded {
		if err := s.removeLinks(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to remove provider links",
				slog.String("userID", id.String()), slog.Any("error", err))
			res.Errors = append(res.Errors, record.BulkError{Index: index[id], ID: id, Err: err})
		}
	}
	return res, nil
}

func (s *UserServiceImpl) BulkRestore(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	return s.store.BulkRestore(ctx, ids)
}

// BulkHardDelete removes many accounts permanently, provider links first.
func (s *UserServiceImpl) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	for _, id := range ids {
		if err := s.removeLinks(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.store.BulkHardDelete(ctx, ids)
}

// RecentlyRegistered lists live accounts created at or after the cutoff.
func (s *UserServiceImpl) RecentlyRegistered(ctx context.Context, since time.Time) ([]*models.User, error) {
	return s.store.FindSince(ctx, "created_at", since)
}

// ActiveSince counts live accounts whose last login is at or after the cutoff.
func (s *UserServiceImpl) ActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return s.store.CountSince(ctx, "last_login_at", since)
}
