package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	gocache "github.com/patrickmn/go-cache"

	"github.com/adminkit/adminkit/app/observability/metrics"
	"github.com/adminkit/adminkit/config"
	"github.com/adminkit/adminkit/internal/api/oauthlink"
	"github.com/adminkit/adminkit/internal/api/user"
	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// Ensure implementation satisfies the interface
var _ SessionService = (*SessionServiceImpl)(nil)

// SessionService defines the authentication contract: password login,
// token issuing, session resolution and the OAuth find-or-create flow.
type SessionService interface {
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	Register(ctx context.Context, params user.RegisterParams) (*models.User, error)
	IssueToken(u *models.User) (string, error)
	ResolveUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	Logout(ctx context.Context, id uuid.UUID)
	GetOrCreateUserFromProvider(ctx context.Context, gu goth.User) (*models.User, error)
}

// SessionServiceImpl provides the implementation for SessionService.
type SessionServiceImpl struct {
	logger *slog.Logger
	users  user.UserService
	links  oauthlink.LinkService
	cfg    config.AuthConfig
	cache  *gocache.Cache
}

// NewSessionService creates a new session service instance. Resolved users
// are cached for cfg.ResolveCacheTTL to keep the per-request lookup cheap.
func NewSessionService(users user.UserService, links oauthlink.LinkService, cfg config.AuthConfig, logger *slog.Logger) *SessionServiceImpl {
	ttl := cfg.ResolveCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SessionServiceImpl{
		logger: logger,
		users:  users,
		links:  links,
		cfg:    cfg,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// Login verifies the credentials, stamps the login time and issues an
// access token.
func (s *SessionServiceImpl) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))

	u, err := s.users.VerifyPassword(ctx, username, password)
	if err != nil {
		l.WarnContext(ctx, "Login rejected", slog.Any("error", err))
		return "", nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		l.WarnContext(ctx, "Failed to stamp last login", slog.Any("error", err))
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	metrics.RecordLogin(ctx, "password")
	l.InfoContext(ctx, "User logged in", slog.String("userID", u.ID.String()))
	return token, u, nil
}

// Register creates a new account through the user service.
func (s *SessionServiceImpl) Register(ctx context.Context, params user.RegisterParams) (*models.User, error) {
	u, err := s.users.Register(ctx, params)
	if err != nil {
		return nil, err
	}
	metrics.RecordRegistration(ctx)
	return u, nil
}

// IssueToken signs a short-lived access token for the account.
func (s *SessionServiceImpl) IssueToken(u *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   u.ID.String(),
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return token, nil
}

// ResolveUser loads the live account behind a validated token, consulting
// the in-memory cache first.
func (s *SessionServiceImpl) ResolveUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*models.User), nil
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(id.String(), u)
	return u, nil
}

// Logout drops the account from the resolution cache.
func (s *SessionServiceImpl) Logout(ctx context.Context, id uuid.UUID) {
	s.cache.Delete(id.String())
	s.logger.InfoContext(ctx, "User logged out", slog.String("userID", id.String()))
}

// providerIdentity picks the stable identity stored on the user row for a
// provider: the GitHub login, or the Google given name.
func providerIdentity(gu goth.User) (string, error) {
	switch gu.Provider {
	case "github":
		if gu.NickName == "" {
			return "", errors.New("github profile has no login")
		}
		return gu.NickName, nil
	case "google":
		if gu.FirstName == "" {
			return "", errors.New("google profile has no given name")
		}
		return gu.FirstName, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", gu.Provider)
	}
}

func synthesizedUsername(gu goth.User, identity string) string {
	switch gu.Provider {
	case "github":
		return "(gh)" + identity
	default:
		return "(google)" + identity
	}
}

// GetOrCreateUserFromProvider resolves an OAuth callback to a local
// account. A live account already holding the provider identity is reused;
// otherwise a new one is provisioned without a password. Either way the
// provider link is brought up to date.
func (s *SessionServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, gu goth.User) (*models.User, error) {
	l := s.logger.With(slog.String("method", "GetOrCreateUserFromProvider"), slog.String("provider", gu.Provider))

	identity, err := providerIdentity(gu)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByProvider(ctx, gu.Provider, identity)
	switch {
	case err == nil:
		// existing account
	case errors.Is(err, record.ErrNotFound):
		u, err = s.provisionFromProvider(ctx, gu, identity)
		if err != nil {
			l.ErrorContext(ctx, "Failed to provision account", slog.Any("error", err))
			return nil, err
		}
		l.InfoContext(ctx, "Account provisioned from provider", slog.String("userID", u.ID.String()))
	default:
		return nil, err
	}

	if err := s.ensureLink(ctx, u.ID, gu); err != nil {
		l.WarnContext(ctx, "Failed to update provider link", slog.Any("error", err))
	}
	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		l.WarnContext(ctx, "Failed to stamp last login", slog.Any("error", err))
	}
	metrics.RecordLogin(ctx, gu.Provider)
	return u, nil
}

func (s *SessionServiceImpl) provisionFromProvider(ctx context.Context, gu goth.User, identity string) (*models.User, error) {
	params := user.RegisterParams{Username: synthesizedUsername(gu, identity)}
	if gu.Provider == "google" && gu.Email != "" {
		params.Email = &gu.Email
	}
	u, err := s.users.Register(ctx, params)
	if err != nil {
		return nil, err
	}

	update := user.UpdateUserParams{}
	switch gu.Provider {
	case "github":
		update.OAuthGitHub = &identity
	case "google":
		update.OAuthGoogle = &identity
	}
	u, err = s.users.Update(ctx, u.ID, update)
	if err != nil {
		return nil, err
	}
	metrics.RecordRegistration(ctx)
	return u, nil
}

// ensureLink records the provider's stable user id against the account,
// refreshing the stored access token on repeat logins.
func (s *SessionServiceImpl) ensureLink(ctx context.Context, userID uuid.UUID, gu goth.User) error {
	link, err := s.links.FindByProviderIdentity(ctx, gu.Provider, gu.UserID)
	if errors.Is(err, record.ErrNotFound) {
		var token *string
		if gu.AccessToken != "" {
			token = &gu.AccessToken
		}
		_, err = s.links.Create(ctx, oauthlink.CreateLinkParams{
			UserID:         userID,
			Provider:       gu.Provider,
			ProviderUserID: gu.UserID,
			Token:          token,
		})
		return err
	}
	if err != nil {
		return err
	}
	if gu.AccessToken != "" && (link.Token == nil || *link.Token != gu.AccessToken) {
		_, err = s.links.RefreshToken(ctx, link.ID, &gu.AccessToken)
	}
	return err
}
