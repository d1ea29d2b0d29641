package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/adminkit/config"
	"github.com/adminkit/adminkit/internal/api/oauthlink"
	"github.com/adminkit/adminkit/internal/api/user"
	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// MockUserService is a mock implementation of the user.UserService interface.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, params user.RegisterParams) (*models.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) VerifyPassword(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) VerifyPasswordByID(ctx context.Context, id uuid.UUID, password string) (*models.User, error) {
	args := m.Called(ctx, id, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	args := m.Called(ctx, id, password)
	return args.Error(0)
}

func (m *MockUserService) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserService) Get(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, opts ...record.ReadOption) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, params user.UpdateUserParams) (*models.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SoftDelete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Restore(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) HardDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserService) Search(ctx context.Context, term string) ([]*models.User, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByRole(ctx context.Context, roleID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) FindByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) FindByProvider(ctx context.Context, provider, identity string) (*models.User, error) {
	args := m.Called(ctx, provider, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) BulkCreate(ctx context.Context, items []record.Fields) (*record.BulkResult, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockUserService) BulkUpdateRole(ctx context.Context, ids []uuid.UUID, roleID uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockUserService) BulkUpdateGroup(ctx context.Context, ids []uuid.UUID, groupID uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockUserService) BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockUserService) BulkRestore(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockUserService) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockUserService) RecentlyRegistered(ctx context.Context, since time.Time) ([]*models.User, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) ActiveSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockLinkService is a mock implementation of the oauthlink.LinkService interface.
type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) Create(ctx context.Context, params oauthlink.CreateLinkParams) (*models.OAuthLink, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthLink), args.Error(1)
}

func (m *MockLinkService) FindByUser(ctx context.Context, userID uuid.UUID, opts ...record.ReadOption) ([]*models.OAuthLink, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OAuthLink), args.Error(1)
}

func (m *MockLinkService) FindByProviderIdentity(ctx context.Context, provider, providerUserID string) (*models.OAuthLink, error) {
	args := m.Called(ctx, provider, providerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthLink), args.Error(1)
}

func (m *MockLinkService) RefreshToken(ctx context.Context, id uuid.UUID, token *string) (*models.OAuthLink, error) {
	args := m.Called(ctx, id, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthLink), args.Error(1)
}

func (m *MockLinkService) HardDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLinkService) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SecretKey: "test-secret",
		Issuer:    "adminkit",
		Audience:  "adminkit-api",
		TokenTTL:  time.Hour,
	}
}

func newTestSessionService(users *MockUserService, links *MockLinkService) *SessionServiceImpl {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSessionService(users, links, testAuthConfig(), logger)
}

func parseTestToken(t *testing.T, token string) *Claims {
	t.Helper()
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestSessionServiceImpl_IssueToken(t *testing.T) {
	svc := newTestSessionService(new(MockUserService), new(MockLinkService))

	id := uuid.New()
	token, err := svc.IssueToken(&models.User{Base: models.Base{ID: id}, Username: "ada"})
	require.NoError(t, err)

	claims := parseTestToken(t, token)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "adminkit", claims.Issuer)
	assert.Contains(t, claims.Audience, "adminkit-api")
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestSessionServiceImpl_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada"}
		users.On("VerifyPassword", ctx, "ada", "s3cret").Return(u, nil).Once()
		users.On("UpdateLastLogin", ctx, u.ID).Return(nil).Once()

		token, got, err := svc.Login(ctx, "ada", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, u, got)
		assert.Equal(t, u.ID.String(), parseTestToken(t, token).UserID)
		users.AssertExpectations(t)
	})

	t.Run("Bad credentials", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		users.On("VerifyPassword", ctx, "ada", "wrong").
			Return(nil, user.ErrInvalidCredentials).Once()

		token, got, err := svc.Login(ctx, "ada", "wrong")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
		assert.Empty(t, token)
		assert.Nil(t, got)
		users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("Login survives a failed last-login stamp", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada"}
		users.On("VerifyPassword", ctx, "ada", "s3cret").Return(u, nil).Once()
		users.On("UpdateLastLogin", ctx, u.ID).Return(fmt.Errorf("connection refused")).Once()

		token, _, err := svc.Login(ctx, "ada", "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})
}

func TestSessionServiceImpl_ResolveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Second resolve hits the cache", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada"}
		users.On("Get", ctx, u.ID).Return(u, nil).Once()

		first, err := svc.ResolveUser(ctx, u.ID)
		require.NoError(t, err)
		second, err := svc.ResolveUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		users.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("Logout evicts the cached account", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada"}
		users.On("Get", ctx, u.ID).Return(u, nil).Twice()

		_, err := svc.ResolveUser(ctx, u.ID)
		require.NoError(t, err)
		svc.Logout(ctx, u.ID)
		_, err = svc.ResolveUser(ctx, u.ID)
		require.NoError(t, err)
		users.AssertNumberOfCalls(t, "Get", 2)
	})
}

func TestSynthesizedUsername(t *testing.T) {
	assert.Equal(t, "(gh)octocat",
		synthesizedUsername(goth.User{Provider: "github", NickName: "octocat"}, "octocat"))
	assert.Equal(t, "(google)Ada",
		synthesizedUsername(goth.User{Provider: "google", FirstName: "Ada"}, "Ada"))
}

func TestSessionServiceImpl_GetOrCreateUserFromProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing GitHub account is reused", func(t *testing.T) {
		users := new(MockUserService)
		links := new(MockLinkService)
		svc := newTestSessionService(users, links)

		token := "gho_token"
		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "(gh)octocat"}
		gu := goth.User{Provider: "github", UserID: "583231", NickName: "octocat", AccessToken: token}

		users.On("FindByProvider", ctx, "github", "octocat").Return(u, nil).Once()
		links.On("FindByProviderIdentity", ctx, "github", "583231").
			Return(&models.OAuthLink{Base: models.Base{ID: uuid.New()}, Token: &token}, nil).Once()
		users.On("UpdateLastLogin", ctx, u.ID).Return(nil).Once()

		got, err := svc.GetOrCreateUserFromProvider(ctx, gu)
		require.NoError(t, err)
		assert.Equal(t, u, got)
		users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		links.AssertNotCalled(t, "RefreshToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Stale link token is refreshed", func(t *testing.T) {
		users := new(MockUserService)
		links := new(MockLinkService)
		svc := newTestSessionService(users, links)

		stale := "gho_old"
		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "(gh)octocat"}
		link := &models.OAuthLink{Base: models.Base{ID: uuid.New()}, Token: &stale}
		gu := goth.User{Provider: "github", UserID: "583231", NickName: "octocat", AccessToken: "gho_new"}

		users.On("FindByProvider", ctx, "github", "octocat").Return(u, nil).Once()
		links.On("FindByProviderIdentity", ctx, "github", "583231").Return(link, nil).Once()
		links.On("RefreshToken", ctx, link.ID, &gu.AccessToken).Return(link, nil).Once()
		users.On("UpdateLastLogin", ctx, u.ID).Return(nil).Once()

		_, err := svc.GetOrCreateUserFromProvider(ctx, gu)
		require.NoError(t, err)
		links.AssertExpectations(t)
	})

	t.Run("Unknown GitHub identity provisions an account", func(t *testing.T) {
		users := new(MockUserService)
		links := new(MockLinkService)
		svc := newTestSessionService(users, links)

		gu := goth.User{Provider: "github", UserID: "583231", NickName: "octocat", AccessToken: "gho_token"}
		registered := &models.User{Base: models.Base{ID: uuid.New()}, Username: "(gh)octocat"}
		identity := "octocat"
		linked := &models.User{Base: models.Base{ID: registered.ID}, Username: "(gh)octocat", OAuthGitHub: &identity}

		users.On("FindByProvider", ctx, "github", "octocat").
			Return(nil, fmt.Errorf("user octocat: %w", record.ErrNotFound)).Once()
		users.On("Register", ctx, user.RegisterParams{Username: "(gh)octocat"}).
			Return(registered, nil).Once()
		users.On("Update", ctx, registered.ID, mock.MatchedBy(func(p user.UpdateUserParams) bool {
			return p.OAuthGitHub != nil && *p.OAuthGitHub == "octocat" && p.OAuthGoogle == nil
		})).Return(linked, nil).Once()
		links.On("FindByProviderIdentity", ctx, "github", "583231").
			Return(nil, fmt.Errorf("oauth_link: %w", record.ErrNotFound)).Once()
		links.On("Create", ctx, mock.MatchedBy(func(p oauthlink.CreateLinkParams) bool {
			return p.UserID == registered.ID && p.Provider == "github" &&
				p.ProviderUserID == "583231" && p.Token != nil && *p.Token == "gho_token"
		})).Return(&models.OAuthLink{}, nil).Once()
		users.On("UpdateLastLogin", ctx, registered.ID).Return(nil).Once()

		got, err := svc.GetOrCreateUserFromProvider(ctx, gu)
		require.NoError(t, err)
		assert.Equal(t, linked, got)
		users.AssertExpectations(t)
		links.AssertExpectations(t)
	})

	t.Run("Google provisioning carries the email", func(t *testing.T) {
		users := new(MockUserService)
		links := new(MockLinkService)
		svc := newTestSessionService(users, links)

		gu := goth.User{Provider: "google", UserID: "113", FirstName: "Ada", Email: "ada@example.com"}
		registered := &models.User{Base: models.Base{ID: uuid.New()}, Username: "(google)Ada"}

		users.On("FindByProvider", ctx, "google", "Ada").
			Return(nil, fmt.Errorf("user: %w", record.ErrNotFound)).Once()
		users.On("Register", ctx, mock.MatchedBy(func(p user.RegisterParams) bool {
			return p.Username == "(google)Ada" && p.Email != nil && *p.Email == "ada@example.com" && p.Password == ""
		})).Return(registered, nil).Once()
		users.On("Update", ctx, registered.ID, mock.MatchedBy(func(p user.UpdateUserParams) bool {
			return p.OAuthGoogle != nil && *p.OAuthGoogle == "Ada"
		})).Return(registered, nil).Once()
		links.On("FindByProviderIdentity", ctx, "google", "113").
			Return(nil, fmt.Errorf("oauth_link: %w", record.ErrNotFound)).Once()
		links.On("Create", ctx, mock.MatchedBy(func(p oauthlink.CreateLinkParams) bool {
			// no access token was offered, none is stored
			return p.Provider == "google" && p.Token == nil
		})).Return(&models.OAuthLink{}, nil).Once()
		users.On("UpdateLastLogin", ctx, registered.ID).Return(nil).Once()

		_, err := svc.GetOrCreateUserFromProvider(ctx, gu)
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("GitHub profile without a login is rejected", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		_, err := svc.GetOrCreateUserFromProvider(ctx, goth.User{Provider: "github"})
		require.Error(t, err)
		users.AssertNotCalled(t, "FindByProvider", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unsupported provider is rejected", func(t *testing.T) {
		users := new(MockUserService)
		svc := newTestSessionService(users, new(MockLinkService))

		_, err := svc.GetOrCreateUserFromProvider(ctx, goth.User{Provider: "gitlab", NickName: "x"})
		require.Error(t, err)
	})
}
