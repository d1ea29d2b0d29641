package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adminkit/adminkit/internal/models"
	"github.com/adminkit/adminkit/internal/record"
)

// MockStore is a mock implementation of the Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetByID(ctx context.Context, id uuid.UUID, opts ...record.ReadOption) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetByIDs(ctx context.Context, ids []uuid.UUID, opts ...record.ReadOption) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) GetAll(ctx context.Context, opts ...record.ReadOption) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) FindBy(ctx context.Context, filter record.Fields, opts ...record.ReadOption) ([]*models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) FindOne(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (*models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) Search(ctx context.Context, term string, fields []string, opts ...record.ReadOption) ([]*models.User, error) {
	args := m.Called(ctx, term, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) Count(ctx context.Context, filter record.Fields, opts ...record.ReadOption) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) FindSince(ctx context.Context, column string, since time.Time, opts ...record.ReadOption) ([]*models.User, error) {
	args := m.Called(ctx, column, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) CountSince(ctx context.Context, column string, since time.Time, opts ...record.ReadOption) (int64, error) {
	args := m.Called(ctx, column, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, data record.Fields) (*models.User, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id uuid.UUID, data record.Fields) (*models.User, error) {
	args := m.Called(ctx, id, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) SoftDelete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) Restore(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) BulkCreate(ctx context.Context, items []record.Fields) (*record.BulkResult, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockStore) BulkUpdate(ctx context.Context, ids []uuid.UUID, data record.Fields) (*record.BulkResult, error) {
	args := m.Called(ctx, ids, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockStore) BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockStore) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func (m *MockStore) BulkRestore(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

// MockLinkStore is a mock implementation of the LinkStore interface.
type MockLinkStore struct {
	mock.Mock
}

func (m *MockLinkStore) FindByUser(ctx context.Context, userID uuid.UUID, opts ...record.ReadOption) ([]*models.OAuthLink, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OAuthLink), args.Error(1)
}

func (m *MockLinkStore) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*record.BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.BulkResult), args.Error(1)
}

func newTestUserService(store *MockStore, links *MockLinkStore) *UserServiceImpl {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUserService(store, links, logger)
}

func strPtr(s string) *string { return &s }

func TestUserServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Hashes password and passes fields through", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		created := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada"}
		store.On("Create", ctx, mock.MatchedBy(func(data record.Fields) bool {
			if data["username"] != "ada" || data["email"] != "ada@example.com" {
				return false
			}
			hash, ok := data["password_hash"].(string)
			if !ok {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")) == nil
		})).Return(created, nil).Once()

		u, err := svc.Register(ctx, RegisterParams{
			Username: "ada",
			Email:    strPtr("ada@example.com"),
			Password: "s3cret",
		})
		require.NoError(t, err)
		assert.Equal(t, created, u)
		store.AssertExpectations(t)
	})

	t.Run("Empty password leaves hash unset", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		created := &models.User{Base: models.Base{ID: uuid.New()}, Username: "bot"}
		store.On("Create", ctx, mock.MatchedBy(func(data record.Fields) bool {
			_, hasHash := data["password_hash"]
			return data["username"] == "bot" && !hasHash
		})).Return(created, nil).Once()

		_, err := svc.Register(ctx, RegisterParams{Username: "bot"})
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestUserServiceImpl_VerifyPassword(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada", PasswordHash: strPtr(string(hash))}
		store.On("FindOne", ctx, record.Fields{"username": "ada"}).Return(u, nil).Once()

		got, err := svc.VerifyPassword(ctx, "ada", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		store.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Username: "ada", PasswordHash: strPtr(string(hash))}
		store.On("FindOne", ctx, record.Fields{"username": "ada"}).Return(u, nil).Once()

		_, err := svc.VerifyPassword(ctx, "ada", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("No password hash", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Username: "oauth-only"}
		store.On("FindOne", ctx, record.Fields{"username": "oauth-only"}).Return(u, nil).Once()

		_, err := svc.VerifyPassword(ctx, "oauth-only", "anything")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown username", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		store.On("FindOne", ctx, record.Fields{"username": "ghost"}).
			Return(nil, fmt.Errorf("user ghost: %w", record.ErrNotFound)).Once()

		_, err := svc.VerifyPassword(ctx, "ghost", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserServiceImpl_VerifyPasswordByID(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada", PasswordHash: strPtr(string(hash))}
		store.On("GetByID", ctx, u.ID).Return(u, nil).Once()

		got, err := svc.VerifyPasswordByID(ctx, u.ID, "s3cret")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		store.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "ada", PasswordHash: strPtr(string(hash))}
		store.On("GetByID", ctx, u.ID).Return(u, nil).Once()

		_, err := svc.VerifyPasswordByID(ctx, u.ID, "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("No password hash", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Base: models.Base{ID: uuid.New()}, Username: "oauth-only"}
		store.On("GetByID", ctx, u.ID).Return(u, nil).Once()

		_, err := svc.VerifyPasswordByID(ctx, u.ID, "anything")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown id", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		ghost := uuid.New()
		store.On("GetByID", ctx, ghost).
			Return(nil, fmt.Errorf("user %s: %w", ghost, record.ErrNotFound)).Once()

		_, err := svc.VerifyPasswordByID(ctx, ghost, "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserServiceImpl_Availability(t *testing.T) {
	ctx := context.Background()

	t.Run("Username free", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		store.On("Count", ctx, record.Fields{"username": "ada"}).Return(int64(0), nil).Once()

		free, err := svc.IsUsernameAvailable(ctx, "ada")
		require.NoError(t, err)
		assert.True(t, free)
	})

	t.Run("Email taken", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		store.On("Count", ctx, record.Fields{"email": "ada@example.com"}).Return(int64(1), nil).Once()

		free, err := svc.IsEmailAvailable(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.False(t, free)
	})
}

func TestUserServiceImpl_SoftDelete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("Removes provider links after retiring the account", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		linkA := &models.OAuthLink{Base: models.Base{ID: uuid.New()}, UserID: id, Provider: "github"}
		linkB := &models.OAuthLink{Base: models.Base{ID: uuid.New()}, UserID: id, Provider: "google"}

		store.On("SoftDelete", ctx, id).Return(&models.User{Base: models.Base{ID: id}}, nil).Once()
		links.On("FindByUser", ctx, id).Return([]*models.OAuthLink{linkA, linkB}, nil).Once()
		links.On("BulkHardDelete", ctx, []uuid.UUID{linkA.ID, linkB.ID}).
			Return(&record.BulkResult{Succeeded: []uuid.UUID{linkA.ID, linkB.ID}}, nil).Once()

		u, err := svc.SoftDelete(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		store.AssertExpectations(t)
		links.AssertExpectations(t)
	})

	t.Run("No links means no cascade call", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		store.On("SoftDelete", ctx, id).Return(&models.User{Base: models.Base{ID: id}}, nil).Once()
		links.On("FindByUser", ctx, id).Return([]*models.OAuthLink{}, nil).Once()

		_, err := svc.SoftDelete(ctx, id)
		require.NoError(t, err)
		links.AssertNotCalled(t, "BulkHardDelete", mock.Anything, mock.Anything)
	})

	t.Run("Missing account surfaces not found", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		store.On("SoftDelete", ctx, id).
			Return(nil, fmt.Errorf("user %s: %w", id, record.ErrNotFound)).Once()

		_, err := svc.SoftDelete(ctx, id)
		assert.ErrorIs(t, err, record.ErrNotFound)
		links.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
	})
}

func TestUserServiceImpl_HardDelete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("Links removed before the account row", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		link := &models.OAuthLink{Base: models.Base{ID: uuid.New()}, UserID: id}
		links.On("FindByUser", ctx, id).Return([]*models.OAuthLink{link}, nil).Once()
		links.On("BulkHardDelete", ctx, []uuid.UUID{link.ID}).
			Return(&record.BulkResult{Succeeded: []uuid.UUID{link.ID}}, nil).Once()
		store.On("HardDelete", ctx, id).Return(nil).Once()

		require.NoError(t, svc.HardDelete(ctx, id))
		store.AssertExpectations(t)
		links.AssertExpectations(t)
	})

	t.Run("Link cascade failure aborts the delete", func(t *testing.T) {
		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		links.On("FindByUser", ctx, id).Return(nil, fmt.Errorf("connection refused")).Once()

		err := svc.HardDelete(ctx, id)
		require.Error(t, err)
		store.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
	})
}

func TestUserServiceImpl_BulkAssignments(t *testing.T) {
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("BulkUpdateRole", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		roleID := uuid.New()
		store.On("BulkUpdate", ctx, ids, record.Fields{"role_id": roleID}).
			Return(&record.BulkResult{Succeeded: ids}, nil).Once()

		res, err := svc.BulkUpdateRole(ctx, ids, roleID)
		require.NoError(t, err)
		assert.Equal(t, ids, res.Succeeded)
		store.AssertExpectations(t)
	})

	t.Run("BulkUpdateGroup", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		groupID := uuid.New()
		store.On("BulkUpdate", ctx, ids, record.Fields{"group_id": groupID}).
			Return(&record.BulkResult{Succeeded: ids}, nil).Once()

		_, err := svc.BulkUpdateGroup(ctx, ids, groupID)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestUserServiceImpl_BulkSoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Cleanup runs only for retired accounts", func(t *testing.T) {
		okID, failedID := uuid.New(), uuid.New()
		ids := []uuid.UUID{okID, failedID}

		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		store.On("BulkSoftDelete", ctx, ids).Return(&record.BulkResult{
			Succeeded: []uuid.UUID{okID},
			Errors: []record.BulkError{
				{Index: 1, ID: failedID, Err: fmt.Errorf("user %s: %w", failedID, record.ErrNotFound)},
			},
		}, nil).Once()
		// link cleanup runs only for the account that was actually retired
		links.On("FindByUser", ctx, okID).Return([]*models.OAuthLink{}, nil).Once()

		res, err := svc.BulkSoftDelete(ctx, ids)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{okID}, res.Succeeded)
		assert.Len(t, res.Errors, 1)
		links.AssertNotCalled(t, "FindByUser", ctx, failedID)
		links.AssertExpectations(t)
	})

	t.Run("Failed link cleanup lands in the result", func(t *testing.T) {
		cleanID, stuckID := uuid.New(), uuid.New()
		ids := []uuid.UUID{cleanID, stuckID}

		store := new(MockStore)
		links := new(MockLinkStore)
		svc := newTestUserService(store, links)

		store.On("BulkSoftDelete", ctx, ids).Return(&record.BulkResult{
			Succeeded: []uuid.UUID{cleanID, stuckID},
		}, nil).Once()
		links.On("FindByUser", ctx, cleanID).Return([]*models.OAuthLink{}, nil).Once()
		links.On("FindByUser", ctx, stuckID).Return(nil, errors.New("connection reset")).Once()

		res, err := svc.BulkSoftDelete(ctx, ids)
		require.NoError(t, err)
		// the account itself was retired, so it stays in the success list
		assert.Equal(t, []uuid.UUID{cleanID, stuckID}, res.Succeeded)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 1, res.Errors[0].Index)
		assert.Equal(t, stuckID, res.Errors[0].ID)
		assert.ErrorContains(t, res.Errors[0].Err, "connection reset")
		links.AssertExpectations(t)
	})
}

func TestUserServiceImpl_FindByProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("GitHub identity maps to its column", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		u := &models.User{Username: "(gh)octocat", OAuthGitHub: strPtr("octocat")}
		store.On("FindOne", ctx, record.Fields{"oauth_github": "octocat"}).Return(u, nil).Once()

		got, err := svc.FindByProvider(ctx, "github", "octocat")
		require.NoError(t, err)
		assert.Equal(t, "(gh)octocat", got.Username)
	})

	t.Run("Unsupported provider", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		_, err := svc.FindByProvider(ctx, "gitlab", "whoever")
		require.Error(t, err)
		store.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
	})
}

func TestUserServiceImpl_ActivityWindows(t *testing.T) {
	ctx := context.Background()
	since := time.Now().Add(-7 * 24 * time.Hour)

	t.Run("RecentlyRegistered", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		store.On("FindSince", ctx, "created_at", since).
			Return([]*models.User{{Username: "ada"}}, nil).Once()

		users, err := svc.RecentlyRegistered(ctx, since)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("ActiveSince", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestUserService(store, new(MockLinkStore))

		store.On("CountSince", ctx, "last_login_at", since).Return(int64(12), nil).Once()

		n, err := svc.ActiveSince(ctx, since)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)
	})
}
