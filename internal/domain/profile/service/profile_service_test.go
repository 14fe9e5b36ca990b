package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain/profile/model"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockProfileRepository is a mock of ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetRole(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(MockProfileRepository)
		s := NewProfileService(repo, nil)
		repo.On("GetByID", ctx, "p-1").Return(&model.Profile{Email: "a@example.com"}, nil)

		p, err := s.GetProfile(ctx, "p-1")
		assert.NoError(t, err)
		assert.Equal(t, "a@example.com", p.Email)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockProfileRepository)
		s := NewProfileService(repo, nil)
		repo.On("GetByID", ctx, "p-2").Return(nil, gorm.ErrRecordNotFound)

		_, err := s.GetProfile(ctx, "p-2")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}

func TestGetRole(t *testing.T) {
	ctx := context.Background()

	t.Run("cached after first lookup", func(t *testing.T) {
		repo := new(MockProfileRepository)
		s := NewProfileService(repo, cache.NewMemoryCache())
		repo.On("GetRole", ctx, "p-1").Return(model.RoleAdmin, nil).Once()

		for i := 0; i < 3; i++ {
			role, err := s.GetRole(ctx, "p-1")
			assert.NoError(t, err)
			assert.Equal(t, model.RoleAdmin, role)
		}
		repo.AssertNumberOfCalls(t, "GetRole", 1)
	})

	t.Run("missing profile", func(t *testing.T) {
		repo := new(MockProfileRepository)
		s := NewProfileService(repo, nil)
		repo.On("GetRole", ctx, "ghost").Return("", gorm.ErrRecordNotFound)

		_, err := s.GetRole(ctx, "ghost")
		assert.ErrorIs(t, err, middleware.ErrRoleNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo := new(MockProfileRepository)
		s := NewProfileService(repo, nil)
		repo.On("GetRole", ctx, "p-3").Return("", errors.New("connection refused"))

		_, err := s.GetRole(ctx, "p-3")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, middleware.ErrRoleNotFound)
	})
}
