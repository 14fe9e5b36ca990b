package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/profile/model"
	"storefront/internal/domain/profile/repository"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/cache"
	"storefront/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrProfileNotFound = errors.New("profile not found")

// 缓存键常量
const (
	RoleCacheKeyPrefix = "profile_role:"
	RoleCacheTTL       = time.Minute
)

// ProfileService 用户资料服务，同时作为管理员中间件的角色来源
type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetRole(ctx context.Context, id string) (string, error)
}

type profileService struct {
	repo  repository.ProfileRepository
	cache cache.CacheService
}

// NewProfileService cache 可为 nil
func NewProfileService(repo repository.ProfileRepository, cache cache.CacheService) ProfileService {
	return &profileService{repo: repo, cache: cache}
}

func (s *profileService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// GetRole 角色短时缓存，降低管理后台每个请求的查询量
func (s *profileService) GetRole(ctx context.Context, id string) (string, error) {
	key := RoleCacheKeyPrefix + id
	if s.cache != nil {
		var role string
		if err := s.cache.Get(ctx, key, &role); err == nil {
			return role, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Log.Warn("role cache read failed", zap.String("profile_id", id), zap.Error(err))
		}
	}

	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", middleware.ErrRoleNotFound
		}
		return "", fmt.Errorf("get role: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, role, RoleCacheTTL); err != nil {
			logger.Log.Warn("role cache write failed", zap.String("profile_id", id), zap.Error(err))
		}
	}
	return role, nil
}
