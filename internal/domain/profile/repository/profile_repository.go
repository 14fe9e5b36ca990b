package repository

import (
	"context"

	"storefront/internal/domain/profile/model"

	"gorm.io/gorm"
)

// ProfileRepository 接口定义
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetRole(ctx context.Context, id string) (string, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建新的仓库实例
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByID 根据ID获取用户资料
func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetRole 只查询角色字段
func (r *profileRepository) GetRole(ctx context.Context, id string) (string, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Select("role").Where("id = ?", id).First(&profile).Error
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}
