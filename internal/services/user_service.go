package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brewfeed/internal/models"
	"brewfeed/internal/storage"
)

// UpdateProfileInput is a partial profile update. Empty values are ignored.
type UpdateProfileInput struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// UserService 定义了用户相关服务的接口。
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.PublicUser, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.PublicUser, error)
}

// userService 是 UserService 的实现。
type userService struct {
	userRepo storage.UserRepository
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetProfile 获取当前用户的资料。
func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.PublicUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %s 失败: %w", userID, err)
	}
	return user.Public(), nil
}

// UpdateProfile 更新用户的个人资料，只应用非空字段。
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.PublicUser, error) {
	updates := make(map[string]interface{})
	if input.Name != nil && *input.Name != "" {
		updates["name"] = *input.Name
	}
	if input.Avatar != nil && *input.Avatar != "" {
		updates["avatar"] = *input.Avatar
	}

	user, err := s.userRepo.Update(ctx, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("更新用户资料失败: %w", err)
	}
	return user.Public(), nil
}
