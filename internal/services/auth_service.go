package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"brewfeed/internal/auth"
	"brewfeed/internal/config"
	"brewfeed/internal/models"
	"brewfeed/internal/storage"
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *models.PublicUser `json:"user"`
	Token string             `json:"token"`
}

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	// Authenticate verifies a bearer token and loads its user.
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo  storage.UserRepository
	tokenRepo storage.TokenRepository
	blacklist auth.TokenBlacklist
	cfg       config.AuthConfig
	logger    *slog.Logger
}

// NewAuthService 创建一个新的 AuthService 实例。blacklist 可以为 nil，此时注销只删除令牌记录。
func NewAuthService(
	userRepo storage.UserRepository,
	tokenRepo storage.TokenRepository,
	blacklist auth.TokenBlacklist,
	cfg config.AuthConfig,
	logger *slog.Logger,
) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		blacklist: blacklist,
		cfg:       cfg,
		logger:    logger.With("service", "auth"),
	}
}

// Register 处理用户注册逻辑。
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("检查邮箱时出错: %w", err)
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalidInput("password is too long")
		}
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.logger.Info("user registered", "userId", user.ID)
	return s.issue(ctx, user)
}

// Login 验证邮箱和密码并签发新令牌。
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if !auth.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	claims, err := auth.ValidateToken(ctx, token, s.cfg, s.blacklist)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return user, claims, nil
}

// Logout revokes the token described by claims until it would have expired.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist != nil {
		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		if err := s.blacklist.Add(ctx, claims.ID, exp); err != nil {
			return fmt.Errorf("注销令牌失败: %w", err)
		}
	}
	if err := s.tokenRepo.DeleteByJTI(ctx, claims.ID); err != nil {
		return fmt.Errorf("删除令牌记录失败: %w", err)
	}
	return nil
}

func (s *authService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("清理过期令牌失败: %w", err)
	}
	return n, nil
}

// issue signs a token for user and records its jti.
func (s *authService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, claims, err := auth.GenerateToken(user.ID, s.cfg)
	if err != nil {
		return nil, err
	}
	record := &models.AuthToken{
		JTI:       claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("保存令牌记录失败: %w", err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}
