package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"brewfeed/internal/models"
)

// TokenRepository keeps track of issued access tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	DeleteByJTI(ctx context.Context, jti string) error
	// DeleteExpired removes tokens that expired before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type gormTokenRepository struct {
	db *gorm.DB
}

// NewGormTokenRepository creates a new GORM-based TokenRepository.
func NewGormTokenRepository(db *gorm.DB) TokenRepository {
	return &gormTokenRepository{db: db}
}

func (r *gormTokenRepository) Create(ctx context.Context, token *models.AuthToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// DeleteByJTI is a no-op for unknown jtis.
func (r *gormTokenRepository) DeleteByJTI(ctx context.Context, jti string) error {
	return r.db.WithContext(ctx).Where("jti = ?", jti).Delete(&models.AuthToken{}).Error
}

func (r *gormTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.AuthToken{})
	return res.RowsAffected, res.Error
}
