package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brewfeed/internal/models"
)

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, id uuid.UUID, patch models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByAuthors returns every post by any of authorIDs, newest first.
	ListByAuthors(ctx context.Context, authorIDs []uuid.UUID) ([]models.Post, error)
}

type gormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GORM-based PostRepository.
func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *gormPostRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Update writes the non-nil fields of patch.
func (r *gormPostRepository) Update(ctx context.Context, id uuid.UUID, patch models.PostPatch) (*models.Post, error) {
	updates := patchColumns(patch)
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.FindByID(ctx, id)
}

func (r *gormPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormPostRepository) ListByAuthors(ctx context.Context, authorIDs []uuid.UUID) ([]models.Post, error) {
	var posts []models.Post
	if len(authorIDs) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func patchColumns(patch models.PostPatch) map[string]interface{} {
	updates := make(map[string]interface{})
	if patch.BeerName != nil {
		updates["beer_name"] = *patch.BeerName
	}
	if patch.Place != nil {
		updates["place"] = *patch.Place
	}
	if patch.Rating != nil {
		updates["rating"] = *patch.Rating
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.ImageURL != nil {
		updates["image_url"] = *patch.ImageURL
	}
	return updates
}
