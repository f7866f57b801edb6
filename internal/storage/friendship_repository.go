package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brewfeed/internal/models"
)

// FriendshipRepository defines the interface for friendship data operations.
type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error)
	// FindBetween returns the relationship between a and b in either direction.
	FindBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.FriendshipStatus) (*models.Friendship, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByUserAndStatus lists relationships where userID plays role, newest first.
	ListByUserAndStatus(ctx context.Context, userID uuid.UUID, role models.FriendshipRole, status models.FriendshipStatus) ([]models.Friendship, error)
	// ListBetweenUserAndMany returns every relationship between userID and any of others.
	ListBetweenUserAndMany(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]models.Friendship, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GormFriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

// betweenPairs matches the rows for the unordered pairs {userID, other}, one
// per other. Every pair lookup goes through here.
func betweenPairs(userID uuid.UUID, others ...uuid.UUID) func(*gorm.DB) *gorm.DB {
	pairs := make([][]interface{}, 0, len(others))
	for _, other := range others {
		low, high := models.CanonicalPair(userID, other)
		pairs = append(pairs, []interface{}{low, high})
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(user_low_id, user_high_id) IN ?", pairs)
	}
}

// betweenUsers matches the single row for the unordered pair {a, b}.
func betweenUsers(a, b uuid.UUID) func(*gorm.DB) *gorm.DB {
	return betweenPairs(a, b)
}

// involvingUser matches rows where userID plays role.
func involvingUser(userID uuid.UUID, role models.FriendshipRole) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch role {
		case models.RoleSender:
			return db.Where("sender_id = ?", userID)
		case models.RoleReceiver:
			return db.Where("receiver_id = ?", userID)
		default:
			return db.Where("sender_id = ? OR receiver_id = ?", userID, userID)
		}
	}
}

// Create inserts friendship. A second row for the same pair fails with
// gorm.ErrDuplicatedKey.
func (r *gormFriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	friendship.EnsureCanonicalOrder()
	return r.db.WithContext(ctx).Create(friendship).Error
}

func (r *gormFriendshipRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	var f models.Friendship
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *gormFriendshipRepository) FindBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	var f models.Friendship
	if err := r.db.WithContext(ctx).Scopes(betweenUsers(a, b)).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *gormFriendshipRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.FriendshipStatus) (*models.Friendship, error) {
	res := r.db.WithContext(ctx).Model(&models.Friendship{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *gormFriendshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Friendship{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormFriendshipRepository) ListByUserAndStatus(ctx context.Context, userID uuid.UUID, role models.FriendshipRole, status models.FriendshipStatus) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).
		Scopes(involvingUser(userID, role)).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

func (r *gormFriendshipRepository) ListBetweenUserAndMany(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]models.Friendship, error) {
	var friendships []models.Friendship
	if len(others) == 0 {
		return friendships, nil
	}
	err := r.db.WithContext(ctx).
		Scopes(betweenPairs(userID, others...)).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}
