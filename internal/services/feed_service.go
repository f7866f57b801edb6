package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brewfeed/internal/models"
	"brewfeed/internal/storage"
)

// CreatePostInput is the payload of a new post. ImageURI is stored as the
// post's image URL.
type CreatePostInput struct {
	BeerName string  `json:"beerName"`
	Place    string  `json:"place"`
	Rating   float64 `json:"rating"`
	Notes    *string `json:"notes"`
	ImageURI *string `json:"imageUri"`
}

// UpdatePostInput is a partial update. Only non-empty, non-zero fields are applied.
type UpdatePostInput struct {
	BeerName *string  `json:"beerName"`
	Place    *string  `json:"place"`
	Rating   *float64 `json:"rating"`
	Notes    *string  `json:"notes"`
	ImageURI *string  `json:"imageUri"`
}

// patch drops absent and falsy fields. Empty strings and a zero rating
// never overwrite stored values.
func (in UpdatePostInput) patch() models.PostPatch {
	var p models.PostPatch
	if in.BeerName != nil && *in.BeerName != "" {
		p.BeerName = in.BeerName
	}
	if in.Place != nil && *in.Place != "" {
		p.Place = in.Place
	}
	if in.Rating != nil && *in.Rating != 0 {
		p.Rating = in.Rating
	}
	if in.Notes != nil && *in.Notes != "" {
		p.Notes = in.Notes
	}
	if in.ImageURI != nil && *in.ImageURI != "" {
		p.ImageURL = in.ImageURI
	}
	return p
}

// FeedService resolves which posts a viewer may see and manages posts.
type FeedService interface {
	ListVisiblePosts(ctx context.Context, viewerID uuid.UUID) ([]*models.FeedPost, error)
	GetPost(ctx context.Context, postID uuid.UUID) (*models.FeedPost, error)
	CreatePost(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (*models.FeedPost, error)
	UpdatePost(ctx context.Context, actingUserID, postID uuid.UUID, input UpdatePostInput) (*models.FeedPost, error)
	DeletePost(ctx context.Context, actingUserID, postID uuid.UUID) error
}

type feedService struct {
	userRepo       storage.UserRepository
	friendshipRepo storage.FriendshipRepository
	postRepo       storage.PostRepository
	events         *EventPublisher
	logger         *slog.Logger
}

// NewFeedService creates a new FeedService instance.
func NewFeedService(
	userRepo storage.UserRepository,
	friendshipRepo storage.FriendshipRepository,
	postRepo storage.PostRepository,
	events *EventPublisher,
	logger *slog.Logger,
) FeedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &feedService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		postRepo:       postRepo,
		events:         events,
		logger:         logger.With("service", "feed"),
	}
}

// ListVisiblePosts returns the posts of the viewer and of the viewer's
// accepted friends, newest first.
func (s *feedService) ListVisiblePosts(ctx context.Context, viewerID uuid.UUID) ([]*models.FeedPost, error) {
	friendIDs, err := acceptedFriendIDs(ctx, s.friendshipRepo, viewerID)
	if err != nil {
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}
	authorIDs := append(friendIDs, viewerID)

	posts, err := s.postRepo.ListByAuthors(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("获取帖子失败: %w", err)
	}

	authors, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("获取作者信息失败: %w", err)
	}
	byID := make(map[uuid.UUID]*models.UserBasicInfo, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	feed := make([]*models.FeedPost, 0, len(posts))
	for i := range posts {
		author, ok := byID[posts[i].UserID]
		if !ok {
			s.logger.Error("post author missing", "postId", posts[i].ID, "userId", posts[i].UserID)
			return nil, ErrAuthorMissing
		}
		feed = append(feed, models.NewFeedPost(&posts[i], author))
	}
	return feed, nil
}

// GetPost returns a single post. Friendship is not checked.
func (s *feedService) GetPost(ctx context.Context, postID uuid.UUID) (*models.FeedPost, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, post)
}

func (s *feedService) CreatePost(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (*models.FeedPost, error) {
	post := &models.Post{
		UserID:   authorID,
		BeerName: input.BeerName,
		Place:    input.Place,
		Rating:   input.Rating,
		Notes:    input.Notes,
		ImageURL: input.ImageURI,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("创建帖子失败: %w", err)
	}

	s.events.PublishPost(ctx, EventPostCreated, post)
	return s.enrich(ctx, post)
}

func (s *feedService) UpdatePost(ctx context.Context, actingUserID, postID uuid.UUID, input UpdatePostInput) (*models.FeedPost, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actingUserID {
		return nil, ErrNotAuthorUpdate
	}

	updated, err := s.postRepo.Update(ctx, post.ID, input.patch())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("更新帖子失败: %w", err)
	}

	s.events.PublishPost(ctx, EventPostUpdated, updated)
	return s.enrich(ctx, updated)
}

func (s *feedService) DeletePost(ctx context.Context, actingUserID, postID uuid.UUID) error {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actingUserID {
		return ErrNotAuthorDelete
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("删除帖子失败: %w", err)
	}

	s.events.PublishPost(ctx, EventPostDeleted, post)
	return nil
}

func (s *feedService) findPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("查询帖子失败: %w", err)
	}
	return post, nil
}

// enrich attaches the author's name and avatar.
func (s *feedService) enrich(ctx context.Context, post *models.Post) (*models.FeedPost, error) {
	author, err := s.userRepo.GetBasicInfoByID(ctx, post.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("post author missing", "postId", post.ID, "userId", post.UserID)
			return nil, ErrAuthorMissing
		}
		return nil, fmt.Errorf("获取作者信息失败: %w", err)
	}
	return models.NewFeedPost(post, author), nil
}
