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

// FriendshipService maintains the friendship graph: requests, acceptance,
// removal, listings and relationship-aware user search.
type FriendshipService interface {
	RequestFriendship(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendshipDetail, error)
	AcceptFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (*models.FriendshipDetail, error)
	RemoveFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.FriendEntry, error)
	ListPendingIncoming(ctx context.Context, userID uuid.UUID) ([]*models.IncomingRequest, error)
	ListPendingOutgoing(ctx context.Context, userID uuid.UUID) ([]*models.OutgoingRequest, error)
	SearchUsers(ctx context.Context, requestingUserID uuid.UUID, query string) ([]*models.UserSearchResult, error)
}

type friendshipService struct {
	userRepo       storage.UserRepository
	friendshipRepo storage.FriendshipRepository
	events         *EventPublisher
	logger         *slog.Logger
}

// NewFriendshipService creates a new FriendshipService instance.
func NewFriendshipService(
	userRepo storage.UserRepository,
	friendshipRepo storage.FriendshipRepository,
	events *EventPublisher,
	logger *slog.Logger,
) FriendshipService {
	if logger == nil {
		logger = slog.Default()
	}
	return &friendshipService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		events:         events,
		logger:         logger.With("service", "friendship"),
	}
}

// FriendRequestInput is the payload of a friend request.
type FriendRequestInput struct {
	ReceiverID string `json:"receiverId" validate:"required"`
}

// ReceiverUUID validates in and returns the receiver id. A missing id is
// ErrMissingReceiver; an id that is not a UUID names no user and is
// ErrInvalidTarget.
func (in FriendRequestInput) ReceiverUUID() (uuid.UUID, error) {
	if err := validateInput(in); err != nil {
		return uuid.Nil, ErrMissingReceiver
	}
	id, err := uuid.Parse(in.ReceiverID)
	if err != nil {
		return uuid.Nil, ErrInvalidTarget
	}
	return id, nil
}

// RequestFriendship creates a pending request from sender to receiver.
func (s *friendshipService) RequestFriendship(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendshipDetail, error) {
	if receiverID == uuid.Nil {
		return nil, ErrMissingReceiver
	}
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidTarget
		}
		return nil, fmt.Errorf("检查接收用户时出错: %w", err)
	}

	existing, err := s.friendshipRepo.FindBetween(ctx, senderID, receiverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("检查现有好友关系时出错: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateRelationship
	}

	friendship := &models.Friendship{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendshipStatusPending,
	}
	if err := s.friendshipRepo.Create(ctx, friendship); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// Lost the race against a concurrent request for the same pair.
			return nil, ErrDuplicateRelationship
		case errors.Is(err, gorm.ErrCheckConstraintViolated):
			return nil, ErrSelfRequest
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return nil, ErrInvalidTarget
		}
		return nil, fmt.Errorf("创建好友请求失败: %w", err)
	}

	s.events.PublishFriendship(ctx, EventFriendshipRequested, friendship, senderID)
	return s.detail(ctx, friendship)
}

// AcceptFriendship moves a pending request to accepted. Only the receiver may accept.
func (s *friendshipService) AcceptFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (*models.FriendshipDetail, error) {
	friendship, err := s.friendshipRepo.FindByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFriendRequestNotFound
		}
		return nil, fmt.Errorf("查询好友请求失败: %w", err)
	}
	if friendship.ReceiverID != actingUserID {
		return nil, ErrNotReceiver
	}
	if friendship.Status == models.FriendshipStatusAccepted {
		return nil, ErrAlreadyAccepted
	}

	updated, err := s.friendshipRepo.UpdateStatus(ctx, friendship.ID, models.FriendshipStatusAccepted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFriendRequestNotFound
		}
		return nil, fmt.Errorf("接受好友请求失败: %w", err)
	}

	s.events.PublishFriendship(ctx, EventFriendshipAccepted, updated, actingUserID)
	return s.detail(ctx, updated)
}

// RemoveFriendship deletes the relationship whatever its status. Either party may remove it.
func (s *friendshipService) RemoveFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) error {
	friendship, err := s.friendshipRepo.FindByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendshipNotFound
		}
		return fmt.Errorf("查询好友关系失败: %w", err)
	}
	if !friendship.Involves(actingUserID) {
		return ErrNotParticipant
	}

	if err := s.friendshipRepo.Delete(ctx, friendship.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendshipNotFound
		}
		return fmt.Errorf("删除好友关系失败: %w", err)
	}

	s.events.PublishFriendship(ctx, EventFriendshipRemoved, friendship, actingUserID)
	return nil
}

// ListFriends returns the other party of every accepted relationship of userID.
func (s *friendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.FriendEntry, error) {
	friendships, err := s.friendshipRepo.ListByUserAndStatus(ctx, userID, models.RoleAny, models.FriendshipStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}
	profiles, err := s.profilesOf(ctx, friendships, func(f *models.Friendship) uuid.UUID { return f.OtherParty(userID) })
	if err != nil {
		return nil, err
	}

	entries := make([]*models.FriendEntry, 0, len(friendships))
	for i := range friendships {
		f := &friendships[i]
		entries = append(entries, &models.FriendEntry{
			FriendshipID: f.ID,
			Friend:       profiles[f.OtherParty(userID)],
			CreatedAt:    models.ISOTime(f.CreatedAt),
		})
	}
	return entries, nil
}

// ListPendingIncoming returns pending requests received by userID, newest first.
func (s *friendshipService) ListPendingIncoming(ctx context.Context, userID uuid.UUID) ([]*models.IncomingRequest, error) {
	friendships, err := s.friendshipRepo.ListByUserAndStatus(ctx, userID, models.RoleReceiver, models.FriendshipStatusPending)
	if err != nil {
		return nil, fmt.Errorf("获取收到的好友请求失败: %w", err)
	}
	profiles, err := s.profilesOf(ctx, friendships, func(f *models.Friendship) uuid.UUID { return f.SenderID })
	if err != nil {
		return nil, err
	}

	requests := make([]*models.IncomingRequest, 0, len(friendships))
	for i := range friendships {
		f := &friendships[i]
		requests = append(requests, &models.IncomingRequest{
			FriendshipID: f.ID,
			Sender:       profiles[f.SenderID],
			CreatedAt:    models.ISOTime(f.CreatedAt),
		})
	}
	return requests, nil
}

// ListPendingOutgoing returns pending requests sent by userID, newest first.
func (s *friendshipService) ListPendingOutgoing(ctx context.Context, userID uuid.UUID) ([]*models.OutgoingRequest, error) {
	friendships, err := s.friendshipRepo.ListByUserAndStatus(ctx, userID, models.RoleSender, models.FriendshipStatusPending)
	if err != nil {
		return nil, fmt.Errorf("获取发出的好友请求失败: %w", err)
	}
	profiles, err := s.profilesOf(ctx, friendships, func(f *models.Friendship) uuid.UUID { return f.ReceiverID })
	if err != nil {
		return nil, err
	}

	requests := make([]*models.OutgoingRequest, 0, len(friendships))
	for i := range friendships {
		f := &friendships[i]
		requests = append(requests, &models.OutgoingRequest{
			FriendshipID: f.ID,
			Receiver:     profiles[f.ReceiverID],
			CreatedAt:    models.ISOTime(f.CreatedAt),
		})
	}
	return requests, nil
}

// SearchUsers finds other users by name or email and annotates each with its
// relationship to the searcher.
func (s *friendshipService) SearchUsers(ctx context.Context, requestingUserID uuid.UUID, query string) ([]*models.UserSearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	users, err := s.userRepo.SearchUsers(ctx, query, requestingUserID)
	if err != nil {
		return nil, fmt.Errorf("搜索用户失败: %w", err)
	}

	candidateIDs := make([]uuid.UUID, 0, len(users))
	for i := range users {
		candidateIDs = append(candidateIDs, users[i].ID)
	}
	friendships, err := s.friendshipRepo.ListBetweenUserAndMany(ctx, requestingUserID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("查询好友关系失败: %w", err)
	}
	byOther := make(map[uuid.UUID]*models.Friendship, len(friendships))
	for i := range friendships {
		byOther[friendships[i].OtherParty(requestingUserID)] = &friendships[i]
	}

	results := make([]*models.UserSearchResult, 0, len(users))
	for i := range users {
		u := &users[i]
		f := byOther[u.ID]
		result := &models.UserSearchResult{
			UserBasicInfo:    *u.BasicInfo(),
			FriendshipStatus: models.RelationshipFor(f, requestingUserID),
		}
		if f != nil {
			id := f.ID
			result.FriendshipID = &id
		}
		results = append(results, result)
	}
	return results, nil
}

// detail attaches both parties' public profiles to f.
func (s *friendshipService) detail(ctx context.Context, f *models.Friendship) (*models.FriendshipDetail, error) {
	profiles, err := s.profiles(ctx, []uuid.UUID{f.SenderID, f.ReceiverID})
	if err != nil {
		return nil, err
	}
	return &models.FriendshipDetail{
		ID:         f.ID,
		SenderID:   f.SenderID,
		ReceiverID: f.ReceiverID,
		Status:     f.Status,
		CreatedAt:  models.ISOTime(f.CreatedAt),
		Sender:     profiles[f.SenderID],
		Receiver:   profiles[f.ReceiverID],
	}, nil
}

// profilesOf loads the profile that pick selects from each friendship.
func (s *friendshipService) profilesOf(ctx context.Context, friendships []models.Friendship, pick func(*models.Friendship) uuid.UUID) (map[uuid.UUID]*models.UserBasicInfo, error) {
	ids := make([]uuid.UUID, 0, len(friendships))
	for i := range friendships {
		ids = append(ids, pick(&friendships[i]))
	}
	return s.profiles(ctx, ids)
}

// profiles loads public profiles by id. Every id must resolve.
func (s *friendshipService) profiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.UserBasicInfo, error) {
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("获取用户信息失败: %w", err)
	}
	byID := make(map[uuid.UUID]*models.UserBasicInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			s.logger.Error("friendship references missing user", "userId", id)
			return nil, ErrPartyMissing
		}
	}
	return byID, nil
}

// acceptedFriendIDs returns every user with an accepted relationship to
// userID, in either direction.
func acceptedFriendIDs(ctx context.Context, repo storage.FriendshipRepository, userID uuid.UUID) ([]uuid.UUID, error) {
	friendships, err := repo.ListByUserAndStatus(ctx, userID, models.RoleAny, models.FriendshipStatusAccepted)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(friendships))
	for i := range friendships {
		ids = append(ids, friendships[i].OtherParty(userID))
	}
	return ids, nil
}
