package models

import (
	"bytes"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendshipStatus 定义好友关系的状态
type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friendship is a relationship between two distinct users. SenderID and
// ReceiverID keep who initiated it; UserLowID/UserHighID hold the same pair
// in canonical order so the unique index covers both directions.
type Friendship struct {
	BaseModel
	SenderID   uuid.UUID        `gorm:"type:uuid;not null;index;check:chk_friendship_not_self,sender_id <> receiver_id" json:"senderId"`
	ReceiverID uuid.UUID        `gorm:"type:uuid;not null;index" json:"receiverId"`
	Status     FriendshipStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	UserLowID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair" json:"-"`
	UserHighID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair" json:"-"`

	Sender   User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定 Friendship 模型的表名。
func (Friendship) TableName() string {
	return "friendships"
}

// CanonicalPair orders two user IDs so that the same unordered pair always
// yields the same (low, high) tuple.
func CanonicalPair(a, b uuid.UUID) (low, high uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// EnsureCanonicalOrder fills UserLowID/UserHighID from sender and receiver.
func (f *Friendship) EnsureCanonicalOrder() {
	f.UserLowID, f.UserHighID = CanonicalPair(f.SenderID, f.ReceiverID)
}

// BeforeCreate keeps the canonical columns in sync with sender/receiver.
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	f.EnsureCanonicalOrder()
	return f.BaseModel.BeforeCreate(tx)
}

// Involves reports whether userID is one of the two parties.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f.SenderID == userID || f.ReceiverID == userID
}

// SamePair reports whether f is the row for the unordered pair {a, b}. It
// compares the canonical columns, so f must have been through
// EnsureCanonicalOrder (every stored row has).
func (f *Friendship) SamePair(a, b uuid.UUID) bool {
	low, high := CanonicalPair(a, b)
	return f.UserLowID == low && f.UserHighID == high
}

// OtherParty returns the party that is not userID.
func (f *Friendship) OtherParty(userID uuid.UUID) uuid.UUID {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

// FriendshipRole selects which side of the relationship a user is on.
type FriendshipRole string

const (
	RoleSender   FriendshipRole = "sender"
	RoleReceiver FriendshipRole = "receiver"
	RoleAny      FriendshipRole = "any"
)

// RelationshipStatus is the relationship of a search candidate to the
// user searching.
type RelationshipStatus string

const (
	RelationshipNone            RelationshipStatus = "none"
	RelationshipFriends         RelationshipStatus = "friends"
	RelationshipRequestSent     RelationshipStatus = "request_sent"
	RelationshipRequestReceived RelationshipStatus = "request_received"
)

// RelationshipFor maps f to the status seen by viewer. A nil f means no
// relationship exists.
func RelationshipFor(f *Friendship, viewer uuid.UUID) RelationshipStatus {
	switch {
	case f == nil:
		return RelationshipNone
	case f.Status == FriendshipStatusAccepted:
		return RelationshipFriends
	case f.SenderID == viewer:
		return RelationshipRequestSent
	default:
		return RelationshipRequestReceived
	}
}

// FriendshipDetail is a friendship with both parties' public profiles.
type FriendshipDetail struct {
	ID         uuid.UUID        `json:"id"`
	SenderID   uuid.UUID        `json:"senderId"`
	ReceiverID uuid.UUID        `json:"receiverId"`
	Status     FriendshipStatus `json:"status"`
	CreatedAt  string           `json:"createdAt"`
	Sender     *UserBasicInfo   `json:"sender"`
	Receiver   *UserBasicInfo   `json:"receiver"`
}

// FriendEntry is one accepted friend as listed for a user.
type FriendEntry struct {
	FriendshipID uuid.UUID      `json:"friendshipId"`
	Friend       *UserBasicInfo `json:"friend"`
	CreatedAt    string         `json:"createdAt"`
}

// IncomingRequest is a pending request received by the listing user.
type IncomingRequest struct {
	FriendshipID uuid.UUID      `json:"friendshipId"`
	Sender       *UserBasicInfo `json:"sender"`
	CreatedAt    string         `json:"createdAt"`
}

// OutgoingRequest is a pending request sent by the listing user.
type OutgoingRequest struct {
	FriendshipID uuid.UUID      `json:"friendshipId"`
	Receiver     *UserBasicInfo `json:"receiver"`
	CreatedAt    string         `json:"createdAt"`
}

// UserSearchResult is a search candidate annotated with its relationship
// to the searcher.
type UserSearchResult struct {
	UserBasicInfo
	FriendshipStatus RelationshipStatus `json:"friendshipStatus"`
	FriendshipID     *uuid.UUID         `json:"friendshipId,omitempty"`
}
