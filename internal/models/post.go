package models

import "github.com/google/uuid"

// Post is a beer rating authored by a single user.
type Post struct {
	BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	BeerName string    `gorm:"type:varchar(255);not null" json:"beerName"`
	Place    string    `gorm:"type:varchar(255);not null" json:"place"`
	Rating   float64   `gorm:"not null" json:"rating"`
	Notes    *string   `gorm:"type:text" json:"notes"`
	ImageURL *string   `gorm:"type:varchar(1024)" json:"imageUrl"`

	Author User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定 Post 模型的表名。
func (Post) TableName() string {
	return "posts"
}

// PostFields are the author-supplied values of a new post.
type PostFields struct {
	BeerName string
	Place    string
	Rating   float64
	Notes    *string
	ImageURL *string
}

// PostPatch carries a partial update. Nil fields are left unchanged.
type PostPatch struct {
	BeerName *string
	Place    *string
	Rating   *float64
	Notes    *string
	ImageURL *string
}

// FeedPost is a post enriched with its author's name and avatar.
type FeedPost struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar *string   `json:"userAvatar"`
	BeerName   string    `json:"beerName"`
	Place      string    `json:"place"`
	Rating     float64   `json:"rating"`
	Notes      *string   `json:"notes"`
	ImageURL   *string   `json:"imageUrl"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

// NewFeedPost enriches p with author.
func NewFeedPost(p *Post, author *UserBasicInfo) *FeedPost {
	return &FeedPost{
		ID:         p.ID,
		UserID:     p.UserID,
		UserName:   author.Name,
		UserAvatar: author.Avatar,
		BeerName:   p.BeerName,
		Place:      p.Place,
		Rating:     p.Rating,
		Notes:      p.Notes,
		ImageURL:   p.ImageURL,
		CreatedAt:  ISOTime(p.CreatedAt),
		UpdatedAt:  ISOTime(p.UpdatedAt),
	}
}
