package models

import "github.com/google/uuid"

// User is an account. Email is the login identifier.
type User struct {
	BaseModel
	Name         string  `gorm:"type:varchar(100);not null" json:"name"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null" json:"-"`
	Avatar       *string `gorm:"type:varchar(512)" json:"avatar"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}

// UserBasicInfo is the public profile projection of a user. It never
// carries the password hash.
type UserBasicInfo struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar *string   `json:"avatar"`
}

// BasicInfo projects u onto its public profile.
func (u *User) BasicInfo() *UserBasicInfo {
	return &UserBasicInfo{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// PublicUser is what auth endpoints return for the caller's own account.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// Public returns the caller-facing view of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: ISOTime(u.CreatedAt),
		UpdatedAt: ISOTime(u.UpdatedAt),
	}
}
