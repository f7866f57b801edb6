package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthToken records an issued access token by its JWT ID. The token string
// itself is not stored.
type AuthToken struct {
	BaseModel
	JTI       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"jti"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
}

// TableName 指定 AuthToken 模型的表名。
func (AuthToken) TableName() string {
	return "auth_tokens"
}
