package models

import (
	"time"

	"github.com/deployra/docsync/pkg/utils"
	"gorm.io/gorm"
)

// SocialAccount is a user's connected OAuth account on one VCS provider.
// Tokens are stored encrypted (see internal/crypto).
type SocialAccount struct {
	ID           string      `gorm:"primaryKey;size:191;column:id" json:"id"`
	UserID       string      `gorm:"index;size:191;column:userId" json:"userId"`
	Provider     VCSProvider `gorm:"size:32;uniqueIndex:idx_social_account_uid;column:provider" json:"provider"`
	UID          string      `gorm:"size:191;uniqueIndex:idx_social_account_uid;column:uid" json:"uid"`
	Username     *string     `gorm:"size:191;column:username" json:"username,omitempty"`
	AvatarUrl    *string     `gorm:"size:191;column:avatarUrl" json:"avatarUrl,omitempty"`
	AccessToken  string      `gorm:"type:text;column:accessToken" json:"-"`
	RefreshToken *string     `gorm:"type:text;column:refreshToken" json:"-"`
	TokenType    *string     `gorm:"size:191;column:tokenType" json:"-"`
	ExpiresAt    *time.Time  `gorm:"column:expiresAt" json:"expiresAt,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	User         User        `gorm:"foreignKey:UserID" json:"-"`
}

func (SocialAccount) TableName() string {
	return "SocialAccount"
}

func (a *SocialAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateShortID()
	}
	return nil
}
