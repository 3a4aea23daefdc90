package models

import (
	"time"

	"github.com/deployra/docsync/pkg/utils"
	"gorm.io/gorm"
)

type User struct {
	ID             string          `gorm:"primaryKey;size:191;column:id" json:"id"`
	Username       string          `gorm:"uniqueIndex;size:191;column:username" json:"username"`
	Email          string          `gorm:"size:191;column:email" json:"email"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	DeletedAt      *time.Time      `gorm:"index;column:deletedAt" json:"deletedAt,omitempty"`
	SocialAccounts []SocialAccount `gorm:"foreignKey:UserID" json:"socialAccounts,omitempty"`
}

func (User) TableName() string {
	return "User"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = utils.GenerateShortID()
	}
	return nil
}
