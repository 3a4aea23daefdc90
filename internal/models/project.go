package models

import (
	"time"

	"github.com/deployra/docsync/pkg/utils"
	"gorm.io/gorm"
)

// Project is a documentation project built from one repository
type Project struct {
	ID                 string            `gorm:"primaryKey;size:191;column:id" json:"id"`
	Slug               string            `gorm:"uniqueIndex;size:191;column:slug" json:"slug"`
	Name               string            `gorm:"size:191;column:name" json:"name"`
	Repo               string            `gorm:"size:255;column:repo" json:"repo"`
	DefaultBranch      *string           `gorm:"size:191;column:defaultBranch" json:"defaultBranch,omitempty"`
	UserID             string            `gorm:"index;size:191;column:userId" json:"userId"`
	RemoteRepositoryID *string           `gorm:"index;size:191;column:remoteRepositoryId" json:"remoteRepositoryId,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	DeletedAt          *time.Time        `gorm:"index;column:deletedAt" json:"deletedAt,omitempty"`
	User               User              `gorm:"foreignKey:UserID" json:"-"`
	RemoteRepository   *RemoteRepository `gorm:"foreignKey:RemoteRepositoryID" json:"remoteRepository,omitempty"`
	Integrations       []Integration     `gorm:"foreignKey:ProjectID" json:"integrations,omitempty"`
}

func (Project) TableName() string {
	return "Project"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateShortID()
	}
	return nil
}

// HasRemoteRepository reports whether the project was imported from a synced repository
func (p *Project) HasRemoteRepository() bool {
	return p.RemoteRepositoryID != nil && *p.RemoteRepositoryID != ""
}
