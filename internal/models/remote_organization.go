package models

import (
	"time"

	"github.com/deployra/docsync/pkg/utils"
	"gorm.io/gorm"
)

// RemoteOrganization mirrors a provider organization, workspace or group
type RemoteOrganization struct {
	ID          string      `gorm:"primaryKey;size:191;column:id" json:"id"`
	RemoteID    string      `gorm:"size:191;uniqueIndex:idx_remote_organization_remote;column:remoteId" json:"remoteId"`
	VCSProvider VCSProvider `gorm:"size:32;uniqueIndex:idx_remote_organization_remote;column:vcsProvider" json:"vcsProvider"`
	Slug        string      `gorm:"size:255;column:slug" json:"slug"`
	Name        *string     `gorm:"size:255;column:name" json:"name,omitempty"`
	Email       *string     `gorm:"size:255;column:email" json:"email,omitempty"`
	AvatarURL   *string     `gorm:"size:255;column:avatarUrl" json:"avatarUrl,omitempty"`
	URL         *string     `gorm:"size:255;column:url" json:"url,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
}

func (RemoteOrganization) TableName() string {
	return "RemoteOrganization"
}

func (o *RemoteOrganization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = utils.GenerateShortID()
	}
	return nil
}

// RemoteOrganizationRelation links a connected account to an organization it belongs to
type RemoteOrganizationRelation struct {
	ID                   string             `gorm:"primaryKey;size:191;column:id" json:"id"`
	RemoteOrganizationID string             `gorm:"size:191;uniqueIndex:idx_remote_organization_relation;column:remoteOrganizationId" json:"remoteOrganizationId"`
	AccountID            string             `gorm:"size:191;uniqueIndex:idx_remote_organization_relation;column:accountId" json:"accountId"`
	UserID               string             `gorm:"index;size:191;column:userId" json:"userId"`
	CreatedAt            time.Time          `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	RemoteOrganization   RemoteOrganization `gorm:"foreignKey:RemoteOrganizationID" json:"-"`
}

func (RemoteOrganizationRelation) TableName() string {
	return "RemoteOrganizationRelation"
}

func (r *RemoteOrganizationRelation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateShortID()
	}
	return nil
}
