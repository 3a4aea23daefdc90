package models

import (
	"time"

	"github.com/deployra/docsync/pkg/utils"
	"gorm.io/gorm"
)

// RemoteRepository mirrors a repository reachable by at least one connected account
type RemoteRepository struct {
	ID             string              `gorm:"primaryKey;size:191;column:id" json:"id"`
	RemoteID       string              `gorm:"size:191;uniqueIndex:idx_remote_repository_remote;column:remoteId" json:"remoteId"`
	VCSProvider    VCSProvider         `gorm:"size:32;uniqueIndex:idx_remote_repository_remote;column:vcsProvider" json:"vcsProvider"`
	Name           string              `gorm:"size:255;column:name" json:"name"`
	FullName       string              `gorm:"size:255;index;column:fullName" json:"fullName"`
	Description    *string             `gorm:"type:text;column:description" json:"description,omitempty"`
	CloneURL       string              `gorm:"size:512;column:cloneUrl" json:"cloneUrl"`
	SSHURL         string              `gorm:"size:512;column:sshUrl" json:"sshUrl"`
	HTMLURL        string              `gorm:"size:512;column:htmlUrl" json:"htmlUrl"`
	DefaultBranch  *string             `gorm:"size:255;column:defaultBranch" json:"defaultBranch,omitempty"`
	AvatarURL      string              `gorm:"size:512;column:avatarUrl" json:"avatarUrl"`
	Private        bool                `gorm:"default:false;column:private" json:"private"`
	VCS            string              `gorm:"size:32;column:vcs" json:"vcs"`
	OrganizationID *string             `gorm:"index;size:191;column:organizationId" json:"organizationId,omitempty"`
	CreatedAt      time.Time           `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	Organization   *RemoteOrganization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (RemoteRepository) TableName() string {
	return "RemoteRepository"
}

func (r *RemoteRepository) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateShortID()
	}
	return nil
}

// BelongsTo reports whether the repository is owned by the given organization.
// A nil organization matches only repositories without an owner.
func (r *RemoteRepository) BelongsTo(org *RemoteOrganization) bool {
	if r.OrganizationID == nil {
		return org == nil
	}
	return org != nil && *r.OrganizationID == org.ID
}

// RemoteRepositoryRelation links a connected account to a repository it can access
type RemoteRepositoryRelation struct {
	ID                 string           `gorm:"primaryKey;size:191;column:id" json:"id"`
	RemoteRepositoryID string           `gorm:"size:191;uniqueIndex:idx_remote_repository_relation;column:remoteRepositoryId" json:"remoteRepositoryId"`
	AccountID          string           `gorm:"size:191;uniqueIndex:idx_remote_repository_relation;column:accountId" json:"accountId"`
	UserID             string           `gorm:"index;size:191;column:userId" json:"userId"`
	Admin              bool             `gorm:"default:false;column:admin" json:"admin"`
	CreatedAt          time.Time        `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	RemoteRepository   RemoteRepository `gorm:"foreignKey:RemoteRepositoryID" json:"-"`
}

func (RemoteRepositoryRelation) TableName() string {
	return "RemoteRepositoryRelation"
}

func (r *RemoteRepositoryRelation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateShortID()
	}
	return nil
}
