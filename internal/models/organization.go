package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationNameMaxLength bounds the stored organization name. Longer names
// derived from user input are truncated, never rejected.
const OrganizationNameMaxLength = 64

// Organization is the tenant-scoped container for projects, groups, and
// permissions. A guarded organization is the personal organization of a single
// user; it has OwnerUserID set and never owns any group.
type Organization struct {
	UUID        string  `gorm:"primaryKey;type:uuid" json:"uuid"`
	Key         string  `gorm:"column:kee;uniqueIndex;not null;size:32" json:"key"`
	Name        string  `gorm:"not null;size:64" json:"name"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`

	Guarded     bool    `gorm:"not null;default:false" json:"guarded"`
	OwnerUserID *string `gorm:"type:uuid" json:"owner_user_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the provisioner did not supply one.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == "" {
		o.UUID = uuid.NewString()
	}
	return nil
}

// Group is a named set of users inside a team organization.
type Group struct {
	BaseModel

	OrganizationUUID string `gorm:"type:uuid;not null;uniqueIndex:idx_groups_org_name" json:"organization_uuid"`
	Name             string `gorm:"not null;size:128;uniqueIndex:idx_groups_org_name" json:"name"`
	Description      string `json:"description"`
}
