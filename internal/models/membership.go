package models

// OrganizationMember links a user to an organization.
type OrganizationMember struct {
	OrganizationUUID string `gorm:"primaryKey;type:uuid" json:"organization_uuid"`
	UserID           string `gorm:"primaryKey;type:uuid;index" json:"user_id"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID string `gorm:"primaryKey;type:uuid" json:"group_id"`
	UserID  string `gorm:"primaryKey;type:uuid;index" json:"user_id"`
}
