package models

// UserPermission grants a permission to a user directly, scoped to an
// organization. Personal organizations rely exclusively on direct grants.
type UserPermission struct {
	OrganizationUUID string `gorm:"primaryKey;type:uuid" json:"organization_uuid"`
	UserID           string `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	Permission       string `gorm:"primaryKey;size:64" json:"permission"`
}

// GroupPermission grants a permission to every member of a group, scoped to
// an organization.
type GroupPermission struct {
	OrganizationUUID string `gorm:"primaryKey;type:uuid" json:"organization_uuid"`
	GroupID          string `gorm:"primaryKey;type:uuid;index" json:"group_id"`
	Permission       string `gorm:"primaryKey;size:64" json:"permission"`
}
