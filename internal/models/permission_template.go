package models

// PermissionTemplate is the permission set applied to new projects created
// within an organization.
type PermissionTemplate struct {
	BaseModel

	OrganizationUUID string `gorm:"type:uuid;not null;index" json:"organization_uuid"`
	Name             string `gorm:"not null;size:100" json:"name"`
	Description      string `json:"description"`
}

// DefaultTemplates records which templates an organization applies to new
// projects and views. The view template is optional.
type DefaultTemplates struct {
	OrganizationUUID  string  `gorm:"primaryKey;type:uuid" json:"organization_uuid"`
	ProjectTemplateID string  `gorm:"type:uuid;not null" json:"project_template_id"`
	ViewTemplateID    *string `gorm:"type:uuid" json:"view_template_id,omitempty"`
}

// TemplateGroupPermission targets a template permission at a fixed group.
// An empty GroupID addresses the implicit "Anyone" group.
type TemplateGroupPermission struct {
	TemplateID string `gorm:"primaryKey;type:uuid" json:"template_id"`
	GroupID    string `gorm:"primaryKey;type:uuid;default:''" json:"group_id"`
	Permission string `gorm:"primaryKey;size:64" json:"permission"`
}

// TemplateCharacteristic targets a template permission at whoever creates the
// project rather than at a fixed group. It is the variant counterpart of
// TemplateGroupPermission.
type TemplateCharacteristic struct {
	TemplateID         string `gorm:"primaryKey;type:uuid" json:"template_id"`
	Permission         string `gorm:"primaryKey;size:64" json:"permission"`
	WithProjectCreator bool   `gorm:"not null" json:"with_project_creator"`
}
