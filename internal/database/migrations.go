package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/models"
)

// AutoMigrate applies the schema for every persistent model.
//
// Ordering matters for foreign-key creation: organizations before groups and
// templates, templates before their permission rows.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Group{},
		&models.OrganizationMember{},
		&models.GroupMember{},
		&models.UserPermission{},
		&models.GroupPermission{},
		&models.PermissionTemplate{},
		&models.DefaultTemplates{},
		&models.TemplateGroupPermission{},
		&models.TemplateCharacteristic{},
		&models.AuditLog{},
	)
}
