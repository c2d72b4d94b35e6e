package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes platform users. Name is the display name and may be empty,
// in which case Login stands in wherever a human-readable label is needed.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Login    string `gorm:"uniqueIndex;not null" json:"login"`
	Name     string `json:"name"`
	Email    string `gorm:"index" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Active bool `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
