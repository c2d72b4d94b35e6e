package services

import (
	"time"

	"github.com/google/uuid"
)

// IDFactory produces identifiers for newly provisioned rows.
type IDFactory interface {
	NewID() string
}

// Clock supplies the timestamps stamped onto provisioned rows.
type Clock interface {
	Now() time.Time
}

// FeatureFlags exposes the platform toggles the provisioner consults.
type FeatureFlags interface {
	PersonalOrganizationsEnabled() bool
}

// UUIDFactory is the production IDFactory backed by random UUIDs.
type UUIDFactory struct{}

func (UUIDFactory) NewID() string {
	return uuid.NewString()
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// StaticFlags is a fixed FeatureFlags implementation, useful for wiring
// config values and for tests.
type StaticFlags struct {
	PersonalOrganizations bool
}

func (f StaticFlags) PersonalOrganizationsEnabled() bool {
	return f.PersonalOrganizations
}
