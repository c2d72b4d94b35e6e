package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/database/testutil"
	"github.com/yueyuegd/sonarqube/internal/models"
)

// sequenceIDs hands out deterministic identifiers: seq-1, seq-2, ...
type sequenceIDs struct {
	prefix string
	next   int
}

func (s *sequenceIDs) NewID() string {
	s.next++
	prefix := s.prefix
	if prefix == "" {
		prefix = "seq"
	}
	return fmt.Sprintf("%s-%d", prefix, s.next)
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

// stubValidation lets tests inject per-field failures and fixed slugs.
type stubValidation struct {
	keyErr    error
	descErr   error
	urlErr    error
	avatarErr error
	slugs     map[string]string
}

func (v stubValidation) CheckKey(string) error         { return v.keyErr }
func (v stubValidation) CheckDescription(string) error { return v.descErr }
func (v stubValidation) CheckURL(string) error         { return v.urlErr }
func (v stubValidation) CheckAvatar(string) error      { return v.avatarErr }

func (v stubValidation) GenerateKeyFrom(login string) string {
	if slug, ok := v.slugs[login]; ok {
		return slug
	}
	return "slug-of-" + login
}

var someDate = time.Date(2017, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestProvisioner(t *testing.T, db *gorm.DB, flags FeatureFlags) *ProvisioningService {
	t.Helper()

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewProvisioningService(db, stubValidation{}, &sequenceIDs{}, fixedClock{at: someDate}, flags, audit)
	require.NoError(t, err)
	return svc
}

func openServicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t)
}

func insertTestUser(t *testing.T, db *gorm.DB, login, name string) *models.User {
	t.Helper()

	user := &models.User{
		Login:    login,
		Name:     name,
		Password: "irrelevant-hash",
		Active:   true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

// requireEmptyProvisioningTables asserts no provisioning row exists beyond
// the allowed number of organizations.
func requireEmptyProvisioningTables(t *testing.T, db *gorm.DB, organizations int64) {
	t.Helper()

	require.Equal(t, organizations, countRows(t, db, &models.Organization{}))
	require.Zero(t, countRows(t, db, &models.Group{}))
	require.Zero(t, countRows(t, db, &models.GroupMember{}))
	require.Zero(t, countRows(t, db, &models.GroupPermission{}))
	require.Zero(t, countRows(t, db, &models.UserPermission{}))
	require.Zero(t, countRows(t, db, &models.PermissionTemplate{}))
	require.Zero(t, countRows(t, db, &models.TemplateGroupPermission{}))
	require.Zero(t, countRows(t, db, &models.TemplateCharacteristic{}))
	require.Zero(t, countRows(t, db, &models.DefaultTemplates{}))
	require.Zero(t, countRows(t, db, &models.OrganizationMember{}))
}
