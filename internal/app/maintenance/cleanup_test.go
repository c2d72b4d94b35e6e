package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/database/testutil"
	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/internal/services"
)

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestCleanupOrphanedMemberships(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	active := models.User{ID: "active", Login: "active", Password: "x", Active: true}
	inactive := models.User{ID: "inactive", Login: "inactive", Password: "x", Active: false}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&inactive).Error)

	for _, userID := range []string{"active", "inactive", "ghost"} {
		require.NoError(t, db.Create(&models.OrganizationMember{OrganizationUUID: "org-1", UserID: userID}).Error)
		require.NoError(t, db.Create(&models.GroupMember{GroupID: "group-1", UserID: userID}).Error)
		require.NoError(t, db.Create(&models.UserPermission{OrganizationUUID: "org-1", UserID: userID, Permission: "admin"}).Error)
	}

	stats, err := CleanupOrphanedMemberships(context.Background(), db)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.OrganizationMembers)
	require.EqualValues(t, 2, stats.GroupMembers)
	require.EqualValues(t, 2, stats.UserPermissions)
	require.EqualValues(t, 6, stats.Total())

	var members []models.OrganizationMember
	require.NoError(t, db.Find(&members).Error)
	require.Len(t, members, 1)
	require.Equal(t, "active", members[0].UserID)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	stale := models.AuditLog{Action: "org.provision", Result: "success", CreatedAt: now.Add(-100 * 24 * time.Hour)}
	fresh := models.AuditLog{Action: "org.provision", Result: "success", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)

	require.NoError(t, db.Create(&models.OrganizationMember{OrganizationUUID: "org-1", UserID: "ghost"}).Error)

	cleaner := NewCleaner(db, audit,
		WithNow(func() time.Time { return now }),
		WithAuditRetention(90*24*time.Hour),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	require.EqualValues(t, 1, countRows(t, db, &models.AuditLog{}))
	require.Zero(t, countRows(t, db, &models.OrganizationMember{}))
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, audit,
		WithAuditSchedule("@every 1h"),
		WithMembershipSchedule("@every 1h"),
	)
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}
