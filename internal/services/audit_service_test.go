package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yueyuegd/sonarqube/internal/models"
)

func TestAuditLogPersistsMetadata(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	err = svc.Log(context.Background(), AuditEntry{
		UserID:   stringPtr("user-1"),
		Action:   "org.provision",
		Resource: "org-1",
		Result:   "success",
		Metadata: map[string]any{"key": "a-key"},
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	require.NotNil(t, row.UserID)
	require.Equal(t, "user-1", *row.UserID)
	require.Equal(t, "org.provision", row.Action)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(row.Metadata, &meta))
	require.Equal(t, "a-key", meta["key"])
}

func TestAuditLogRequiresActionAndResult(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "org.provision"}))
	require.Zero(t, countRows(t, db, &models.AuditLog{}))
}

func TestDeleteOlderThanRemovesOnlyStaleRows(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: "user.create", Result: "success", CreatedAt: time.Now().Add(-72 * time.Hour)}
	recent := models.AuditLog{Action: "user.create", Result: "success", CreatedAt: time.Now()}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	deleted, err := svc.DeleteOlderThan(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, recent.ID, remaining[0].ID)
}
