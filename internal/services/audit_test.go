package services

import (
	"context"
	"testing"
	"time"

	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogAsyncAndList(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "alice", false)
	svc := NewAuditService(db, storage.NewMemoryStore())

	svc.LogAsync(AuditEntry{UserID: &user.ID, Action: AuditStorePurchase, ResourceType: "store_item", ResourceID: "halo"})
	svc.LogAsync(AuditEntry{UserID: &user.ID, Action: AuditTemplateCreate, ResourceType: "template"})
	svc.LogAsync(AuditEntry{Action: AuditUserLogin, ResourceType: "user"})
	svc.Close()

	logs, total, err := svc.List(context.Background(), user.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)
	for _, row := range logs {
		assert.Equal(t, user.ID, *row.UserID)
	}
}

func TestAuditLogAfterCloseIsDropped(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "alice", false)
	svc := NewAuditService(db, storage.NewMemoryStore())

	svc.LogAsync(AuditEntry{UserID: &user.ID, Action: AuditProfileSave, ResourceType: "profile"})
	svc.Close()

	assert.NotPanics(t, func() {
		svc.LogAsync(AuditEntry{UserID: &user.ID, Action: AuditStorePurchase, ResourceType: "store_item"})
	})
	assert.NotPanics(t, svc.Close)

	_, total, err := svc.List(context.Background(), user.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAuditExportMovesCursor(t *testing.T) {
	db := openTestDB(t)
	store := storage.NewMemoryStore()
	svc := NewAuditService(db, store)
	defer svc.Close()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, action := range []string{AuditProfileSave, AuditUploadCreate} {
		row := models.AuditLog{Action: action, ResourceType: "profile", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, db.Create(&row).Error)
	}

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, exported)
	assert.Equal(t, 1, store.Len())

	exported, err = svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, exported)
	assert.Equal(t, 1, store.Len())

	var cursor models.AuditExportCursor
	require.NoError(t, db.First(&cursor).Error)
	assert.Equal(t, int64(2), cursor.ExportedCount)
}
