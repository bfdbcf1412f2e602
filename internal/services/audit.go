package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/storage"
	"github.com/persona/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	AuditProfileSave     = "profile.save"
	AuditProfileDetails  = "profile.details"
	AuditUploadCreate    = "upload.create"
	AuditUploadDelete    = "upload.delete"
	AuditStorePurchase   = "store.purchase"
	AuditPresenceLink    = "presence.link"
	AuditPresenceUnlink  = "presence.unlink"
	AuditTemplateCreate  = "template.create"
	AuditPlatformLink    = "platform.link"
	AuditPlatformUnlink  = "platform.unlink"
	AuditUserRegister    = "user.register"
	AuditUserLogin       = "user.login"
	AuditUserUpdate      = "user.update"
	auditQueueSize       = 1000
	auditExportBatchSize = 10000
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// AuditService writes audit rows from a buffered queue so request handlers
// never wait on the insert. Entries are dropped with a warning when the
// queue is full.
type AuditService struct {
	DB      *gorm.DB
	Storage storage.ObjectStore

	queue  chan models.AuditLog
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewAuditService(db *gorm.DB, store storage.ObjectStore) *AuditService {
	s := &AuditService{
		DB:      db,
		Storage: store,
		queue:   make(chan models.AuditLog, auditQueueSize),
		done:    make(chan struct{}),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		logger.Warn("audit_entry_after_close", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
		return
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

// Close stops accepting entries and waits until queued rows are written.
// Entries logged afterwards are dropped.
func (s *AuditService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *AuditService) processQueue() {
	defer close(s.done)
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}

func (s *AuditService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.AuditLog, int64, error) {
	baseQuery := s.DB.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID)

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AuditLog
	if err := baseQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// StartExporter ships new audit rows to object storage as NDJSON every
// interval until ctx is done.
func (s *AuditService) StartExporter(ctx context.Context, interval time.Duration) {
	if s.Storage == nil || interval <= 0 {
		logger.Info("audit_exporter_disabled", map[string]interface{}{"interval": interval.String()})
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Export(ctx); err != nil {
					logger.Error("audit_export_failed", err, nil)
				}
			}
		}
	}()

	logger.Info("audit_exporter_started", map[string]interface{}{"interval": interval.String()})
}

func (s *AuditService) loadCursor(ctx context.Context) (models.AuditExportCursor, error) {
	var cursor models.AuditExportCursor
	err := s.DB.WithContext(ctx).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cursor = models.AuditExportCursor{LastExportAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
		err = s.DB.WithContext(ctx).Create(&cursor).Error
	}
	return cursor, err
}

// Export writes rows newer than the export cursor to one object and moves
// the cursor. It returns how many rows it exported.
func (s *AuditService) Export(ctx context.Context) (int, error) {
	cursor, err := s.loadCursor(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading export cursor: %w", err)
	}

	var logs []models.AuditLog
	if err := s.DB.WithContext(ctx).Where("created_at > ?", cursor.LastExportAt).
		Order("created_at ASC").
		Limit(auditExportBatchSize).
		Find(&logs).Error; err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range logs {
		if err := enc.Encode(row); err != nil {
			return 0, err
		}
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("audit/%s/%s-%s.ndjson", now.Format("2006/01/02"), now.Format("150405"), uuid.NewString()[:8])
	if err := s.Storage.Upload(ctx, objectName, &buf, int64(buf.Len()), "application/x-ndjson"); err != nil {
		return 0, err
	}

	if err := s.DB.WithContext(ctx).Model(&cursor).Updates(map[string]interface{}{
		"last_export_at": logs[len(logs)-1].CreatedAt,
		"exported_count": gorm.Expr("exported_count + ?", len(logs)),
	}).Error; err != nil {
		return 0, err
	}

	logger.Info("audit_export_success", map[string]interface{}{
		"object_name": objectName,
		"count":       len(logs),
	})
	return len(logs), nil
}
