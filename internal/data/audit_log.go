package data

import (
	"context"
	"encoding/json"
	"sync"

	"RouteSim/internal/biz"
	"RouteSim/pkg/errors"
	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const auditBufferSize = 1000

// AuditLoggerImpl implements biz.AuditLogger interface.
// Events are written asynchronously; a nil db keeps them in the log only.
type AuditLoggerImpl struct {
	db      *gorm.DB
	logChan chan *SimulationRunEvent
	logger  *plog.LogHelper

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAuditLogger creates a new audit logger with async channel
func NewAuditLogger(db *gorm.DB, logger log.Logger) (*AuditLoggerImpl, func()) {
	al := &AuditLoggerImpl{
		db:      db,
		logChan: make(chan *SimulationRunEvent, auditBufferSize),
		logger:  plog.NewLogHelper(logger),
		done:    make(chan struct{}),
	}

	go al.start()

	return al, al.close
}

// start processes audit events from channel
func (a *AuditLoggerImpl) start() {
	defer close(a.done)

	for event := range a.logChan {
		if a.db == nil {
			continue
		}
		if err := a.db.WithContext(context.Background()).Create(event).Error; err != nil {
			dbErr := errors.ClassifyDBError(err)
			a.logger.Errorw("msg", "failed to write audit event",
				"type", "audit",
				"run_id", event.RunID,
				"event_type", event.EventType,
				"error_type", dbErr.Type.String(),
				"error", err)
		} else {
			a.logger.Database("audit event written",
				"run_id", event.RunID,
				"event_type", event.EventType)
		}
	}
}

// close drains pending events and stops the writer.
func (a *AuditLoggerImpl) close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.logChan)
	a.mu.Unlock()

	<-a.done
}

// LogRunEvent implements biz.AuditLogger.
func (a *AuditLoggerImpl) LogRunEvent(ctx context.Context, runID string, event biz.AuditEventType, details map[string]interface{}) {
	a.logger.Audit("simulation "+string(event), append([]interface{}{"run_id", runID}, flatten(details)...)...)

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit event details", "type", "audit", "error", err)
		return
	}

	record := &SimulationRunEvent{
		RunID:     runID,
		EventType: string(event),
		Details:   string(detailsJSON),
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	// Send to channel (non-blocking)
	select {
	case a.logChan <- record:
	default:
		a.logger.Warnw("msg", "audit channel full, dropping event",
			"type", "audit",
			"run_id", runID,
			"event_type", record.EventType)
	}
}

func flatten(details map[string]interface{}) []interface{} {
	kvs := make([]interface{}, 0, len(details)*2)
	for k, v := range details {
		kvs = append(kvs, k, v)
	}
	return kvs
}
