// Package audit records who changed what in the library: loans, copies,
// catalog entries, users, notifier scans and maintenance jobs.
package audit

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event %s: %v", event.Action, err)
		}
	}()
}

// Wait blocks until all background writes have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogChange records a successful mutation of a single entity.
func (s *Service) LogChange(userID uint, eventType entities.AuditEventType, action, entityType string, entityID uint, description string, metadata map[string]any) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   eventType,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  entityType,
		Status:      entities.AuditStatusSuccess,
	}
	if entityID != 0 {
		event.EntityID = &entityID
	}
	event.Metadata = encodeMetadata(metadata)

	s.LogAsync(event)
}

// LogNotifierScan records the outcome of one due-soon scan.
func (s *Service) LogNotifierScan(scanID, trigger string, candidates, created, skipped int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventNotifier,
		Action:      "due_soon_scan",
		Description: "Due-soon scan (" + trigger + ")",
		Status:      entities.AuditStatusSuccess,
		Metadata: encodeMetadata(map[string]any{
			"scan_id":    scanID,
			"candidates": candidates,
			"created":    created,
			"skipped":    skipped,
		}),
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogMaintenance records a background maintenance job such as availability
// reconciliation or audit cleanup.
func (s *Service) LogMaintenance(action, description string, affected int64, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMaintenance,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
		Metadata:    encodeMetadata(map[string]any{"affected": affected}),
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// List retrieves a page of audit events.
func (s *Service) List(f audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.List(f)
}

// GetEvent retrieves a single audit event.
func (s *Service) GetEvent(id uint) (*entities.AuditEvent, error) {
	return s.repo.GetEventByID(id)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func encodeMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
