package storage

import (
	"context"
	"fmt"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// LogNotification appends an outbound delivery to the notification log
func (s *Storage) LogNotification(ctx context.Context, entry *domain.NotificationLogEntry) error {
	query := `
		INSERT INTO notification_log (job_id, kind, recipient_name, recipient_address, status)
		VALUES (:job_id, :kind, :recipient_name, :recipient_address, :status)
	`
	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to log notification: %w", err)
	}
	return nil
}

// NotificationsForJob returns the delivery log of a job, oldest first
func (s *Storage) NotificationsForJob(ctx context.Context, jobID string) ([]domain.NotificationLogEntry, error) {
	query := `
		SELECT job_id, kind, recipient_name, recipient_address, status, created_at
		FROM notification_log
		WHERE job_id = $1
		ORDER BY created_at, id
	`

	entries := []domain.NotificationLogEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return entries, nil
}
