package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// GetJob retrieves a job by its ID
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT job_id, reference, area, client, status, owner_id, created_at, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// UpdateJobStatus sets the job's lifecycle status
func (s *Storage) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = NOW()
		WHERE job_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, status, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)
	return nil
}

// GetOwner resolves the operator who owns the job
func (s *Storage) GetOwner(ctx context.Context, jobID string) (*domain.Operator, error) {
	query := `
		SELECT o.operator_id, o.name, o.email
		FROM jobs j
		JOIN operators o ON o.operator_id = j.owner_id
		WHERE j.job_id = $1
	`

	var owner domain.Operator
	if err := s.db.GetContext(ctx, &owner, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to get job owner: %w", err)
	}

	return &owner, nil
}

// ExpiryMinutes returns the response window configured for an area, or the
// default when the area has no policy.
func (s *Storage) ExpiryMinutes(ctx context.Context, area string) (int, error) {
	var minutes int
	err := s.db.GetContext(ctx, &minutes, `SELECT expiry_minutes FROM expiry_policies WHERE area = $1`, area)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaultExpiryMinutes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get expiry policy: %w", err)
	}
	return minutes, nil
}

// ExpiryWindow is ExpiryMinutes as a duration
func (s *Storage) ExpiryWindow(ctx context.Context, area string) (time.Duration, error) {
	minutes, err := s.ExpiryMinutes(ctx, area)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}
