package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/jmoiron/sqlx"
)

const attemptColumns = `id, job_id, candidate_id, candidate_name, attempt_number, status, remark, created_at, updated_at`

// NextAttemptNumber returns one past the highest attempt number for the job
func (s *Storage) NextAttemptNumber(ctx context.Context, jobID string) (int, error) {
	var next int
	query := `SELECT COALESCE(MAX(attempt_number), 0) + 1 FROM assignment_attempts WHERE job_id = $1`
	if err := s.db.GetContext(ctx, &next, query, jobID); err != nil {
		return 0, fmt.Errorf("failed to get next attempt number: %w", err)
	}
	return next, nil
}

// Record inserts a PENDING attempt and fills in its generated fields.
// Returns domain.ErrDuplicateAttempt when the job already has a PENDING
// attempt for the candidate or the attempt number is taken.
func (s *Storage) Record(ctx context.Context, attempt *domain.Attempt) error {
	query := `
		INSERT INTO assignment_attempts (job_id, candidate_id, candidate_name, attempt_number, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, query,
			attempt.JobID,
			attempt.CandidateID,
			attempt.CandidateName,
			attempt.AttemptNumber,
			domain.AttemptStatusPending,
		).Scan(&attempt.ID, &attempt.CreatedAt, &attempt.UpdatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAttempt
		}
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	attempt.Status = domain.AttemptStatusPending
	s.logger.Info("Attempt recorded",
		slog.String("job_id", attempt.JobID),
		slog.String("candidate_id", attempt.CandidateID),
		slog.Int("attempt", attempt.AttemptNumber),
	)
	return nil
}

// Transition moves the PENDING attempt for (job, candidate) to a terminal
// status. Returns false without error when no PENDING attempt exists.
func (s *Storage) Transition(ctx context.Context, jobID, candidateID string, status domain.AttemptStatus, remark string) (bool, error) {
	query := `
		UPDATE assignment_attempts
		SET status = $1, remark = $2, updated_at = NOW()
		WHERE job_id = $3 AND candidate_id = $4 AND status = $5
	`
	return s.transition(ctx, status, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, query, status, nullable(remark), jobID, candidateID, domain.AttemptStatusPending)
	})
}

// TransitionAttempt is Transition addressed by attempt number
func (s *Storage) TransitionAttempt(ctx context.Context, jobID string, attemptNumber int, status domain.AttemptStatus, remark string) (bool, error) {
	query := `
		UPDATE assignment_attempts
		SET status = $1, remark = $2, updated_at = NOW()
		WHERE job_id = $3 AND attempt_number = $4 AND status = $5
	`
	return s.transition(ctx, status, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, query, status, nullable(remark), jobID, attemptNumber, domain.AttemptStatusPending)
	})
}

func (s *Storage) transition(ctx context.Context, status domain.AttemptStatus, exec func(*sqlx.Tx) (sql.Result, error)) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("invalid target status %q", status)
	}

	var changed bool
	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := exec(tx)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		changed = rows > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to transition attempt: %w", err)
	}
	return changed, nil
}

// RecordResponse applies a candidate's decision in one transaction: the
// attempt leaves PENDING, the job takes the decision's status and the
// response is appended to the job's response log. Returns
// domain.ErrAlreadyResolved when the attempt was no longer PENDING.
func (s *Storage) RecordResponse(ctx context.Context, entry *domain.ResponseLogEntry, status domain.AttemptStatus) error {
	if status != domain.AttemptStatusAccepted && status != domain.AttemptStatusRejected {
		return fmt.Errorf("invalid response status %q", status)
	}
	if entry.Action != string(status) {
		return fmt.Errorf("response action %q does not match status %q", entry.Action, status)
	}

	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE assignment_attempts
			SET status = $1, remark = $2, updated_at = NOW()
			WHERE job_id = $3 AND attempt_number = $4 AND candidate_id = $5 AND status = $6
		`, status, nullable(entry.Remark), entry.JobID, entry.AttemptNumber, entry.CandidateID, domain.AttemptStatusPending)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrAlreadyResolved
		}

		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = $1, updated_at = NOW() WHERE job_id = $2`, string(status), entry.JobID); err != nil {
			return err
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO job_responses (job_id, candidate_id, candidate_name, attempt_number, action, remark)
			VALUES (:job_id, :candidate_id, :candidate_name, :attempt_number, :action, :remark)
		`, entry)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyResolved) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to record response: %w", err)
	}

	s.logger.Info("Response recorded",
		slog.String("job_id", entry.JobID),
		slog.String("candidate_id", entry.CandidateID),
		slog.Int("attempt", entry.AttemptNumber),
		slog.String("action", entry.Action),
	)
	return nil
}

// ListForJob returns the job's attempts ordered by attempt number
func (s *Storage) ListForJob(ctx context.Context, jobID string) ([]domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM assignment_attempts WHERE job_id = $1 ORDER BY attempt_number`

	attempts := []domain.Attempt{}
	if err := s.db.SelectContext(ctx, &attempts, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// StopAllPending moves every PENDING attempt of the job to STOPPED and
// reports whether any row changed.
func (s *Storage) StopAllPending(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE assignment_attempts
		SET status = $1, remark = $2, updated_at = NOW()
		WHERE job_id = $3 AND status = $4
	`

	var rows int64
	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, domain.AttemptStatusStopped, domain.RemarkOperatorStop, jobID, domain.AttemptStatusPending)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to stop pending attempts: %w", err)
	}

	s.logger.Info("Pending attempts stopped",
		slog.String("job_id", jobID),
		slog.Int64("stopped", rows),
	)
	return rows > 0, nil
}

// AttemptStatus reads the current status of one attempt
func (s *Storage) AttemptStatus(ctx context.Context, jobID string, attemptNumber int) (domain.AttemptStatus, error) {
	var status domain.AttemptStatus
	query := `SELECT status FROM assignment_attempts WHERE job_id = $1 AND attempt_number = $2`
	if err := s.db.GetContext(ctx, &status, query, jobID, attemptNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrAttemptNotFound
		}
		return "", fmt.Errorf("failed to get attempt status: %w", err)
	}
	return status, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
