// Package storage is the Postgres side of the orchestrator: the attempt
// ledger plus read access to jobs, candidates, rate overrides, expiry
// policies and owners, and the notification and response logs.
package storage

import (
	"errors"
	"log/slog"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation pq.ErrorCode = "23505"

// Storage handles all database operations for both services
type Storage struct {
	pg                   *postgresql.Client
	db                   *sqlx.DB
	logger               *slog.Logger
	defaultExpiryMinutes int
}

// Option configures a Storage
type Option func(*Storage)

// WithDefaultExpiryMinutes sets the window used for areas without a policy row.
func WithDefaultExpiryMinutes(minutes int) Option {
	return func(s *Storage) {
		if minutes > 0 {
			s.defaultExpiryMinutes = minutes
		}
	}
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger, opts ...Option) *Storage {
	s := &Storage{
		pg:                   pg,
		db:                   pg.DB(),
		logger:               logger,
		defaultExpiryMinutes: domain.DefaultExpiryMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
