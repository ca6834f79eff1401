// Package monitor waits for the outcome of a single offer.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// DefaultPollInterval is how often the ledger is re-read when no event arrives
const DefaultPollInterval = 30 * time.Second

// StatusSource reads the current status of an attempt
type StatusSource interface {
	AttemptStatus(ctx context.Context, jobID string, attemptNumber int) (domain.AttemptStatus, error)
}

// Target is the attempt being waited on
type Target struct {
	JobID         string
	CandidateID   string
	AttemptNumber int
	Window        time.Duration
}

// Monitor resolves an in-flight attempt to ACCEPTED, REJECTED, EXPIRED or
// STOPPED.
type Monitor struct {
	hub          *Hub
	source       StatusSource
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Monitor
type Option func(*Monitor)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// New creates a Monitor
func New(hub *Hub, source StatusSource, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		hub:          hub,
		source:       source,
		pollInterval: DefaultPollInterval,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait blocks until the attempt is resolved, its window elapses or ctx is
// done. A cancelled ctx yields STOPPED together with the context's cause.
func (m *Monitor) Wait(ctx context.Context, target Target) (domain.AttemptStatus, error) {
	logger := m.logger.With(
		slog.String("job_id", target.JobID),
		slog.String("candidate_id", target.CandidateID),
		slog.Int("attempt", target.AttemptNumber),
	)

	events, unsubscribe := m.hub.Subscribe(Key{JobID: target.JobID, AttemptNumber: target.AttemptNumber})
	defer unsubscribe()

	expiry := time.NewTimer(target.Window)
	defer expiry.Stop()

	poll := time.NewTicker(m.pollInterval)
	defer poll.Stop()

	logger.Debug("Waiting for response", slog.Duration("window", target.Window))

	for {
		select {
		case <-ctx.Done():
			return domain.AttemptStatusStopped, context.Cause(ctx)

		case status := <-events:
			if resolved(status) {
				logger.Info("Response event received", slog.String("status", string(status)))
				return status, nil
			}

		case <-poll.C:
			status, err := m.source.AttemptStatus(ctx, target.JobID, target.AttemptNumber)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Warn("Failed to poll attempt status", slog.Any("error", err))
				continue
			}
			if resolved(status) {
				logger.Info("Response observed by poll", slog.String("status", string(status)))
				return status, nil
			}

		case <-expiry.C:
			logger.Info("Response window elapsed")
			return domain.AttemptStatusExpired, nil
		}
	}
}

func resolved(status domain.AttemptStatus) bool {
	switch status {
	case domain.AttemptStatusAccepted, domain.AttemptStatusRejected,
		domain.AttemptStatusExpired, domain.AttemptStatusStopped:
		return true
	default:
		return false
	}
}
