// Package notify composes and delivers the emails the orchestrator sends:
// offers to candidates, escalations and response notices to job owners.
// Every delivery attempt is written to the notification log.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// Delivery statuses written to the notification log
const (
	StatusSent         = "SENT"
	statusFailedPrefix = "FAILED: "
)

// Store resolves job owners and records deliveries
type Store interface {
	GetOwner(ctx context.Context, jobID string) (*domain.Operator, error)
	LogNotification(ctx context.Context, entry *domain.NotificationLogEntry) error
}

// Service sends the orchestrator's emails
type Service struct {
	sender Sender
	store  Store
	logger *slog.Logger
}

// NewService creates a Service
func NewService(sender Sender, store Store, logger *slog.Logger) *Service {
	return &Service{sender: sender, store: store, logger: logger}
}

// SendOffer emails the invitation link to a candidate. It returns the
// delivery status string and wraps domain.ErrDeliveryFailed on failure.
func (s *Service) SendOffer(ctx context.Context, job *domain.Job, candidate *domain.Candidate, attemptNumber int, link string, window time.Duration) (string, error) {
	body, err := render(offerTemplate, map[string]any{
		"CandidateName": candidate.DisplayName,
		"Reference":     job.Reference,
		"Area":          job.Area,
		"Link":          link,
		"WindowMinutes": int(window.Minutes()),
		"AttemptNumber": attemptNumber,
	})
	if err != nil {
		return failed(err), fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	status, err := s.deliver(ctx, job.JobID, domain.NotificationOffer, &Message{
		ToName:    candidate.DisplayName,
		ToAddress: candidate.Email,
		Subject:   fmt.Sprintf("New job offer %s", job.Reference),
		HTML:      body,
	})
	if err != nil {
		return status, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return status, nil
}

// Escalate tells the job owner that no candidate accepted, listing the
// attempts of the run. Failures are logged and returned, never retried.
func (s *Service) Escalate(ctx context.Context, job *domain.Job, attempts []domain.Attempt) error {
	owner, err := s.store.GetOwner(ctx, job.JobID)
	if err != nil {
		s.logger.Error("Escalation skipped, owner not resolved",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", domain.ErrEscalationDeliveryFailed, err)
	}

	body, err := render(escalationTemplate, map[string]any{
		"OwnerName": owner.Name,
		"Reference": job.Reference,
		"Area":      job.Area,
		"Client":    job.Client,
		"Attempts":  attempts,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEscalationDeliveryFailed, err)
	}

	_, err = s.deliver(ctx, job.JobID, domain.NotificationEscalation, &Message{
		ToName:    owner.Name,
		ToAddress: owner.Email,
		Subject:   fmt.Sprintf("Job %s needs manual assignment", job.Reference),
		HTML:      body,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEscalationDeliveryFailed, err)
	}

	s.logger.Info("Escalation sent",
		slog.String("job_id", job.JobID),
		slog.Int("attempts", len(attempts)),
	)
	return nil
}

// NotifyResponse informs the job owner of a candidate's decision. Best
// effort: the error is for logging only.
func (s *Service) NotifyResponse(ctx context.Context, job *domain.Job, response *domain.ResponseLogEntry) error {
	owner, err := s.store.GetOwner(ctx, job.JobID)
	if err != nil {
		return fmt.Errorf("failed to resolve owner: %w", err)
	}

	verb := responseVerb(response.Action)
	body, err := render(responseTemplate, map[string]any{
		"OwnerName":     owner.Name,
		"CandidateName": response.CandidateName,
		"Action":        verb,
		"Reference":     job.Reference,
		"AttemptNumber": response.AttemptNumber,
		"Remark":        response.Remark,
	})
	if err != nil {
		return err
	}

	_, err = s.deliver(ctx, job.JobID, domain.NotificationResponseNotice, &Message{
		ToName:    owner.Name,
		ToAddress: owner.Email,
		Subject:   fmt.Sprintf("Job %s %s by %s", job.Reference, verb, response.CandidateName),
		HTML:      body,
	})
	return err
}

func (s *Service) deliver(ctx context.Context, jobID string, kind domain.NotificationKind, msg *Message) (string, error) {
	status := StatusSent
	sendErr := s.sender.Send(ctx, msg)
	if sendErr != nil {
		status = failed(sendErr)
	}

	// logged even when the run is being cancelled
	entry := &domain.NotificationLogEntry{
		JobID:            jobID,
		Kind:             kind,
		RecipientName:    msg.ToName,
		RecipientAddress: msg.ToAddress,
		Status:           status,
	}
	if err := s.store.LogNotification(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("Failed to log notification",
			slog.String("job_id", jobID),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
	}

	if sendErr != nil {
		s.logger.Warn("Delivery failed",
			slog.String("job_id", jobID),
			slog.String("kind", string(kind)),
			slog.String("recipient", msg.ToAddress),
			slog.Any("error", sendErr),
		)
		return status, sendErr
	}
	return status, nil
}

func failed(err error) string {
	return statusFailedPrefix + err.Error()
}

// IsFailure reports whether a delivery status records a failure
func IsFailure(status string) bool {
	return strings.HasPrefix(status, statusFailedPrefix)
}

// responseVerb turns a recorded action into the word used in the owner notice
func responseVerb(action string) string {
	switch domain.AttemptStatus(action) {
	case domain.AttemptStatusAccepted:
		return "accepted"
	case domain.AttemptStatusRejected:
		return "declined"
	default:
		return strings.ToLower(action)
	}
}
