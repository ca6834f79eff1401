// Package orchestrator drives a job through sequential offers until a
// candidate accepts, the ranked list runs out or an operator stops it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/internal/invitation"
	"github.com/cuongbtq/assignment-orchestrator/internal/monitor"
)

// JobStore reads and updates jobs
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateJobStatus(ctx context.Context, jobID, status string) error
}

// CandidateRanker orders the eligible candidates for a job
type CandidateRanker interface {
	Rank(ctx context.Context, area, client string) ([]domain.RankedCandidate, error)
}

// Ledger is the attempt history of a job
type Ledger interface {
	NextAttemptNumber(ctx context.Context, jobID string) (int, error)
	Record(ctx context.Context, attempt *domain.Attempt) error
	Transition(ctx context.Context, jobID, candidateID string, status domain.AttemptStatus, remark string) (bool, error)
	ListForJob(ctx context.Context, jobID string) ([]domain.Attempt, error)
}

// ExpiryPolicy gives the response window for an area
type ExpiryPolicy interface {
	ExpiryWindow(ctx context.Context, area string) (time.Duration, error)
}

// Offerer delivers an invitation to a candidate. The returned string is the
// delivery status recorded as the attempt remark on failure.
type Offerer interface {
	SendOffer(ctx context.Context, job *domain.Job, candidate *domain.Candidate, attemptNumber int, link string, window time.Duration) (string, error)
}

// Escalator tells the job owner that nobody accepted
type Escalator interface {
	Escalate(ctx context.Context, job *domain.Job, attempts []domain.Attempt) error
}

// Waiter blocks until an attempt is resolved
type Waiter interface {
	Wait(ctx context.Context, target monitor.Target) (domain.AttemptStatus, error)
}

// Outcome is how a run ended
type Outcome string

// Run outcomes
const (
	OutcomeAccepted        Outcome = "ACCEPTED"
	OutcomeExhausted       Outcome = "EXHAUSTED"
	OutcomeStopped         Outcome = "STOPPED"
	OutcomeInterrupted     Outcome = "INTERRUPTED"
	OutcomeAlreadyAccepted Outcome = "ALREADY_ACCEPTED"
)

// Result summarises a finished run
type Result struct {
	JobID     string
	Outcome   Outcome
	Offers    int
	Candidate string
}

// Config bundles the orchestrator collaborators
type Config struct {
	Jobs        JobStore
	Ranker      CandidateRanker
	Ledger      Ledger
	Expiry      ExpiryPolicy
	Issuer      *invitation.Issuer
	Offers      Offerer
	Escalator   Escalator
	Monitor     Waiter
	Metrics     *Metrics
	MaxAttempts int
	Logger      *slog.Logger
}

// Orchestrator runs the offer loop for one job at a time per call
type Orchestrator struct {
	jobs        JobStore
	ranker      CandidateRanker
	ledger      Ledger
	expiry      ExpiryPolicy
	issuer      *invitation.Issuer
	offers      Offerer
	escalator   Escalator
	monitor     Waiter
	metrics     *Metrics
	maxAttempts int
	logger      *slog.Logger
}

// New creates an Orchestrator
func New(cfg *Config) *Orchestrator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	m := cfg.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Orchestrator{
		jobs:        cfg.Jobs,
		ranker:      cfg.Ranker,
		ledger:      cfg.Ledger,
		expiry:      cfg.Expiry,
		issuer:      cfg.Issuer,
		offers:      cfg.Offers,
		escalator:   cfg.Escalator,
		monitor:     cfg.Monitor,
		metrics:     m,
		maxAttempts: maxAttempts,
		logger:      cfg.Logger,
	}
}

// Run offers the job to ranked candidates one at a time. It returns when a
// candidate accepts, every eligible candidate has declined, timed out or
// failed delivery (the owner is then escalated to), or ctx is cancelled.
// Cancellation with domain.ErrRunStopped marks the in-flight attempt
// STOPPED and a run deadline marks it EXPIRED. Any other cancellation
// leaves it PENDING.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (*Result, error) {
	start := time.Now()
	defer o.metrics.RunDuration.UpdateSince(start)
	o.metrics.RunsStarted.Inc(1)

	logger := o.logger.With(slog.String("job_id", jobID))
	result := &Result{JobID: jobID}

	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job.IsAccepted() {
		logger.Info("Job already accepted, nothing to do")
		result.Outcome = OutcomeAlreadyAccepted
		return result, nil
	}

	ranked, err := o.ranker.Rank(ctx, job.Area, job.Client)
	if err != nil {
		return nil, fmt.Errorf("failed to rank candidates: %w", err)
	}
	if len(ranked) == 0 {
		logger.Warn("No eligible candidates", slog.String("area", job.Area))
		o.escalate(ctx, job, nil)
		o.metrics.RunsExhausted.Inc(1)
		result.Outcome = OutcomeExhausted
		return result, nil
	}

	window, err := o.expiry.ExpiryWindow(ctx, job.Area)
	if err != nil {
		return nil, fmt.Errorf("failed to get expiry window: %w", err)
	}

	next, err := o.ledger.NextAttemptNumber(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get next attempt number: %w", err)
	}
	first := next

	logger.Info("Automation run started",
		slog.Int("candidates", len(ranked)),
		slog.Int("first_attempt", first),
		slog.Duration("window", window),
	)

	for _, candidate := range ranked[:min(len(ranked), o.maxAttempts)] {
		if ctx.Err() != nil {
			return o.cancelled(ctx, result, logger)
		}

		attempt := &domain.Attempt{
			JobID:         jobID,
			CandidateID:   candidate.CandidateID,
			CandidateName: candidate.DisplayName,
			AttemptNumber: next,
		}
		if err := o.ledger.Record(ctx, attempt); err != nil {
			logger.Warn("Skipping candidate, attempt not recorded",
				slog.String("candidate_id", candidate.CandidateID),
				slog.Any("error", err),
			)
			o.metrics.AttemptsSkipped.Inc(1)
			continue
		}
		next++
		result.Offers++

		alogger := logger.With(
			slog.String("candidate_id", candidate.CandidateID),
			slog.Int("attempt", attempt.AttemptNumber),
		)

		ref := o.issuer.Issue(job, &candidate.Candidate, attempt.AttemptNumber)
		delivery, err := o.offers.SendOffer(ctx, job, &candidate.Candidate, attempt.AttemptNumber, o.issuer.URL(ref), window)
		if err != nil {
			alogger.Warn("Offer delivery failed", slog.String("delivery", delivery), slog.Any("error", err))
			o.metrics.OffersFailed.Inc(1)
			o.transition(ctx, attempt, domain.AttemptStatusEmailFailed, delivery, alogger)
			continue
		}
		o.metrics.OffersSent.Inc(1)

		status, err := o.monitor.Wait(ctx, monitor.Target{
			JobID:         jobID,
			CandidateID:   candidate.CandidateID,
			AttemptNumber: attempt.AttemptNumber,
			Window:        window,
		})

		switch status {
		case domain.AttemptStatusAccepted:
			o.transition(ctx, attempt, domain.AttemptStatusAccepted, "", alogger)
			if err := o.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusAccepted); err != nil {
				return nil, fmt.Errorf("failed to mark job accepted: %w", err)
			}
			alogger.Info("Candidate accepted")
			o.metrics.RunsAccepted.Inc(1)
			result.Outcome = OutcomeAccepted
			result.Candidate = candidate.CandidateID
			return result, nil

		case domain.AttemptStatusRejected:
			o.transition(ctx, attempt, domain.AttemptStatusRejected, "", alogger)

		case domain.AttemptStatusExpired:
			o.transition(ctx, attempt, domain.AttemptStatusExpired, domain.RemarkNoResponse, alogger)

		case domain.AttemptStatusStopped:
			if err == nil {
				// stopped in the ledger by another process
				alogger.Info("Attempt stopped")
				o.metrics.RunsStopped.Inc(1)
				result.Outcome = OutcomeStopped
				return result, nil
			}
			switch {
			case errors.Is(err, domain.ErrRunStopped):
				o.transition(context.WithoutCancel(ctx), attempt, domain.AttemptStatusStopped, domain.RemarkOperatorStop, alogger)
			case errors.Is(err, context.DeadlineExceeded):
				// a timed out run will not come back for this attempt
				o.transition(context.WithoutCancel(ctx), attempt, domain.AttemptStatusExpired, domain.RemarkRunInterrupted, alogger)
			}
			return o.cancelled(ctx, result, logger)

		default:
			return nil, fmt.Errorf("unexpected monitor status %q: %w", status, err)
		}
	}

	if ctx.Err() != nil {
		return o.cancelled(ctx, result, logger)
	}

	attempts, err := o.ledger.ListForJob(ctx, jobID)
	if err != nil {
		logger.Error("Failed to load attempts for escalation", slog.Any("error", err))
	}
	o.escalate(ctx, job, fromAttempt(attempts, first))

	logger.Info("Candidates exhausted", slog.Int("offers", result.Offers))
	o.metrics.RunsExhausted.Inc(1)
	result.Outcome = OutcomeExhausted
	return result, nil
}

func (o *Orchestrator) cancelled(ctx context.Context, result *Result, logger *slog.Logger) (*Result, error) {
	cause := context.Cause(ctx)
	if errors.Is(cause, domain.ErrRunStopped) {
		logger.Info("Automation stopped by operator")
		o.metrics.RunsStopped.Inc(1)
		result.Outcome = OutcomeStopped
		return result, nil
	}

	logger.Warn("Automation run interrupted", slog.Any("cause", cause))
	result.Outcome = OutcomeInterrupted
	return result, cause
}

// transition applies a monitor outcome. A false return from the ledger means
// the responder got there first, which is expected.
func (o *Orchestrator) transition(ctx context.Context, attempt *domain.Attempt, status domain.AttemptStatus, remark string, logger *slog.Logger) {
	changed, err := o.ledger.Transition(ctx, attempt.JobID, attempt.CandidateID, status, remark)
	if err != nil {
		logger.Error("Failed to transition attempt",
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
		return
	}
	if !changed {
		logger.Debug("Attempt already resolved", slog.String("status", string(status)))
	}
}

func (o *Orchestrator) escalate(ctx context.Context, job *domain.Job, attempts []domain.Attempt) {
	o.metrics.Escalations.Inc(1)
	if err := o.escalator.Escalate(ctx, job, attempts); err != nil {
		o.logger.Error("Escalation failed",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
	}
}

func fromAttempt(attempts []domain.Attempt, first int) []domain.Attempt {
	out := make([]domain.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.AttemptNumber >= first {
			out = append(out, a)
		}
	}
	return out
}
