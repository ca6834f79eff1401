package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/internal/invitation"
	"github.com/google/uuid"
)

// Store is the persistence the handlers need
type Store interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListForJob(ctx context.Context, jobID string) ([]domain.Attempt, error)
	StopAllPending(ctx context.Context, jobID string) (bool, error)
	TransitionAttempt(ctx context.Context, jobID string, attemptNumber int, status domain.AttemptStatus, remark string) (bool, error)
	RecordResponse(ctx context.Context, entry *domain.ResponseLogEntry, status domain.AttemptStatus) error
	ExpiryMinutes(ctx context.Context, area string) (int, error)
}

// Publisher sends messages to the worker service
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// ResponseNotifier tells the job owner about a decision
type ResponseNotifier interface {
	NotifyResponse(ctx context.Context, job *domain.Job, response *domain.ResponseLogEntry) error
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Store       Store
	Publisher   Publisher
	Issuer      *invitation.Issuer
	Notifier    ResponseNotifier
	Database    HealthChecker
	ServiceName string
}

// Handler serves the attempt history, automation control and respond
// endpoints.
type Handler struct {
	logger    *slog.Logger
	store     Store
	publisher Publisher
	issuer    *invitation.Issuer
	notifier  ResponseNotifier
	database  HealthChecker
	service   string
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		logger:    deps.Logger,
		store:     deps.Store,
		publisher: deps.Publisher,
		issuer:    deps.Issuer,
		notifier:  deps.Notifier,
		database:  deps.Database,
		service:   deps.ServiceName,
	}
}

func (h *Handler) publish(ctx context.Context, msg domain.Message) error {
	msg.MessageID = uuid.NewString()
	msg.SentAt = time.Now().UTC()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := h.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return err
	}

	h.logger.Info("Message published",
		slog.String("message_id", msg.MessageID),
		slog.String("type", string(msg.Type)),
		slog.String("job_id", msg.JobID),
	)
	return nil
}

func validJobID(jobID string) bool {
	_, err := uuid.Parse(jobID)
	return err == nil
}
