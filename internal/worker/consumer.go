package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/internal/monitor"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.consumer.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started", slog.String("consumer_tag", w.workerID))
	return deliveries, nil
}

// startMessageDispatcher routes deliveries until ctx is done. A dropped
// channel is returned as an error so the service exits and restarts.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery, closed <-chan *amqp.Error) error {
	w.logger.Info("Message dispatcher started", slog.String("worker_id", w.workerID))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				w.logger.Warn("RabbitMQ channel closed")
				return errors.New("rabbitmq channel closed")
			}
			w.logger.Error("RabbitMQ channel closed by broker",
				slog.Int("code", amqpErr.Code),
				slog.String("reason", amqpErr.Reason),
			)
			return fmt.Errorf("rabbitmq channel closed: %s", amqpErr.Reason)

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return errors.New("rabbitmq delivery channel closed")
			}
			w.handleDelivery(delivery)
		}
	}
}

// handleDelivery acks or nacks every delivery before returning. Stop and
// resolution messages never wait behind queued runs.
func (w *Worker) handleDelivery(delivery amqp.Delivery) {
	msg, err := decodeMessage(delivery.Body)
	if err != nil {
		w.logger.Error("Dropping invalid message",
			slog.Any("error", err),
			slog.String("body", string(delivery.Body)),
		)
		w.nack(delivery, err)
		return
	}

	logger := w.logger.With(
		slog.String("message_id", msg.MessageID),
		slog.String("type", string(msg.Type)),
		slog.String("job_id", msg.JobID),
	)

	switch msg.Type {
	case domain.MessageStartRun:
		if err := w.enqueue(msg.JobID); err != nil {
			logger.Warn("Run not enqueued", slog.Any("error", err))
			w.nack(delivery, err)
			return
		}
		logger.Debug("Run dispatched to worker pool")

	case domain.MessageStopRun:
		stopped := w.runs.Stop(msg.JobID)
		dequeued := w.cancelQueued(msg.JobID)
		logger.Info("Stop requested", slog.Bool("local_run", stopped), slog.Bool("queued_run", dequeued))

	case domain.MessageAttemptResolved:
		delivered := w.hub.Publish(monitor.Key{JobID: msg.JobID, AttemptNumber: msg.AttemptNumber}, msg.Status)
		logger.Info("Attempt resolution received",
			slog.Int("attempt", msg.AttemptNumber),
			slog.String("status", string(msg.Status)),
			slog.Int("waiters", delivered),
		)
	}

	if err := delivery.Ack(false); err != nil {
		logger.Error("Failed to ACK message", slog.Any("error", err))
	}
}

// enqueue hands a job to the pool without blocking the dispatcher. A job
// already queued or running here is acknowledged as a duplicate.
func (w *Worker) enqueue(jobID string) error {
	if w.runs.Active(jobID) || !w.markQueued(jobID) {
		w.logger.Info("Run already in progress, ignoring start", slog.String("job_id", jobID))
		return nil
	}

	select {
	case w.jobsChan <- jobID:
		return nil
	default:
		w.unmarkQueued(jobID)
		return domain.NewRetryableError(fmt.Errorf("run queue full (%d)", cap(w.jobsChan)))
	}
}

func (w *Worker) nack(delivery amqp.Delivery, cause error) {
	requeue := shouldRequeue(cause)
	if err := delivery.Nack(false, requeue); err != nil {
		w.logger.Error("Failed to NACK message", slog.Any("error", err))
		return
	}
	w.logger.Info("Message NACKed", slog.Bool("requeue", requeue))
}

// shouldRequeue reports whether a failed delivery is worth redelivering
func shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrInvalidMessage) {
		return false
	}
	var retryable *domain.RetryableError
	return errors.As(err, &retryable)
}

func decodeMessage(body []byte) (*domain.Message, error) {
	var msg domain.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		return nil, fmt.Errorf("%w: job_id %q is not a UUID", domain.ErrInvalidMessage, msg.JobID)
	}

	switch msg.Type {
	case domain.MessageStartRun, domain.MessageStopRun:
	case domain.MessageAttemptResolved:
		if msg.AttemptNumber < 1 {
			return nil, fmt.Errorf("%w: attempt_number must be positive", domain.ErrInvalidMessage)
		}
		if !msg.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: status %q is not terminal", domain.ErrInvalidMessage, msg.Status)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidMessage, msg.Type)
	}

	return &msg, nil
}
