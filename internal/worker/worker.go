// Package worker consumes run-control and response messages from RabbitMQ
// and drives automation runs on a bounded pool of goroutines.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/monitor"
	"github.com/cuongbtq/assignment-orchestrator/internal/orchestrator"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer opens the delivery stream and reports when its channel drops
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
}

// Runner executes one automation run
type Runner interface {
	Run(ctx context.Context, jobID string) (*orchestrator.Result, error)
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Consumer    Consumer
	Runner      Runner
	Runs        *orchestrator.Runs
	Hub         *monitor.Hub
	Concurrency int
	QueueSize   int
	RunTimeout  time.Duration
	ConsumerTag string
}

// Worker represents the orchestration worker
type Worker struct {
	logger      *slog.Logger
	consumer    Consumer
	runner      Runner
	runs        *orchestrator.Runs
	hub         *monitor.Hub
	concurrency int
	runTimeout  time.Duration
	workerID    string

	jobsChan chan string
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// queued holds jobs waiting in jobsChan; true marks a job stopped
	// before the pool picked it up.
	mu     sync.Mutex
	queued map[string]bool
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := max(cfg.Concurrency, 1)
	queueSize := max(cfg.QueueSize, concurrency)

	workerID := cfg.ConsumerTag
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}

	return &Worker{
		logger:      cfg.Logger,
		consumer:    cfg.Consumer,
		runner:      cfg.Runner,
		runs:        cfg.Runs,
		hub:         cfg.Hub,
		concurrency: concurrency,
		runTimeout:  cfg.RunTimeout,
		workerID:    workerID,
		jobsChan:    make(chan string, queueSize),
		stopChan:    make(chan struct{}),
		queued:      make(map[string]bool),
	}
}

// Start consumes messages until ctx is cancelled or the broker channel
// drops. Runs in flight observe ctx and end as interrupted.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("queue_size", cap(w.jobsChan)),
		slog.Duration("run_timeout", w.runTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	return w.startMessageDispatcher(ctx, deliveries, w.consumer.NotifyClose())
}

// Stop signals the pool to exit and waits for in-flight runs to return.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// WorkerID identifies this worker as a RabbitMQ consumer
func (w *Worker) WorkerID() string {
	return w.workerID
}

func (w *Worker) markQueued(jobID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.queued[jobID]; ok {
		// a start after a stop revives the entry already in the channel
		w.queued[jobID] = false
		return false
	}
	w.queued[jobID] = false
	return true
}

func (w *Worker) unmarkQueued(jobID string) {
	w.mu.Lock()
	delete(w.queued, jobID)
	w.mu.Unlock()
}

// takeQueued removes jobID from the queued set and reports whether it was
// stopped while waiting.
func (w *Worker) takeQueued(jobID string) (stopped bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	stopped = w.queued[jobID]
	delete(w.queued, jobID)
	return stopped
}

// cancelQueued marks a waiting job as stopped. It reports false when the job
// is not in the queue.
func (w *Worker) cancelQueued(jobID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.queued[jobID]; !ok {
		return false
	}
	w.queued[jobID] = true
	return true
}
