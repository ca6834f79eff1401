package worker

import (
	"context"
	"log/slog"
	"time"
)

// processJob executes one automation run under the run registry so that a
// stop message can cancel it. The run is registered before it leaves the
// queued set, so a stop always finds it in one of the two.
func (w *Worker) processJob(ctx context.Context, jobID string, logger *slog.Logger) {
	logger = logger.With(slog.String("job_id", jobID))

	runCtx, release, ok := w.runs.Begin(ctx, jobID)
	stoppedWhileQueued := w.takeQueued(jobID)
	if !ok {
		logger.Info("Run already in progress, skipping")
		return
	}
	defer release()

	if stoppedWhileQueued {
		logger.Info("Run stopped while queued, skipping")
		return
	}

	if w.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, w.runTimeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("Automation run starting")

	result, err := w.runner.Run(runCtx, jobID)
	if err != nil {
		logger.Error("Automation run failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}

	logger.Info("Automation run finished",
		slog.String("outcome", string(result.Outcome)),
		slog.Int("offers", result.Offers),
		slog.Duration("elapsed", time.Since(start)),
	)
}
