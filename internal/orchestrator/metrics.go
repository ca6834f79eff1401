package orchestrator

import (
	"context"
	"log/slog"
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

// Metrics counts run outcomes and offer deliveries
type Metrics struct {
	RunsStarted     metrics.Counter
	RunsAccepted    metrics.Counter
	RunsExhausted   metrics.Counter
	RunsStopped     metrics.Counter
	OffersSent      metrics.Counter
	OffersFailed    metrics.Counter
	AttemptsSkipped metrics.Counter
	Escalations     metrics.Counter
	RunDuration     metrics.Timer
}

// NewMetrics registers the orchestrator metrics in r. A nil registry uses
// metrics.DefaultRegistry.
func NewMetrics(r metrics.Registry) *Metrics {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Metrics{
		RunsStarted:     metrics.GetOrRegisterCounter("orchestrator.runs.started", r),
		RunsAccepted:    metrics.GetOrRegisterCounter("orchestrator.runs.accepted", r),
		RunsExhausted:   metrics.GetOrRegisterCounter("orchestrator.runs.exhausted", r),
		RunsStopped:     metrics.GetOrRegisterCounter("orchestrator.runs.stopped", r),
		OffersSent:      metrics.GetOrRegisterCounter("orchestrator.offers.sent", r),
		OffersFailed:    metrics.GetOrRegisterCounter("orchestrator.offers.failed", r),
		AttemptsSkipped: metrics.GetOrRegisterCounter("orchestrator.attempts.skipped", r),
		Escalations:     metrics.GetOrRegisterCounter("orchestrator.escalations", r),
		RunDuration:     metrics.GetOrRegisterTimer("orchestrator.run.duration", r),
	}
}

// Report logs a snapshot of every counter, gauge and timer in r
func Report(r metrics.Registry, logger *slog.Logger) {
	attrs := []any{}
	r.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case metrics.Counter:
			attrs = append(attrs, slog.Int64(name, m.Count()))
		case metrics.Gauge:
			attrs = append(attrs, slog.Int64(name, m.Value()))
		case metrics.Timer:
			snap := m.Snapshot()
			attrs = append(attrs, slog.Group(name,
				slog.Int64("count", snap.Count()),
				slog.Duration("mean", time.Duration(snap.Mean())),
				slog.Duration("p95", time.Duration(snap.Percentile(0.95))),
			))
		}
	})
	logger.Info("Metrics snapshot", attrs...)
}

// ReportEvery calls Report on each tick until ctx is done
func ReportEvery(ctx context.Context, r metrics.Registry, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			Report(r, logger)
			return nil
		case <-ticker.C:
			Report(r, logger)
		}
	}
}
