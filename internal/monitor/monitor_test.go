package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu       sync.Mutex
	statuses []domain.AttemptStatus
	err      error
	calls    int
}

func (f *fakeSource) AttemptStatus(_ context.Context, _ string, _ int) (domain.AttemptStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.statuses) == 0 {
		return domain.AttemptStatusPending, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newMonitor(source StatusSource, poll time.Duration) (*Monitor, *Hub) {
	hub := NewHub()
	return New(hub, source, slog.New(slog.DiscardHandler), WithPollInterval(poll)), hub
}

func target(window time.Duration) Target {
	return Target{JobID: "job-1", CandidateID: "c-1", AttemptNumber: 1, Window: window}
}

func TestWait_EventResolves(t *testing.T) {
	m, hub := newMonitor(&fakeSource{}, time.Hour)

	done := make(chan domain.AttemptStatus, 1)
	go func() {
		status, err := m.Wait(context.Background(), target(time.Hour))
		assert.NoError(t, err)
		done <- status
	}()

	require.Eventually(t, func() bool { return hub.Waiting() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, hub.Publish(Key{JobID: "job-1", AttemptNumber: 2}, domain.AttemptStatusAccepted), "other attempts are not delivered")
	assert.Equal(t, 1, hub.Publish(Key{JobID: "job-1", AttemptNumber: 1}, domain.AttemptStatusRejected))

	select {
	case status := <-done:
		assert.Equal(t, domain.AttemptStatusRejected, status)
	case <-time.After(time.Second):
		t.Fatal("monitor did not observe the event")
	}
	assert.Equal(t, 0, hub.Waiting())
}

func TestWait_PollFallback(t *testing.T) {
	source := &fakeSource{statuses: []domain.AttemptStatus{
		domain.AttemptStatusPending,
		domain.AttemptStatusPending,
		domain.AttemptStatusAccepted,
	}}
	m, _ := newMonitor(source, 5*time.Millisecond)

	status, err := m.Wait(context.Background(), target(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusAccepted, status)
	assert.Equal(t, 3, source.callCount())
}

func TestWait_Expires(t *testing.T) {
	m, _ := newMonitor(&fakeSource{}, time.Hour)

	start := time.Now()
	status, err := m.Wait(context.Background(), target(20*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusExpired, status)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWait_PollErrorsKeepWaiting(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}
	m, _ := newMonitor(source, 2*time.Millisecond)

	status, err := m.Wait(context.Background(), target(30*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusExpired, status)
	assert.Greater(t, source.callCount(), 1)
}

func TestWait_CancelledWithCause(t *testing.T) {
	m, _ := newMonitor(&fakeSource{}, time.Hour)
	ctx, cancel := context.WithCancelCause(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel(domain.ErrRunStopped)
	}()

	status, err := m.Wait(ctx, target(time.Hour))
	assert.Equal(t, domain.AttemptStatusStopped, status)
	assert.ErrorIs(t, err, domain.ErrRunStopped)
}

func TestWait_ShutdownCancellation(t *testing.T) {
	m, _ := newMonitor(&fakeSource{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := m.Wait(ctx, target(time.Hour))
	assert.Equal(t, domain.AttemptStatusStopped, status)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrRunStopped)
}

func TestWait_StopSeenWithinOnePollInterval(t *testing.T) {
	poll := 20 * time.Millisecond
	source := &fakeSource{statuses: []domain.AttemptStatus{domain.AttemptStatusStopped}}
	m, _ := newMonitor(source, poll)

	start := time.Now()
	status, err := m.Wait(context.Background(), target(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusStopped, status)
	assert.Less(t, time.Since(start), 10*poll)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Publish(Key{JobID: "job-1", AttemptNumber: 1}, domain.AttemptStatusAccepted))
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	key := Key{JobID: "job-1", AttemptNumber: 1}

	ch1, cancel1 := hub.Subscribe(key)
	_, cancel2 := hub.Subscribe(key)
	assert.Equal(t, 1, hub.Waiting())
	assert.Equal(t, 2, hub.Publish(key, domain.AttemptStatusAccepted))
	assert.Equal(t, domain.AttemptStatusAccepted, <-ch1)

	cancel1()
	cancel2()
	cancel2()
	assert.Equal(t, 0, hub.Waiting())
}

func TestHub_PublishDoesNotBlock(t *testing.T) {
	hub := NewHub()
	key := Key{JobID: "job-1", AttemptNumber: 1}
	_, cancel := hub.Subscribe(key)
	defer cancel()

	assert.Equal(t, 1, hub.Publish(key, domain.AttemptStatusAccepted))
	assert.Equal(t, 0, hub.Publish(key, domain.AttemptStatusRejected), "buffer already full")
}
