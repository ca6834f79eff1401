package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/internal/monitor"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobs(jobs ...*domain.Job) *fakeJobs {
	f := &fakeJobs{jobs: make(map[string]*domain.Job)}
	for _, j := range jobs {
		f.jobs[j.JobID] = j
	}
	return f
}

func (f *fakeJobs) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	j := *job
	return &j, nil
}

func (f *fakeJobs) UpdateJobStatus(_ context.Context, jobID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = status
	return nil
}

func (f *fakeJobs) status(jobID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID].Status
}

type fakeRanker struct {
	ranked []domain.RankedCandidate
	err    error
}

func (f *fakeRanker) Rank(context.Context, string, string) ([]domain.RankedCandidate, error) {
	return f.ranked, f.err
}

// fakeLedger mirrors the Postgres ledger rules: one PENDING attempt per
// job and candidate, unique attempt numbers, and transitions only out of
// PENDING.
type fakeLedger struct {
	mu        sync.Mutex
	attempts  []domain.Attempt
	recordErr map[string]error
}

func (f *fakeLedger) NextAttemptNumber(_ context.Context, jobID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := 1
	for _, a := range f.attempts {
		if a.JobID == jobID && a.AttemptNumber >= next {
			next = a.AttemptNumber + 1
		}
	}
	return next, nil
}

func (f *fakeLedger) Record(_ context.Context, attempt *domain.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordErr[attempt.CandidateID]; err != nil {
		return err
	}
	for _, a := range f.attempts {
		if a.JobID != attempt.JobID {
			continue
		}
		if a.AttemptNumber == attempt.AttemptNumber ||
			(a.CandidateID == attempt.CandidateID && a.Status == domain.AttemptStatusPending) {
			return domain.ErrDuplicateAttempt
		}
	}
	attempt.ID = int64(len(f.attempts) + 1)
	attempt.Status = domain.AttemptStatusPending
	attempt.CreatedAt = time.Now()
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeLedger) Transition(_ context.Context, jobID, candidateID string, status domain.AttemptStatus, remark string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.attempts {
		a := &f.attempts[i]
		if a.JobID == jobID && a.CandidateID == candidateID && a.Status == domain.AttemptStatusPending {
			a.Status = status
			a.Remark.String, a.Remark.Valid = remark, remark != ""
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) respond(jobID string, attemptNumber int, status domain.AttemptStatus, remark string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.attempts {
		a := &f.attempts[i]
		if a.JobID == jobID && a.AttemptNumber == attemptNumber && a.Status == domain.AttemptStatusPending {
			a.Status = status
			a.Remark.String, a.Remark.Valid = remark, remark != ""
			return true
		}
	}
	return false
}

func (f *fakeLedger) stopAllPending(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.attempts {
		if f.attempts[i].JobID == jobID && f.attempts[i].Status == domain.AttemptStatusPending {
			f.attempts[i].Status = domain.AttemptStatusStopped
		}
	}
}

func (f *fakeLedger) ListForJob(_ context.Context, jobID string) ([]domain.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Attempt{}
	for _, a := range f.attempts {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLedger) AttemptStatus(_ context.Context, jobID string, attemptNumber int) (domain.AttemptStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.JobID == jobID && a.AttemptNumber == attemptNumber {
			return a.Status, nil
		}
	}
	return "", domain.ErrAttemptNotFound
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

type fixedExpiry time.Duration

func (e fixedExpiry) ExpiryWindow(context.Context, string) (time.Duration, error) {
	return time.Duration(e), nil
}

type sentOffer struct {
	CandidateID   string
	AttemptNumber int
	Link          string
}

type fakeOfferer struct {
	mu      sync.Mutex
	sent    []sentOffer
	failFor map[string]bool
}

func (f *fakeOfferer) SendOffer(_ context.Context, _ *domain.Job, candidate *domain.Candidate, attemptNumber int, link string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[candidate.CandidateID] {
		return "FAILED: 550 mailbox unavailable", domain.ErrDeliveryFailed
	}
	f.sent = append(f.sent, sentOffer{CandidateID: candidate.CandidateID, AttemptNumber: attemptNumber, Link: link})
	return "SENT", nil
}

type escalation struct {
	JobID    string
	Attempts []domain.Attempt
}

type fakeEscalator struct {
	mu    sync.Mutex
	calls []escalation
	err   error
}

func (f *fakeEscalator) Escalate(_ context.Context, job *domain.Job, attempts []domain.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, escalation{JobID: job.JobID, Attempts: attempts})
	return f.err
}

func (f *fakeEscalator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// scriptedWaiter answers each attempt from a script keyed by candidate id and
// applies the answer to the ledger the way the respond endpoint would.
type scriptedWaiter struct {
	ledger  *fakeLedger
	answers map[string]domain.AttemptStatus
}

func (w *scriptedWaiter) Wait(ctx context.Context, target monitor.Target) (domain.AttemptStatus, error) {
	status, ok := w.answers[target.CandidateID]
	if !ok {
		return domain.AttemptStatusExpired, nil
	}
	if status == domain.AttemptStatusAccepted || status == domain.AttemptStatusRejected {
		w.ledger.respond(target.JobID, target.AttemptNumber, status, "")
	}
	return status, nil
}

var errBoom = errors.New("boom")
