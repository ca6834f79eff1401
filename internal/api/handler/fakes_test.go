package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/internal/invitation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testJobID  = "3b241101-e2bb-4255-8caf-4136c566a962"
	testSecret = "test-secret"
	testBase   = "https://assign.example.com"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type transitionCall struct {
	JobID         string
	AttemptNumber int
	Status        domain.AttemptStatus
	Remark        string
}

type fakeStore struct {
	mu sync.Mutex

	jobs          map[string]*domain.Job
	attempts      map[string][]domain.Attempt
	expiryMinutes int
	err           error

	stopped     bool
	stopCalls   int
	transitions []transitionCall
	responses   []domain.ResponseLogEntry
	statuses    []domain.AttemptStatus
	recordErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs: map[string]*domain.Job{
			testJobID: {JobID: testJobID, Reference: "JOB-1001", Area: "north", Client: "acme", Status: domain.JobStatusOpen},
		},
		attempts:      map[string][]domain.Attempt{},
		expiryMinutes: 15,
	}
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListForJob(_ context.Context, jobID string) ([]domain.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Attempt(nil), f.attempts[jobID]...), nil
}

func (f *fakeStore) StopAllPending(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopped, nil
}

func (f *fakeStore) TransitionAttempt(_ context.Context, jobID string, attemptNumber int, status domain.AttemptStatus, remark string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, transitionCall{jobID, attemptNumber, status, remark})
	return true, nil
}

func (f *fakeStore) RecordResponse(_ context.Context, entry *domain.ResponseLogEntry, status domain.AttemptStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.responses = append(f.responses, *entry)
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) ExpiryMinutes(_ context.Context, _ string) (int, error) {
	return f.expiryMinutes, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []domain.Message
	err      error
}

func (p *fakePublisher) PublishWithRetry(_ context.Context, body []byte, contentType string) error {
	if contentType != "application/json" {
		return errors.New("unexpected content type " + contentType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var msg domain.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) published() []domain.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Message(nil), p.messages...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	responses []domain.ResponseLogEntry
}

func (n *fakeNotifier) NotifyResponse(_ context.Context, _ *domain.Job, response *domain.ResponseLogEntry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses = append(n.responses, *response)
	return nil
}

type fakeHealth struct{ err error }

func (h fakeHealth) HealthCheck(context.Context) error { return h.err }

type testEnv struct {
	store     *fakeStore
	publisher *fakePublisher
	notifier  *fakeNotifier
	health    *fakeHealth
	engine    *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     newFakeStore(),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		health:    &fakeHealth{},
	}

	h := NewHandler(&Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:       env.store,
		Publisher:   env.publisher,
		Issuer:      invitation.NewIssuer(testBase, testSecret, invitation.WithClock(func() time.Time { return testNow })),
		Notifier:    env.notifier,
		Database:    env.health,
		ServiceName: "assignment-api",
	})

	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.GET("/health", h.Health)
	r.GET("/assignment-attempts/:job_id", h.ListAttempts)
	r.POST("/retry-automation/:job_id", h.RetryAutomation)
	r.POST("/stop-automation/:job_id", h.StopAutomation)
	r.GET("/respond/:job_id", h.RespondForm)
	r.POST("/respond/:job_id", h.Respond)
	env.engine = r

	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// inviteURI issues a link at issuedAt and returns its path and query
func inviteURI(t *testing.T, issuedAt time.Time, attempt int) string {
	t.Helper()

	issuer := invitation.NewIssuer(testBase, testSecret, invitation.WithClock(func() time.Time { return issuedAt }))
	job := &domain.Job{JobID: testJobID}
	cand := &domain.Candidate{CandidateID: "cand-2", DisplayName: "Ana Lopez"}

	link, err := url.Parse(issuer.URL(issuer.Issue(job, cand, attempt)))
	require.NoError(t, err)
	return link.RequestURI()
}

func formRequest(uri string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, uri, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
