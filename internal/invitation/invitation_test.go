package invitation

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJobID = "7f0c1d5e-2b1a-4c55-9d5e-0c3f0b9a4e11"

var issuedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testRefs() (*domain.Job, *domain.Candidate) {
	return &domain.Job{JobID: testJobID, Area: "north"},
		&domain.Candidate{CandidateID: "c-42", DisplayName: "Ana & Sons Plumbing"}
}

func issueQuery(t *testing.T, issuer *Issuer) url.Values {
	t.Helper()
	job, cand := testRefs()
	link, err := url.Parse(issuer.URL(issuer.Issue(job, cand, 3)))
	require.NoError(t, err)
	return link.Query()
}

func TestIssuer_URL(t *testing.T) {
	issuer := NewIssuer("https://ops.example.com/", "secret", WithClock(fixedClock(issuedAt)))
	job, cand := testRefs()

	raw := issuer.URL(issuer.Issue(job, cand, 3))

	link, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ops.example.com", link.Host)
	assert.Equal(t, "/respond/"+testJobID, link.Path)

	q := link.Query()
	assert.Equal(t, "c-42", q.Get(ParamCandidateID))
	assert.Equal(t, "Ana & Sons Plumbing", q.Get(ParamCandidateName))
	assert.Equal(t, "3", q.Get(ParamAttempt))
	assert.Equal(t, "1740819600", q.Get(ParamTimestamp))
	assert.Len(t, q.Get(ParamSignature), 64)
	assert.False(t, strings.Contains(raw, "Ana & Sons"), "candidate name must be url-encoded")
}

func TestIssuer_Parse(t *testing.T) {
	issuer := NewIssuer("https://ops.example.com", "secret", WithClock(fixedClock(issuedAt)))
	valid := issueQuery(t, issuer)

	ref, err := issuer.Parse(testJobID, valid)
	require.NoError(t, err)
	assert.Equal(t, testJobID, ref.JobID)
	assert.Equal(t, "c-42", ref.CandidateID)
	assert.Equal(t, "Ana & Sons Plumbing", ref.CandidateName)
	assert.Equal(t, 3, ref.AttemptNumber)
	assert.Equal(t, issuedAt.Unix(), ref.IssuedAt.Unix())

	tests := []struct {
		name   string
		jobID  string
		mutate func(q url.Values)
	}{
		{name: "missing job id", jobID: " ", mutate: func(q url.Values) {}},
		{name: "missing candidate", mutate: func(q url.Values) { q.Del(ParamCandidateID) }},
		{name: "non-numeric timestamp", mutate: func(q url.Values) { q.Set(ParamTimestamp, "yesterday") }},
		{name: "missing timestamp", mutate: func(q url.Values) { q.Del(ParamTimestamp) }},
		{name: "zero attempt", mutate: func(q url.Values) { q.Set(ParamAttempt, "0") }},
		{name: "non-numeric attempt", mutate: func(q url.Values) { q.Set(ParamAttempt, "two") }},
		{name: "missing signature", mutate: func(q url.Values) { q.Del(ParamSignature) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			for k, v := range valid {
				q[k] = append([]string(nil), v...)
			}
			tt.mutate(q)

			jobID := testJobID
			if tt.jobID != "" {
				jobID = tt.jobID
			}

			_, err := issuer.Parse(jobID, q)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedReference)
		})
	}
}

func TestIssuer_ValidateExpiryBoundary(t *testing.T) {
	const expiryMinutes = 15

	tests := []struct {
		name    string
		age     time.Duration
		wantErr error
	}{
		{name: "fresh", age: 0},
		{name: "exactly at window", age: expiryMinutes * time.Minute},
		{name: "one second past window", age: expiryMinutes*time.Minute + time.Second, wantErr: domain.ErrReferenceExpired},
		{name: "long expired", age: 24 * time.Hour, wantErr: domain.ErrReferenceExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := issueQuery(t, NewIssuer("https://ops.example.com", "secret", WithClock(fixedClock(issuedAt))))
			checker := NewIssuer("https://ops.example.com", "secret", WithClock(fixedClock(issuedAt.Add(tt.age))))

			ref, err := checker.ParseAndValidate(testJobID, query, expiryMinutes)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				require.NotNil(t, ref, "expired references are still returned for ledger bookkeeping")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "c-42", ref.CandidateID)
		})
	}
}

func TestIssuer_ValidateSignature(t *testing.T) {
	issuer := NewIssuer("https://ops.example.com", "secret", WithClock(fixedClock(issuedAt)))

	tests := []struct {
		name   string
		jobID  string
		mutate func(q url.Values)
		issuer *Issuer
	}{
		{name: "tampered candidate", jobID: testJobID, mutate: func(q url.Values) { q.Set(ParamCandidateID, "c-43") }},
		{name: "tampered candidate name", jobID: testJobID, mutate: func(q url.Values) { q.Set(ParamCandidateName, "Someone Else") }},
		{name: "name moved into id", jobID: testJobID, mutate: func(q url.Values) {
			q.Set(ParamCandidateID, q.Get(ParamCandidateID)+"|"+q.Get(ParamCandidateName))
			q.Del(ParamCandidateName)
		}},
		{name: "tampered attempt", jobID: testJobID, mutate: func(q url.Values) { q.Set(ParamAttempt, "4") }},
		{name: "extended timestamp", jobID: testJobID, mutate: func(q url.Values) { q.Set(ParamTimestamp, "1740823200") }},
		{name: "replayed on another job", jobID: "11111111-2222-3333-4444-555555555555", mutate: func(q url.Values) {}},
		{
			name:   "different secret",
			jobID:  testJobID,
			mutate: func(q url.Values) {},
			issuer: NewIssuer("https://ops.example.com", "rotated", WithClock(fixedClock(issuedAt))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := issueQuery(t, issuer)
			tt.mutate(q)

			checker := issuer
			if tt.issuer != nil {
				checker = tt.issuer
			}

			_, err := checker.ParseAndValidate(tt.jobID, q, 15)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedReference)
		})
	}

}

func TestIssuer_ValidateIsIdempotent(t *testing.T) {
	issuer := NewIssuer("https://ops.example.com", "secret", WithClock(fixedClock(issuedAt)))
	q := issueQuery(t, issuer)

	for i := 0; i < 3; i++ {
		_, err := issuer.ParseAndValidate(testJobID, q, 15)
		require.NoError(t, err)
	}
}
