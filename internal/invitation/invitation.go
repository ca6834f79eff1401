// Package invitation issues and validates the time-bounded links candidates
// use to accept or reject an offer.
package invitation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// Query parameter names carried by an invitation link
const (
	ParamCandidateID   = "candidate_id"
	ParamCandidateName = "candidate_name"
	ParamAttempt       = "attempt"
	ParamTimestamp     = "timestamp"
	ParamSignature     = "signature"
)

// Reference is the decoded content of an invitation link
type Reference struct {
	JobID         string
	CandidateID   string
	CandidateName string
	AttemptNumber int
	IssuedAt      time.Time
	Signature     string
}

// Issuer creates and checks invitation references
type Issuer struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

// Option configures an Issuer
type Option func(*Issuer)

// WithClock replaces the wall clock, used by tests
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer that builds links under baseURL and signs them with secret
func NewIssuer(baseURL, secret string, opts ...Option) *Issuer {
	i := &Issuer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue builds a signed reference for offering job to candidate as attemptNumber
func (i *Issuer) Issue(job *domain.Job, candidate *domain.Candidate, attemptNumber int) *Reference {
	ref := &Reference{
		JobID:         job.JobID,
		CandidateID:   candidate.CandidateID,
		CandidateName: candidate.DisplayName,
		AttemptNumber: attemptNumber,
		IssuedAt:      time.Unix(i.now().Unix(), 0),
	}
	ref.Signature = i.sign(ref)
	return ref
}

// URL renders the public link for ref
func (i *Issuer) URL(ref *Reference) string {
	q := url.Values{}
	q.Set(ParamCandidateID, ref.CandidateID)
	q.Set(ParamCandidateName, ref.CandidateName)
	q.Set(ParamAttempt, strconv.Itoa(ref.AttemptNumber))
	q.Set(ParamTimestamp, strconv.FormatInt(ref.IssuedAt.Unix(), 10))
	q.Set(ParamSignature, ref.Signature)

	return fmt.Sprintf("%s/respond/%s?%s", i.baseURL, url.PathEscape(ref.JobID), q.Encode())
}

// Parse decodes the reference fields of an inbound request
func (i *Issuer) Parse(jobID string, query url.Values) (*Reference, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrMalformedReference)
	}

	candidateID := query.Get(ParamCandidateID)
	if candidateID == "" {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrMalformedReference, ParamCandidateID)
	}

	attempt, err := strconv.Atoi(query.Get(ParamAttempt))
	if err != nil || attempt < 1 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", domain.ErrMalformedReference, ParamAttempt)
	}

	ts, err := strconv.ParseInt(query.Get(ParamTimestamp), 10, 64)
	if err != nil || ts <= 0 {
		return nil, fmt.Errorf("%w: %s must be unix seconds", domain.ErrMalformedReference, ParamTimestamp)
	}

	signature := query.Get(ParamSignature)
	if signature == "" {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrMalformedReference, ParamSignature)
	}

	return &Reference{
		JobID:         jobID,
		CandidateID:   candidateID,
		CandidateName: query.Get(ParamCandidateName),
		AttemptNumber: attempt,
		IssuedAt:      time.Unix(ts, 0),
		Signature:     signature,
	}, nil
}

// Validate checks the signature and expiry of ref against the area's expiry window.
// A reference is still valid exactly expiryMinutes*60 seconds after issue.
func (i *Issuer) Validate(ref *Reference, expiryMinutes int) error {
	if !hmac.Equal([]byte(ref.Signature), []byte(i.sign(ref))) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrMalformedReference)
	}

	age := i.now().Unix() - ref.IssuedAt.Unix()
	if age > int64(expiryMinutes)*60 {
		return fmt.Errorf("%w: issued %ds ago, window is %d minutes", domain.ErrReferenceExpired, age, expiryMinutes)
	}

	return nil
}

// ParseAndValidate is Parse followed by Validate
func (i *Issuer) ParseAndValidate(jobID string, query url.Values, expiryMinutes int) (*Reference, error) {
	ref, err := i.Parse(jobID, query)
	if err != nil {
		return nil, err
	}
	if err := i.Validate(ref, expiryMinutes); err != nil {
		return ref, err
	}
	return ref, nil
}

// sign computes the HMAC over every field the link carries. Strings are
// quoted so a separator inside a name cannot shift field boundaries.
func (i *Issuer) sign(ref *Reference) string {
	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "%q|%q|%q|%d|%d", ref.JobID, ref.CandidateID, ref.CandidateName, ref.AttemptNumber, ref.IssuedAt.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}
