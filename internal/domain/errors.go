package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrCandidateNotFound is returned when a candidate cannot be found
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrAttemptNotFound is returned when no attempt matches the job and attempt number
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrOwnerNotFound is returned when a job has no resolvable owner
	ErrOwnerNotFound = errors.New("job owner not found")

	// ErrMalformedReference is returned for invitation references with missing, non-numeric or forged fields
	ErrMalformedReference = errors.New("malformed invitation reference")

	// ErrReferenceExpired is returned when an invitation reference is past its window
	ErrReferenceExpired = errors.New("invitation reference expired")

	// ErrDuplicateAttempt is returned when a PENDING attempt already exists for the job and candidate
	ErrDuplicateAttempt = errors.New("pending attempt already exists for job and candidate")

	// ErrAlreadyResolved is returned when a response targets an attempt that is no longer PENDING
	ErrAlreadyResolved = errors.New("attempt already resolved")

	// ErrDeliveryFailed is returned when an outbound message could not be sent
	ErrDeliveryFailed = errors.New("message delivery failed")

	// ErrEscalationDeliveryFailed is returned when the operator could not be notified
	ErrEscalationDeliveryFailed = errors.New("escalation delivery failed")

	// ErrJobAlreadyAccepted is returned when automation is requested for an accepted job
	ErrJobAlreadyAccepted = errors.New("job already accepted")

	// ErrRunInProgress is returned when a run is already active for the job
	ErrRunInProgress = errors.New("automation run already in progress")

	// ErrRunStopped is the cancellation cause of a run halted by an operator
	ErrRunStopped = errors.New("automation stopped by operator")

	// ErrInvalidMessage is returned when a broker message cannot be decoded
	ErrInvalidMessage = errors.New("invalid broker message")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
