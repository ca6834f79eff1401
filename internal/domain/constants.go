package domain

// Job status constants
const (
	JobStatusOpen     = "OPEN"
	JobStatusAccepted = "ACCEPTED"
	JobStatusRejected = "REJECTED"
)

// AttemptStatus is the lifecycle state of a single offer
type AttemptStatus string

// Attempt status constants
const (
	AttemptStatusPending     AttemptStatus = "PENDING"
	AttemptStatusAccepted    AttemptStatus = "ACCEPTED"
	AttemptStatusRejected    AttemptStatus = "REJECTED"
	AttemptStatusExpired     AttemptStatus = "EXPIRED"
	AttemptStatusStopped     AttemptStatus = "STOPPED"
	AttemptStatusEmailFailed AttemptStatus = "EMAIL_FAILED"
)

// Remarks written by the system itself
const (
	RemarkNoResponse     = "No response within timeout"
	RemarkOperatorStop   = "Operator stopped automation"
	RemarkLinkExpired    = "Response received after link expiry"
	RemarkRunInterrupted = "Automation run interrupted"
)

// DefaultExpiryMinutes applies when an area has no expiry policy
const DefaultExpiryMinutes = 15

// DefaultMaxAttempts caps how many candidates a single run offers the job to
const DefaultMaxAttempts = 5

// IsTerminal reports whether the status can no longer change
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptStatusAccepted, AttemptStatusRejected, AttemptStatusExpired,
		AttemptStatusStopped, AttemptStatusEmailFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known attempt status
func (s AttemptStatus) Valid() bool {
	return s == AttemptStatusPending || s.IsTerminal()
}
