package domain

import "time"

// MessageType identifies the kind of broker message
type MessageType string

// Broker message types
const (
	MessageStartRun        MessageType = "start_run"
	MessageStopRun         MessageType = "stop_run"
	MessageAttemptResolved MessageType = "attempt_resolved"
)

// Message is the JSON envelope exchanged between the api and worker services
type Message struct {
	MessageID     string        `json:"message_id"`
	Type          MessageType   `json:"type"`
	JobID         string        `json:"job_id"`
	CandidateID   string        `json:"candidate_id,omitempty"`
	AttemptNumber int           `json:"attempt_number,omitempty"`
	Status        AttemptStatus `json:"status,omitempty"`
	SentAt        time.Time     `json:"sent_at"`
}
