package domain

import (
	"database/sql"
	"time"
)

// Attempt is one offer of a job to one candidate
type Attempt struct {
	ID            int64          `db:"id"`
	JobID         string         `db:"job_id"`
	CandidateID   string         `db:"candidate_id"`
	CandidateName string         `db:"candidate_name"`
	AttemptNumber int            `db:"attempt_number"`
	Status        AttemptStatus  `db:"status"`
	Remark        sql.NullString `db:"remark"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// RemarkText returns the remark or an empty string
func (a *Attempt) RemarkText() string {
	if a.Remark.Valid {
		return a.Remark.String
	}
	return ""
}

// NotificationKind identifies why a message was sent
type NotificationKind string

// Notification kinds
const (
	NotificationOffer          NotificationKind = "OFFER"
	NotificationEscalation     NotificationKind = "ESCALATION"
	NotificationResponseNotice NotificationKind = "RESPONSE_NOTICE"
)

// NotificationLogEntry records one outbound delivery and its status
type NotificationLogEntry struct {
	JobID            string           `db:"job_id"`
	Kind             NotificationKind `db:"kind"`
	RecipientName    string           `db:"recipient_name"`
	RecipientAddress string           `db:"recipient_address"`
	Status           string           `db:"status"`
	CreatedAt        time.Time        `db:"created_at"`
}

// ResponseLogEntry records an accept/reject decision made through an invitation
type ResponseLogEntry struct {
	JobID         string    `db:"job_id"`
	CandidateID   string    `db:"candidate_id"`
	CandidateName string    `db:"candidate_name"`
	AttemptNumber int       `db:"attempt_number"`
	Action        string    `db:"action"`
	Remark        string    `db:"remark"`
	CreatedAt     time.Time `db:"created_at"`
}
