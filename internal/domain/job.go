package domain

import "time"

// Job is the unit of work waiting for a candidate to accept it
type Job struct {
	JobID     string    `db:"job_id" json:"job_id"`
	Reference string    `db:"reference" json:"reference"`
	Area      string    `db:"area" json:"area"`
	Client    string    `db:"client" json:"client"`
	Status    string    `db:"status" json:"status"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsAccepted reports whether a candidate already took the job
func (j *Job) IsAccepted() bool {
	return j.Status == JobStatusAccepted
}

// Operator is the human owner of a job
type Operator struct {
	OperatorID string `db:"operator_id"`
	Name       string `db:"name"`
	Email      string `db:"email"`
}
