package dto

import "time"

// AttemptDTO is one row of a job's attempt history
type AttemptDTO struct {
	ID            int64     `json:"id"`
	AttemptNumber int       `json:"attempt_number"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	Status        string    `json:"status"`
	Remark        string    `json:"remark,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AttemptHistoryResponse is returned by GET /assignment-attempts/:job_id
type AttemptHistoryResponse struct {
	JobID     string       `json:"job_id"`
	JobStatus string       `json:"job_status"`
	Attempts  []AttemptDTO `json:"attempts"`
}

// AutomationResponse is returned by the retry and stop endpoints
type AutomationResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Stopped bool   `json:"stopped,omitempty"`
}

// RespondRequest is the candidate's decision, posted as a form or JSON
type RespondRequest struct {
	Action string `form:"action" json:"action" binding:"required,oneof=accept reject"`
	Remark string `form:"remark" json:"remark" binding:"max=500"`
}

// RespondResult describes the outcome of a respond call
type RespondResult struct {
	JobID         string `json:"job_id"`
	Reference     string `json:"reference,omitempty"`
	CandidateName string `json:"candidate_name,omitempty"`
	AttemptNumber int    `json:"attempt_number,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// ErrorResponse is the JSON body of every error
type ErrorResponse struct {
	Error string `json:"error"`
}
