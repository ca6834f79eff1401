package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/api/dto"
	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/cuongbtq/assignment-orchestrator/internal/invitation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Response actions accepted by POST /respond/:job_id
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// RespondForm handles GET /respond/:job_id
// Renders the decision form; it never changes state
func (h *Handler) RespondForm(c *gin.Context) {
	job, ref, err := h.resolveReference(c)
	if err != nil {
		h.writeReferenceError(c, err)
		return
	}

	c.HTML(http.StatusOK, TemplateRespondForm, gin.H{
		"Job":       job,
		"Reference": ref,
		"Action":    c.Request.URL.RequestURI(),
	})
}

// Respond handles POST /respond/:job_id
// Records the candidate's accept or reject decision
func (h *Handler) Respond(c *gin.Context) {
	job, ref, err := h.resolveReference(c)
	if errors.Is(err, domain.ErrReferenceExpired) {
		h.expireLateResponse(c.Request.Context(), ref)
	}
	if err != nil {
		h.writeReferenceError(c, err)
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBind(&req); err != nil {
		h.negotiateError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	status := domain.AttemptStatusRejected
	if req.Action == ActionAccept {
		status = domain.AttemptStatusAccepted
	}

	entry := &domain.ResponseLogEntry{
		JobID:         job.JobID,
		CandidateID:   ref.CandidateID,
		CandidateName: ref.CandidateName,
		AttemptNumber: ref.AttemptNumber,
		Action:        string(status),
		Remark:        strings.TrimSpace(req.Remark),
		CreatedAt:     time.Now().UTC(),
	}

	result := dto.RespondResult{
		JobID:         job.JobID,
		Reference:     job.Reference,
		CandidateName: ref.CandidateName,
		AttemptNumber: ref.AttemptNumber,
	}

	err = h.store.RecordResponse(c.Request.Context(), entry, status)
	switch {
	case errors.Is(err, domain.ErrAlreadyResolved):
		result.Status = "already_recorded"
		result.Message = "A response for this offer has already been recorded."
		h.negotiate(c, http.StatusOK, result)
		return
	case err != nil:
		h.logger.Error("Failed to record response",
			slog.String("job_id", job.JobID),
			slog.Int("attempt", ref.AttemptNumber),
			slog.Any("error", err),
		)
		h.negotiateError(c, http.StatusInternalServerError, "Failed to record response")
		return
	}

	if err := h.publish(c.Request.Context(), domain.Message{
		Type:          domain.MessageAttemptResolved,
		JobID:         job.JobID,
		CandidateID:   ref.CandidateID,
		AttemptNumber: ref.AttemptNumber,
		Status:        status,
	}); err != nil {
		// the worker still picks the new status up on its next poll
		h.logger.Warn("Failed to publish attempt resolution", slog.String("job_id", job.JobID), slog.Any("error", err))
	}

	if h.notifier != nil {
		if err := h.notifier.NotifyResponse(context.WithoutCancel(c.Request.Context()), job, entry); err != nil {
			h.logger.Warn("Failed to notify owner of response", slog.String("job_id", job.JobID), slog.Any("error", err))
		}
	}

	result.Status = string(status)
	if status == domain.AttemptStatusAccepted {
		result.Message = "Thank you. The job has been assigned to you."
	} else {
		result.Message = "Thank you. Your decision to decline has been recorded."
	}
	h.negotiate(c, http.StatusOK, result)
}

// resolveReference loads the job and checks the invitation carried in the query.
// On ErrReferenceExpired the parsed reference is still returned.
func (h *Handler) resolveReference(c *gin.Context) (*domain.Job, *invitation.Reference, error) {
	jobID := c.Param("job_id")
	if !validJobID(jobID) {
		return nil, nil, domain.ErrMalformedReference
	}

	query := c.Request.URL.Query()
	ref, err := h.issuer.Parse(jobID, query)
	if err != nil {
		return nil, nil, err
	}

	ctx := c.Request.Context()
	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	minutes, err := h.store.ExpiryMinutes(ctx, job.Area)
	if err != nil {
		return nil, nil, err
	}

	if err := h.issuer.Validate(ref, minutes); err != nil {
		return job, ref, err
	}
	return job, ref, nil
}

func (h *Handler) expireLateResponse(ctx context.Context, ref *invitation.Reference) {
	changed, err := h.store.TransitionAttempt(ctx, ref.JobID, ref.AttemptNumber, domain.AttemptStatusExpired, domain.RemarkLinkExpired)
	if err != nil {
		h.logger.Error("Failed to expire attempt",
			slog.String("job_id", ref.JobID),
			slog.Int("attempt", ref.AttemptNumber),
			slog.Any("error", err),
		)
		return
	}
	if !changed {
		return
	}

	if err := h.publish(ctx, domain.Message{
		Type:          domain.MessageAttemptResolved,
		JobID:         ref.JobID,
		CandidateID:   ref.CandidateID,
		AttemptNumber: ref.AttemptNumber,
		Status:        domain.AttemptStatusExpired,
	}); err != nil {
		h.logger.Warn("Failed to publish attempt expiry", slog.String("job_id", ref.JobID), slog.Any("error", err))
	}
}

func (h *Handler) writeReferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedReference):
		h.negotiateError(c, http.StatusBadRequest, "This link is invalid.")
	case errors.Is(err, domain.ErrReferenceExpired):
		h.negotiateError(c, http.StatusForbidden, "This link has expired.")
	case errors.Is(err, domain.ErrJobNotFound):
		h.negotiateError(c, http.StatusNotFound, "Job not found")
	default:
		h.logger.Error("Failed to resolve invitation", slog.String("job_id", c.Param("job_id")), slog.Any("error", err))
		h.negotiateError(c, http.StatusInternalServerError, "Failed to process request")
	}
}

func (h *Handler) negotiate(c *gin.Context, code int, result dto.RespondResult) {
	c.Negotiate(code, gin.Negotiate{
		Offered:  []string{binding.MIMEHTML, binding.MIMEJSON},
		HTMLName: TemplateRespondResult,
		HTMLData: result,
		JSONData: result,
	})
}

func (h *Handler) negotiateError(c *gin.Context, code int, message string) {
	c.Negotiate(code, gin.Negotiate{
		Offered:  []string{binding.MIMEHTML, binding.MIMEJSON},
		HTMLName: TemplateRespondResult,
		HTMLData: dto.RespondResult{JobID: c.Param("job_id"), Status: "error", Message: message},
		JSONData: dto.ErrorResponse{Error: message},
	})
}
