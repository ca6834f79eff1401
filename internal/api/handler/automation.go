package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/assignment-orchestrator/internal/api/dto"
	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
	"github.com/gin-gonic/gin"
)

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.database != nil {
		if err := h.database.HealthCheck(c.Request.Context()); err != nil {
			h.logger.Warn("Health check failed", slog.Any("error", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": h.service,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.service,
	})
}

// ListAttempts handles GET /assignment-attempts/:job_id
// Returns the job's attempt history ordered by attempt number
func (h *Handler) ListAttempts(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	attempts, err := h.store.ListForJob(c.Request.Context(), job.JobID)
	if err != nil {
		h.logger.Error("Failed to list attempts", slog.String("job_id", job.JobID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list attempts"})
		return
	}

	resp := dto.AttemptHistoryResponse{
		JobID:     job.JobID,
		JobStatus: job.Status,
		Attempts:  make([]dto.AttemptDTO, 0, len(attempts)),
	}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, dto.AttemptDTO{
			ID:            a.ID,
			AttemptNumber: a.AttemptNumber,
			CandidateID:   a.CandidateID,
			CandidateName: a.CandidateName,
			Status:        string(a.Status),
			Remark:        a.RemarkText(),
			CreatedAt:     a.CreatedAt,
			UpdatedAt:     a.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// RetryAutomation handles POST /retry-automation/:job_id
// Queues a new run unless the job is accepted or still has an open offer
func (h *Handler) RetryAutomation(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	if job.IsAccepted() {
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: domain.ErrJobAlreadyAccepted.Error()})
		return
	}

	attempts, err := h.store.ListForJob(c.Request.Context(), job.JobID)
	if err != nil {
		h.logger.Error("Failed to list attempts", slog.String("job_id", job.JobID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load attempts"})
		return
	}
	for _, a := range attempts {
		if a.Status == domain.AttemptStatusPending {
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: domain.ErrRunInProgress.Error()})
			return
		}
	}

	if err := h.publish(c.Request.Context(), domain.Message{Type: domain.MessageStartRun, JobID: job.JobID}); err != nil {
		h.logger.Error("Failed to queue automation run", slog.String("job_id", job.JobID), slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Failed to queue automation run"})
		return
	}

	c.JSON(http.StatusAccepted, dto.AutomationResponse{JobID: job.JobID, Status: "queued"})
}

// StopAutomation handles POST /stop-automation/:job_id
// Stops every open offer and tells the worker to halt the run
func (h *Handler) StopAutomation(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	stopped, err := h.store.StopAllPending(c.Request.Context(), job.JobID)
	if err != nil {
		h.logger.Error("Failed to stop pending attempts", slog.String("job_id", job.JobID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to stop automation"})
		return
	}

	// the worker also notices the STOPPED rows on its next poll
	if err := h.publish(c.Request.Context(), domain.Message{Type: domain.MessageStopRun, JobID: job.JobID}); err != nil {
		h.logger.Warn("Failed to publish stop", slog.String("job_id", job.JobID), slog.Any("error", err))
	}

	c.JSON(http.StatusOK, dto.AutomationResponse{JobID: job.JobID, Status: "stopped", Stopped: stopped})
}

// loadJob resolves the :job_id path parameter, writing 400 or 404 on failure
func (h *Handler) loadJob(c *gin.Context) (*domain.Job, bool) {
	jobID := c.Param("job_id")
	if !validJobID(jobID) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid job_id format"})
		return nil, false
	}

	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Job not found"})
			return nil, false
		}
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get job"})
		return nil, false
	}
	return job, true
}
