package router

import (
	"github.com/cuongbtq/assignment-orchestrator/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Logger))
	r.Use(CORSMiddleware())

	r.SetHTMLTemplate(handler.Templates())

	h := handler.NewHandler(deps)

	r.GET("/health", h.Health)

	// Operator endpoints
	r.GET("/assignment-attempts/:job_id", h.ListAttempts)
	r.POST("/retry-automation/:job_id", h.RetryAutomation)
	r.POST("/stop-automation/:job_id", h.StopAutomation)

	// Candidate endpoints reached through invitation links
	r.GET("/respond/:job_id", h.RespondForm)
	r.POST("/respond/:job_id", h.Respond)

	return r
}
