package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuongbtq/assignment-orchestrator/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := SetupRouter(&handler.Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceName: "assignment-api",
	})

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /assignment-attempts/:job_id",
		"POST /retry-automation/:job_id",
		"POST /stop-automation/:job_id",
		"GET /respond/:job_id",
		"POST /respond/:job_id",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := SetupRouter(&handler.Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/stop-automation/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		path      string
		wantLevel string
		wantJobID string
	}{
		{name: "job route", status: http.StatusOK, path: "/respond/job-7?signature=deadbeef", wantLevel: "INFO", wantJobID: "job-7"},
		{name: "server error", status: http.StatusInternalServerError, path: "/respond/job-8", wantLevel: "ERROR", wantJobID: "job-8"},
		{name: "no job", status: http.StatusOK, path: "/ping", wantLevel: "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := gin.New()
			r.Use(RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
			r.GET("/respond/:job_id", func(c *gin.Context) { c.Status(tt.status) })
			r.GET("/ping", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			if tt.wantJobID != "" {
				assert.Equal(t, tt.wantJobID, entry["job_id"])
				assert.Equal(t, "/respond/:job_id", entry["route"])
			} else {
				assert.NotContains(t, entry, "job_id")
			}
			assert.NotContains(t, buf.String(), "deadbeef", "query strings are not logged")
		})
	}
}

func TestHealth_WithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := SetupRouter(&handler.Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceName: "assignment-api",
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "assignment-api")
}
