package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobID = "3b241101-e2bb-4255-8caf-4136c566a962"

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /assignment-attempts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"` + r.PathValue("id") + `","job_status":"OPEN","attempts":[
			{"attempt_number":1,"candidate_id":"cand-1","candidate_name":"Bo","status":"EXPIRED","remark":"No response within timeout","created_at":"2025-06-02T09:00:00Z"}
		]}`))
	})
	mux.HandleFunc("POST /retry-automation/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"automation run already in progress"}`))
	})
	mux.HandleFunc("POST /stop-automation/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job_id":"` + r.PathValue("id") + `","status":"stopped","stopped":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestAttemptsCommand(t *testing.T) {
	srv := newAPI(t)

	out, err := execute(t, "--api-url", srv.URL, "attempts", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, "job "+jobID+" (OPEN)")
	assert.Contains(t, out, "Bo (cand-1)")
	assert.Contains(t, out, "EXPIRED")
	assert.Contains(t, out, "No response within timeout")
}

func TestRetryCommand_Conflict(t *testing.T) {
	srv := newAPI(t)

	_, err := execute(t, "--api-url", srv.URL, "retry", jobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "already in progress")
}

func TestStopCommand(t *testing.T) {
	srv := newAPI(t)

	out, err := execute(t, "--api-url", srv.URL, "stop", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, "pending offers stopped")
}

func TestCommands_RequireJobID(t *testing.T) {
	for _, name := range []string{"attempts", "retry", "stop"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, name)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "accepts 1 arg")
		})
	}
}

func TestAPIURL_FromEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://ops.internal:9000")

	flag := newRootCmd().PersistentFlags().Lookup("api-url")
	require.NotNil(t, flag)
	assert.Equal(t, "http://ops.internal:9000", flag.DefValue)
}
