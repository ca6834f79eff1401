package rabbitmq

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		mult    float64
		attempt int
		want    time.Duration
	}{
		{name: "first retry uses base", base: 50 * time.Millisecond, mult: 2, attempt: 0, want: 50 * time.Millisecond},
		{name: "doubles", base: 50 * time.Millisecond, mult: 2, attempt: 3, want: 400 * time.Millisecond},
		{name: "custom multiplier", base: time.Second, mult: 1.5, attempt: 2, want: 2250 * time.Millisecond},
		{name: "defaults", attempt: 1, want: 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackoffDelay(tt.base, tt.mult, tt.attempt))
		})
	}
}

func TestConfig_URL(t *testing.T) {
	cfg := &Config{User: "guest", Password: "guest", Host: "mq", Port: 5672, VHost: "/"}
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.URL())
}

func TestClient_NotConnected(t *testing.T) {
	client := &Client{config: &Config{}, logger: slog.New(slog.DiscardHandler)}

	assert.False(t, client.IsConnected())

	err := client.Publish(context.Background(), []byte("{}"), "application/json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	err = client.PublishWithRetry(context.Background(), []byte("{}"), "application/json")
	require.Error(t, err)

	_, err = client.Consume("worker")
	require.Error(t, err)
}
