package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

func TestNotifyPostsEvent(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Notify(context.Background(), Event{
		Type:    EventRunComplete,
		RunID:   "run-123",
		Message: "pageview pipeline run complete",
		Statistics: &model.FilterStatistics{
			InputRecords:  100,
			OutputRecords: 40,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, EventRunComplete, received.Type)
	assert.Equal(t, "run-123", received.RunID)
	require.NotNil(t, received.Statistics)
	assert.Equal(t, 40, received.Statistics.OutputRecords)
	assert.False(t, received.Timestamp.IsZero())
}

func TestNotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Notify(context.Background(), Event{Type: EventRunFailed, RunID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifyUnconfiguredIsNoop(t *testing.T) {
	n := NewWebhookNotifier("")
	assert.NoError(t, n.Notify(context.Background(), Event{Type: EventRunFailed}))
}
