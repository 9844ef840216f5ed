package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vegeta "github.com/tsenart/vegeta/v12/lib"

	"mabletask/admin/middleware"
	"mabletask/admin/models"
)

func nextTarget(t *testing.T, tr vegeta.Targeter) vegeta.Target {
	t.Helper()
	var tgt vegeta.Target
	require.NoError(t, tr(&tgt))
	return tgt
}

func TestTargeterReadOnly(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, count := newTargeter(options{baseURL: "http://api.local/", eventType: "VIEW"}, func() time.Time { return now })
	require.Equal(t, 2, count)

	first := nextTarget(t, tr)
	u, err := url.Parse(first.URL)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, first.Method)
	assert.Equal(t, "/api/events", u.Path)
	assert.Equal(t, "VIEW", u.Query().Get("event_type"))
	assert.Equal(t, "2024-03-03T12:00:00.000Z", u.Query().Get("start_time"))
	assert.Equal(t, "2024-03-10T12:00:00.000Z", u.Query().Get("end_time"))
	assert.False(t, u.Query().Has("user_id"))

	assert.Contains(t, nextTarget(t, tr).URL, "http://api.local/api/dashboard/events?")
	assert.Equal(t, first.URL, nextTarget(t, tr).URL, "targets cycle")

	assert.ErrorIs(t, tr(nil), vegeta.ErrNilTarget)
}

func TestTargeterIngestionBatchesAreFresh(t *testing.T) {
	tr, count := newTargeter(options{baseURL: "http://api.local", apiKey: "svc", batch: 6}, time.Now)
	require.Equal(t, 3, count)

	seen := map[string]bool{}
	for round := 0; round < 2; round++ {
		nextTarget(t, tr)
		nextTarget(t, tr)
		post := nextTarget(t, tr)

		assert.Equal(t, http.MethodPost, post.Method)
		assert.Equal(t, "http://api.local/api/events", post.URL)
		assert.Equal(t, "svc", post.Header.Get(middleware.APIKeyHeader))

		var events []models.Event
		require.NoError(t, json.Unmarshal(post.Body, &events))
		require.Len(t, events, 6)
		assert.Equal(t, "VIEW", events[0].EventType)
		assert.Equal(t, "VIEW", events[4].EventType)
		assert.True(t, events[5].Timestamp.Valid)
		for _, e := range events {
			assert.False(t, seen[e.EventID], "event id %s sent twice", e.EventID)
			seen[e.EventID] = true
		}
	}
	assert.Len(t, seen, 12)
}
