package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openelec/telemetry-relay/internal/domain"
	"github.com/openelec/telemetry-relay/internal/liveview"
)

func newTestApp(t *testing.T) (*fiber.App, *liveview.LiveView) {
	t.Helper()
	view := liveview.New(liveview.Options{})
	app := fiber.New()
	Register(app, view)
	return app, view
}

func apply(t *testing.T, view *liveview.LiveView, seq uint64, id string, power float64) {
	t.Helper()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute)
	res := view.Apply(domain.NewMessage(seq, domain.Reading{
		FacilityID: id,
		PowerMW:    power,
		Timestamp:  ts,
	}))
	require.Equal(t, liveview.Accepted, res)
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSnapshotEndpoint(t *testing.T) {
	app, view := newTestApp(t)
	apply(t, view, 1, "F1", 5.0)
	apply(t, view, 2, "F2", 3.0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var snap map[string]domain.Reading
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Len(t, snap, 2)
	assert.Equal(t, 5.0, snap["F1"].PowerMW)
	assert.Equal(t, 3.0, snap["F2"].PowerMW)
}

func TestFacilityEndpoint(t *testing.T) {
	app, view := newTestApp(t)
	apply(t, view, 1, "F1", 5.0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/facilities/F1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var r domain.Reading
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &r))
	assert.Equal(t, "F1", r.FacilityID)
	assert.Equal(t, 5.0, r.PowerMW)
}

func TestFacilityEndpointUnknown(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/facilities/NOPE", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// deadClientWriter fails every write, like a peer that hung up.
type deadClientWriter struct{}

func (deadClientWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestStreamNoticesDisconnectOnQuietFeed(t *testing.T) {
	changes := make(chan liveview.Change)
	defer close(changes)

	done := make(chan struct{})
	go func() {
		defer close(done)
		streamChanges(bufio.NewWriter(deadClientWriter{}), changes, 5*time.Millisecond)
	}()

	// No changes ever flow; the keep-alive write must surface the dead
	// client instead of blocking on the feed.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream writer did not notice the disconnected client")
	}
}

func TestStreamEndsWhenFeedCloses(t *testing.T) {
	changes := make(chan liveview.Change)
	close(changes)

	done := make(chan struct{})
	go func() {
		defer close(done)
		streamChanges(bufio.NewWriter(io.Discard), changes, time.Hour)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream writer did not stop on a closed feed")
	}
}
