package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/scanner"
)

type fakeStats struct{ snap StatsSnapshot }

func (f fakeStats) Stats() StatsSnapshot { return f.snap }

type fakeReconciler struct {
	accept    bool
	status    scanner.SchedulerStatus
	triggered int
}

func (f *fakeReconciler) Trigger() bool {
	f.triggered++
	return f.accept
}

func (f *fakeReconciler) Status() scanner.SchedulerStatus { return f.status }

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		reconciler *fakeReconciler
		wantCode   int
		wantStatus string
	}{
		{"healthy", true, &fakeReconciler{status: scanner.SchedulerStatus{Healthy: true}}, http.StatusOK, "healthy"},
		{"last cycle failed", true, &fakeReconciler{status: scanner.SchedulerStatus{LastError: "boom"}}, http.StatusOK, "degraded"},
		{"unhealthy", false, &fakeReconciler{status: scanner.SchedulerStatus{Healthy: true}}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(":0", nil, tt.reconciler, nil, nil)
			s.SetHealthy(tt.healthy)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			require.NotNil(t, resp.Reconcile)
		})
	}
}

func TestServer_Stats(t *testing.T) {
	registry, err := database.OpenInMemory()
	require.NoError(t, err)
	defer registry.Close()
	require.NoError(t, registry.UpsertLink(&database.LinkRecord{
		SourcePath: "/watch/movies/Heat.1995.mkv",
		LinkPath:   "/library/movies/Heat (1995)/Heat (1995).mkv",
		Kind:       "movie",
		Title:      "Heat",
		Year:       1995,
		Verified:   true,
	}))

	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stats := fakeStats{snap: StatsSnapshot{Created: 3, Skipped: 1, QueueLength: 2, LastProcessed: last, Uptime: time.Minute}}
	s := NewServer(":0", stats, nil, registry, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.Created)
	assert.Equal(t, int64(1), resp.Skipped)
	assert.Equal(t, 2, resp.QueueLength)
	assert.Equal(t, 60.0, resp.UptimeSeconds)
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.LastProcessed)
	assert.Empty(t, resp.LastCycle)
	require.NotNil(t, resp.Registry)
	assert.Equal(t, 1, resp.Registry.Links)
}

func TestServer_Reconcile(t *testing.T) {
	tests := []struct {
		name       string
		reconciler Reconciler
		wantCode   int
	}{
		{"started", &fakeReconciler{accept: true}, http.StatusAccepted},
		{"busy", &fakeReconciler{accept: false}, http.StatusConflict},
		{"no scheduler", nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(":0", nil, tt.reconciler, nil, nil)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestServer_ReconcileRequiresPost(t *testing.T) {
	r := &fakeReconciler{accept: true}
	s := NewServer(":0", nil, r, nil, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reconcile", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, r.triggered)
}
