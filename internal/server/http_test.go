package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PressMonitor/internal/config"
	"PressMonitor/internal/domain"
	"PressMonitor/internal/logging"
	"PressMonitor/internal/usecase"
)

type stubSource struct{ releases []domain.PressRelease }

func (s *stubSource) FetchAll(ctx context.Context) ([]domain.PressRelease, error) {
	return s.releases, nil
}
func (s *stubSource) Ping(ctx context.Context) error { return nil }

type stubStore struct {
	runs []domain.RunMetadata
}

func (s *stubStore) Exists(ctx context.Context, fingerprint string) (bool, error) { return false, nil }
func (s *stubStore) FilterUnprocessed(ctx context.Context, releases []domain.PressRelease) ([]domain.PressRelease, error) {
	return releases, nil
}
func (s *stubStore) MarkProcessed(ctx context.Context, release domain.ProcessedRelease) error {
	return nil
}
func (s *stubStore) SaveRunMetadata(ctx context.Context, meta domain.RunMetadata) error {
	s.runs = append(s.runs, meta)
	return nil
}
func (s *stubStore) GetStats(ctx context.Context, windowDays int) (domain.ProcessingStats, error) {
	return domain.ProcessingStats{WindowDays: windowDays, Total: 2, Created: 2}, nil
}
func (s *stubStore) GetLastRunTime(ctx context.Context) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (s *stubStore) Ping(ctx context.Context) error { return nil }

type stubPublisher struct{}

func (p *stubPublisher) ProcessBatch(ctx context.Context, releases []domain.PressRelease) ([]domain.PublishOutcome, domain.BatchSummary) {
	outcomes := make([]domain.PublishOutcome, len(releases))
	for i := range outcomes {
		outcomes[i] = domain.PublishOutcome{Status: domain.StatusCreated, ItemID: "item"}
	}
	return outcomes, domain.BatchSummary{Total: len(releases), Created: len(releases)}
}
func (p *stubPublisher) Ping(ctx context.Context) error { return nil }

func newTestServer() *Server {
	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Source:    &stubSource{},
		Store:     &stubStore{},
		Publisher: &stubPublisher{},
		Window: config.WindowConfig{
			Timezone: "UTC",
			Weekdays: []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
			Start:    "00:00",
			End:      "23:59",
		},
	})
	return New(orchestrator, logging.New("error"))
}

func TestRunEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report usecase.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Success)
	require.NotNil(t, report.Results)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report usecase.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "healthy", report.Status)
	assert.True(t, report.Connections["webflow"])
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats usecase.StatsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Processing.Total)
}
