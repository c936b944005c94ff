package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/service/engine"
	"github.com/gin-gonic/gin"
)

type stubRunner struct {
	source model.DataSource
	batch  engine.Batch
	calls  int
	err    error
}

func (s *stubRunner) RunCycle(ctx context.Context, source model.DataSource, batch engine.Batch) (*engine.CycleStats, error) {
	s.calls++
	s.source = source
	s.batch = batch
	if s.err != nil {
		return nil, s.err
	}
	return &engine.CycleStats{CycleID: "test-cycle", TotalRules: 1, EvaluatedRules: 1}, nil
}

type stubCache struct {
	seen map[string]bool
	err  error
}

func (c *stubCache) TryMarkSeen(ctx context.Context, batchID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.seen[batchID] {
		return false, nil
	}
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	c.seen[batchID] = true
	return true, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterIngestRoutes(r, h)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestMetrics(t *testing.T) {
	runner := &stubRunner{}
	r := newTestRouter(NewHandler(runner))

	w := postJSON(t, r, "/v1/ingest/metrics", `{"metrics":{"cpu_usage":95.5}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if runner.source != model.DataSourceMetric {
		t.Errorf("source = %s, want metric", runner.source)
	}
	if runner.batch.Metrics["cpu_usage"] != 95.5 {
		t.Errorf("batch metrics = %v", runner.batch.Metrics)
	}
	if !strings.Contains(w.Body.String(), `"cycle_id":"test-cycle"`) {
		t.Errorf("body = %s, want cycle stats", w.Body.String())
	}
}

func TestIngestMetricsFromSamples(t *testing.T) {
	runner := &stubRunner{}
	r := newTestRouter(NewHandler(runner))

	body := `{"samples":[{"metric":{"__name__":"cpu_usage","host":"node-1"},"value":[1756641600,"97"]}]}`
	w := postJSON(t, r, "/v1/ingest/metrics", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if runner.batch.Metrics["cpu_usage"] != 97 {
		t.Errorf("batch metrics = %v, want sample folded in", runner.batch.Metrics)
	}
}

func TestIngestLogsAndTraces(t *testing.T) {
	runner := &stubRunner{}
	r := newTestRouter(NewHandler(runner))

	if w := postJSON(t, r, "/v1/ingest/logs", `{"logs":[{"level":"error","message":"db timeout"}]}`); w.Code != http.StatusOK {
		t.Fatalf("logs status = %d", w.Code)
	}
	if runner.source != model.DataSourceLog || len(runner.batch.Logs) != 1 {
		t.Errorf("log batch = %+v", runner.batch)
	}

	if w := postJSON(t, r, "/v1/ingest/traces", `{"spans":[{"operation_name":"checkout","status":"ERROR","duration":120}]}`); w.Code != http.StatusOK {
		t.Fatalf("traces status = %d", w.Code)
	}
	if runner.source != model.DataSourceTrace || len(runner.batch.Spans) != 1 {
		t.Errorf("trace batch = %+v", runner.batch)
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	runner := &stubRunner{}
	r := newTestRouter(NewHandler(runner))

	w := postJSON(t, r, "/v1/ingest/metrics", `{"metrics":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if runner.calls != 0 {
		t.Error("invalid payload must not reach the engine")
	}
}

func TestIngestRunnerFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("list active rules: connection refused")}
	r := newTestRouter(NewHandler(runner))

	w := postJSON(t, r, "/v1/ingest/metrics", `{"metrics":{"cpu_usage":95}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestIngestDuplicateBatch(t *testing.T) {
	runner := &stubRunner{}
	cache := &stubCache{}
	r := newTestRouter(NewHandlerWithCache(runner, cache))
	body := `{"batch_id":"b-1","metrics":{"cpu_usage":95}}`

	if w := postJSON(t, r, "/v1/ingest/metrics", body); w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}
	w := postJSON(t, r, "/v1/ingest/metrics", body)
	if w.Code != http.StatusOK {
		t.Fatalf("second delivery status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "duplicate batch ignored") {
		t.Errorf("body = %s", w.Body.String())
	}
	if runner.calls != 1 {
		t.Errorf("engine calls = %d, want 1", runner.calls)
	}
}

func TestIngestCacheFailureIsBestEffort(t *testing.T) {
	runner := &stubRunner{}
	cache := &stubCache{err: errors.New("redis down")}
	r := newTestRouter(NewHandlerWithCache(runner, cache))

	w := postJSON(t, r, "/v1/ingest/metrics", `{"batch_id":"b-2","metrics":{"cpu_usage":95}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want the batch processed despite the cache fault", w.Code)
	}
	if runner.calls != 1 {
		t.Errorf("engine calls = %d, want 1", runner.calls)
	}
}

func TestIngestAuth(t *testing.T) {
	ConfigureAuth("", "", "secret-token")
	t.Cleanup(func() { ConfigureAuth("", "", "") })

	runner := &stubRunner{}
	r := newTestRouter(NewHandler(runner))

	w := postJSON(t, r, "/v1/ingest/metrics", `{"metrics":{"cpu_usage":95}}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/ingest/metrics", strings.NewReader(`{"metrics":{"cpu_usage":95}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rec.Code)
	}
}
