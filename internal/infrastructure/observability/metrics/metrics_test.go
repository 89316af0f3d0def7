package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/deploy-board/internal/domain/series"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/envs/{envName}/{stageName}/service/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := m.Middleware(mux)

	for _, path := range []string{"/api/v1/envs/a/prod/service/metrics", "/api/v1/envs/b/dev/service/metrics"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assertContains(t, scrape(t, m),
		`deployboard_requests_total{method="GET",route="GET /api/v1/envs/{envName}/{stageName}/service/metrics",status="418"} 2`,
		`deployboard_requests_total{method="GET",route="other",status="404"} 1`,
	)
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordFetch("alarm", series.StatusFailed)
	m.RecordFetch("alarm", series.StatusFailed)
	m.RecordBackendError(502)
	m.RecordRateLimitDrop()

	assertContains(t, scrape(t, m),
		`deployboard_metric_fetch_total{kind="alarm",status="failed"} 2`,
		`deployboard_backend_errors_total{status="502"} 1`,
		`deployboard_ratelimit_dropped_total 1`,
	)
}
