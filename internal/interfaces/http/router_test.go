package http

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/application/usecase"
	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/infrastructure/deployapi"
	"github.com/dreschagin/deploy-board/internal/infrastructure/metricsource"
	"github.com/dreschagin/deploy-board/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/handler"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/middleware"
	"github.com/dreschagin/deploy-board/pkg/config"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const testToken = "backend-token"

// fakeBackend plays the deploy backend, the autoscaling service and the
// metrics source at once.
type fakeBackend struct {
	mu    sync.Mutex
	url   string
	auths []string
	fail  bool
}

func (b *fakeBackend) setFail(fail bool) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.auths = append(b.auths, r.Header.Get("Authorization"))
	fail := b.fail
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
		return
	}

	switch r.URL.Path {
	case "/v1/envs/web/prod/metrics":
		_, _ = w.Write([]byte(`[{"title":"qps","url":"` + b.url + `/tsdb/qps"}]`))
	case "/v1/envs/web/prod/alarms":
		_, _ = w.Write([]byte(`[{"name":"latency","alarmUrl":"` + b.url + `/alerts/latency"}]`))
	case "/v1/envs/web/prod":
		_, _ = w.Write([]byte(`{"envName":"web","stageName":"prod","state":"NORMAL"}`))
	case "/v1/envs/":
		_, _ = w.Write([]byte(`[{"id":"e1","envName":"web","stageName":"prod"}]`))
	case "/v1/groups/web-asg/info":
		_, _ = w.Write([]byte(`{"groupInfo":{"groupName":"web-asg","launchLatencyTh":600}}`))
	case "/v1/metrics/latency", "/v1/metrics/raw_metrics":
		_, _ = w.Write([]byte(`[{"timestamp":200,"value":2},{"timestamp":100,"value":1}]`))
	case "/tsdb/qps":
		_, _ = w.Write([]byte(`{"data":[{"datapoints":[[100,3],[200,null]]}]}`))
	case "/alerts/latency":
		_, _ = w.Write([]byte(`{"a":{"triggered":true}}`))
	case "/healthcheck":
		_, _ = w.Write([]byte(`true`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

type testServer struct {
	*httptest.Server
	backend *fakeBackend
}

func newTestServer(t *testing.T, rateLimiter *middleware.IPRateLimiter) *testServer {
	t.Helper()

	backend := &fakeBackend{}
	backendServer := httptest.NewServer(backend)
	t.Cleanup(backendServer.Close)
	backend.url = backendServer.URL

	log := logger.New("error")
	promMetrics := metrics.New(prometheus.NewRegistry())
	recorder := port.FetchRecorders{promMetrics}

	client := deployapi.NewClient(deployapi.ClientConfig{
		BaseURL: backendServer.URL + "/v1",
		OnError: promMetrics.RecordBackendError,
	}, backendServer.Client(), log)
	environs := deployapi.NewEnvirons(client)
	autoscaling := deployapi.NewAutoscaling(client)
	source := metricsource.NewHTTPFetcher(2*time.Second, 0)

	metricsHandler := handler.NewMetricsAPIHandler(
		usecase.NewGetServiceMetricsUseCase(environs, source, recorder, []entity.MetricConfig{
			{Title: "site qps", URL: backendServer.URL + "/tsdb/qps"},
		}, log),
		usecase.NewGetServiceAlarmsUseCase(environs, source, recorder, log),
		usecase.NewValidateMetricsURLUseCase(backendServer.URL+"/tsdb/", source, recorder, log),
		usecase.NewGetGroupMetricsUseCase(environs, autoscaling, "-1d", log),
		log,
	)
	environsHandler := handler.NewEnvironsAPIHandler(environs, usecase.DisabledStageIdentifiers{}, nil, log)
	healthHandler := handler.NewHealthHandler(usecase.NewCheckHealthUseCase(backendServer.URL+"/healthcheck", source, recorder, log))
	sessionHandler := handler.NewSessionHandler(nil, "deploy_board_session", false, log)

	router := NewRouter(
		metricsHandler,
		environsHandler,
		healthHandler,
		sessionHandler,
		promMetrics,
		rateLimiter,
		middleware.SessionConfig{CookieName: "deploy_board_session"},
		config.SecurityConfig{AllowedOrigins: []string{"https://deploy.example.com"}},
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return &testServer{Server: server, backend: backend}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

var bearer = map[string]string{"Authorization": "Bearer " + testToken}

func TestE2EProbes(t *testing.T) {
	server := newTestServer(t, nil)

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready", "/health_check": "OK"} {
		resp := server.do(t, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusOK || readBody(t, resp) != want {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		if resp.Header.Get(middleware.RequestIDHeader) == "" {
			t.Fatalf("%s: missing request id header", path)
		}
	}
}

func TestE2EHealthCheckFailsWithBackend(t *testing.T) {
	server := newTestServer(t, nil)
	server.backend.setFail(true)

	resp := server.do(t, http.MethodGet, "/health_check", nil, nil)
	if resp.StatusCode != http.StatusInternalServerError || readBody(t, resp) != "FAILED" {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestE2EServiceMetricsForwardsToken(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodGet, "/api/v1/envs/web/prod/service-metrics", nil, bearer)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != `{"html":{"qps":[[100,3]]}}` {
		t.Fatalf("body = %s", body)
	}

	server.backend.mu.Lock()
	defer server.backend.mu.Unlock()
	if len(server.backend.auths) == 0 || server.backend.auths[0] != "Bearer "+testToken {
		t.Fatalf("backend auth headers = %v", server.backend.auths)
	}
}

func TestE2EMissingTokenIsUnauthorized(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodGet, "/api/v1/envs/web/prod", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestE2EFacadePassThrough(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodGet, "/api/v1/envs/web/prod", nil, bearer)
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env["state"] != "NORMAL" || env["envName"] != "web" {
		t.Fatalf("environment = %v", env)
	}

	resp = server.do(t, http.MethodGet, "/api/v1/envs/web/prod/pindeploy", nil, bearer)
	if resp.StatusCode != http.StatusNotFound || readBody(t, resp) != `{"error":"not found"}` {
		t.Fatalf("backend 404 not passed through: %d", resp.StatusCode)
	}
}

func TestE2EServiceAlarmsFragment(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodGet, "/api/v1/envs/web/prod/service-alarms", nil, bearer)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `data-has-alarm="true"`) {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestE2EGroupLatency(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodGet, "/api/v1/groups/web-asg/latency-metrics", nil, bearer)
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["launch_latency_th"] != float64(600) {
		t.Fatalf("launch_latency_th = %v", got["launch_latency_th"])
	}
	launch, ok := got["launch_latency.web.prod"].([]any)
	if !ok || len(launch) != 2 || launch[0].([]any)[0] != float64(100) {
		t.Fatalf("launch series = %v", got["launch_latency.web.prod"])
	}
}

func TestE2EValidateMetricsURLRejectsForeignPrefix(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodPost, "/api/v1/validate-metrics-url",
		strings.NewReader("newEntryValue=http%3A%2F%2Fevil.example%2Fq"),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if body := readBody(t, resp); body != `{"result":false}` {
		t.Fatalf("body = %s", body)
	}
}

func TestE2ECrossOriginMutationRejected(t *testing.T) {
	server := newTestServer(t, nil)

	headers := map[string]string{
		"Authorization": "Bearer " + testToken,
		"Origin":        "https://evil.example.com",
	}
	resp := server.do(t, http.MethodDelete, "/api/v1/envs/web/prod", nil, headers)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestE2ERateLimit(t *testing.T) {
	server := newTestServer(t, middleware.NewIPRateLimiter(0.001, 1, nil))

	first := server.do(t, http.MethodGet, "/api/v1/site-health-metrics", nil, nil)
	second := server.do(t, http.MethodGet, "/api/v1/site-health-metrics", nil, nil)
	if first.StatusCode != http.StatusOK || second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("statuses = %d, %d", first.StatusCode, second.StatusCode)
	}

	healthz := server.do(t, http.MethodGet, "/healthz", nil, nil)
	if healthz.StatusCode != http.StatusOK {
		t.Fatalf("health endpoints must not be rate limited, got %d", healthz.StatusCode)
	}
}

func TestE2EGzip(t *testing.T) {
	server := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/site-health-metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := server.Client().Transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q", resp.Header.Get("Content-Encoding"))
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	plain, _ := io.ReadAll(gz)
	if string(plain) != `{"html":{"site qps":[[100,3]]}}` {
		t.Fatalf("body = %s", plain)
	}
}

func TestE2EPrometheusExposition(t *testing.T) {
	server := newTestServer(t, nil)
	server.backend.setFail(true)

	server.do(t, http.MethodGet, "/api/v1/envs/web/prod/service-metrics", nil, bearer)
	server.do(t, http.MethodGet, "/health_check", nil, nil)

	resp := server.do(t, http.MethodGet, "/metrics", nil, nil)
	body := readBody(t, resp)
	for _, want := range []string{
		`deployboard_requests_total{method="GET",route="GET /api/v1/envs/{envName}/{stageName}/service-metrics",status="503"} 1`,
		`deployboard_backend_errors_total{status="503"} 1`,
		`deployboard_metric_fetch_total{kind="health",status="failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
}

func TestE2EEnvironmentBodyIsForwardedVerbatim(t *testing.T) {
	server := newTestServer(t, nil)

	resp := server.do(t, http.MethodGet, "/api/v1/envs/web/prod", nil, bearer)
	if body := readBody(t, resp); body != `{"envName":"web","stageName":"prod","state":"NORMAL"}` {
		t.Fatalf("body = %s", body)
	}

	resp = server.do(t, http.MethodGet, "/api/v1/projects/pinboard/console-url", nil, bearer)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(readBody(t, resp)) != `{"url":""}` {
		t.Fatalf("console url status = %d", resp.StatusCode)
	}
}
