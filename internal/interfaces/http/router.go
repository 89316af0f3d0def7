package http

import (
	"net/http"

	"github.com/dreschagin/deploy-board/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/handler"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/middleware"
	"github.com/dreschagin/deploy-board/pkg/config"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux               *http.ServeMux
	metricsAPIHandler *handler.MetricsAPIHandler
	environsHandler   *handler.EnvironsAPIHandler
	healthHandler     *handler.HealthHandler
	sessionHandler    *handler.SessionHandler
	metrics           *metrics.Metrics
	rateLimiter       *middleware.IPRateLimiter
	session           middleware.SessionConfig
	security          config.SecurityConfig
	logger            *logger.Logger
}

// NewRouter создает новый router. rateLimiter может быть nil.
func NewRouter(
	metricsAPIHandler *handler.MetricsAPIHandler,
	environsHandler *handler.EnvironsAPIHandler,
	healthHandler *handler.HealthHandler,
	sessionHandler *handler.SessionHandler,
	metrics *metrics.Metrics,
	rateLimiter *middleware.IPRateLimiter,
	session middleware.SessionConfig,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		metricsAPIHandler: metricsAPIHandler,
		environsHandler:   environsHandler,
		healthHandler:     healthHandler,
		sessionHandler:    sessionHandler,
		metrics:           metrics,
		rateLimiter:       rateLimiter,
		session:           session,
		security:          security,
		logger:            logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Probes
	rt.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteText(w, http.StatusOK, "ok")
	})
	rt.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteText(w, http.StatusOK, "ready")
	})
	rt.mux.Handle("GET /metrics", rt.metrics.Handler())

	rt.mux.HandleFunc("GET /health_check", rt.healthHandler.HealthCheck)
	rt.mux.HandleFunc("GET /loggedout", rt.sessionHandler.LoggedOut)
	rt.api("GET /api/v1/session", rt.sessionHandler.Status)

	// Charts, alarms, group metrics
	m := rt.metricsAPIHandler
	rt.api("GET /api/v1/envs/{envName}/{stageName}/service-metrics", m.GetServiceMetrics)
	rt.api("GET /api/v1/envs/{envName}/{stageName}/service-alarms", m.GetServiceAlarms)
	rt.api("GET /api/v1/site-health-metrics", m.GetSiteHealthMetrics)
	rt.api("POST /api/v1/validate-metrics-url", m.ValidateMetricsURL)
	rt.api("GET /api/v1/groups/{groupName}/latency-metrics", m.GetLatencyMetrics)
	rt.api("GET /api/v1/groups/{groupName}/launch-rate", m.GetLaunchRate)
	rt.api("GET /api/v1/groups/{groupName}/pas-metrics", m.GetPASMetrics)

	// Environment facade
	e := rt.environsHandler
	rt.api("GET /api/v1/envs", e.ListEnvironments)
	rt.api("POST /api/v1/envs", e.CreateEnvironment)
	rt.api("GET /api/v1/envs/names", e.ListEnvironmentNames)
	rt.api("GET /api/v1/envs/sidecars", e.GetSidecarEnvironments)
	rt.api("POST /api/v1/envs/actions", e.SetAllChanges)
	rt.api("GET /api/v1/envs/{id}", e.GetEnvironment)
	rt.api("GET /api/v1/envs/{envName}/{stageName}", e.GetEnvironmentByStage)
	rt.api("PUT /api/v1/envs/{envName}/{stageName}", e.UpdateBasicConfig)
	rt.api("DELETE /api/v1/envs/{envName}/{stageName}", e.DeleteEnvironment)
	rt.api("/api/v1/envs/{envName}/{stageName}/capacity", e.Capacity)
	rt.api("GET /api/v1/envs/{envName}/{stageName}/config/{facet}", e.Config)
	rt.api("PUT /api/v1/envs/{envName}/{stageName}/config/{facet}", e.Config)
	rt.api("GET /api/v1/envs/{envName}/{stageName}/history", e.GetConfigHistory)
	rt.api("POST /api/v1/envs/{envName}/{stageName}/actions", e.SetChanges)
	rt.api("PUT /api/v1/envs/{envName}/{stageName}/hosts/{action}", e.HostAction)
	rt.api("POST /api/v1/envs/{envName}/{stageName}/external_id", e.SetExternalID)
	rt.api("POST /api/v1/envs/{envName}/{stageName}/identifier", e.CreateIdentifier)
	rt.api("GET /api/v1/envs/{envName}/{stageName}/pindeploy", e.GetPinDeploy)
	rt.api("GET /api/v1/projects/{projectName}/console-url", e.ProjectConsoleURL)

	// Метрики должны видеть r.Pattern, поэтому оборачивают mux напрямую
	var handler http.Handler = rt.metrics.Middleware(rt.mux)
	handler = middleware.SessionToken(rt.session, rt.logger)(handler)
	handler = middleware.Compression(handler)
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

func (rt *Router) api(pattern string, fn http.HandlerFunc) {
	var h http.Handler = fn
	h = middleware.OriginCheck(rt.security.AllowedOrigins, rt.logger)(h)
	if rt.rateLimiter != nil {
		h = middleware.RateLimit(rt.rateLimiter)(h)
	}
	rt.mux.Handle(pattern, h)
}
