package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	applicationPort "github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/application/usecase"

	// Infrastructure
	"github.com/dreschagin/deploy-board/internal/infrastructure/deployapi"
	natsInfra "github.com/dreschagin/deploy-board/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/deploy-board/internal/infrastructure/metricsource"
	"github.com/dreschagin/deploy-board/internal/infrastructure/nimbus"
	"github.com/dreschagin/deploy-board/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/deploy-board/internal/infrastructure/observability/metrics"
	redisSession "github.com/dreschagin/deploy-board/internal/infrastructure/session/redis"
	"github.com/dreschagin/deploy-board/internal/infrastructure/sitemetrics"
	s3storage "github.com/dreschagin/deploy-board/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/deploy-board/internal/interfaces/http"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/handler"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/deploy-board/pkg/config"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	var log *logger.Logger
	if cfg.AppEnv == "development" {
		log = logger.NewDevelopment(cfg.LogLevel)
	} else {
		log = logger.New(cfg.LogLevel)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Starting deploy board", "env", cfg.AppEnv)

	awsCfg := cloudwatch.AWSConfig{
		Region:          cfg.CloudWatch.Region,
		Endpoint:        cfg.CloudWatch.Endpoint,
		AccessKeyID:     cfg.CloudWatch.AccessKeyID,
		SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
	}

	// 3. CloudWatch Logs
	var logsPublisher *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsPublisher(context.Background(), cloudwatch.LogsPublisherConfig{
			AWS:           awsCfg,
			LogGroupName:  cfg.CloudWatch.LogGroupName,
			LogStreamName: cfg.CloudWatch.LogStreamName,
			AutoCreate:    true,
		})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsPublisher = publisherImpl
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized", "group", cfg.CloudWatch.LogGroupName)
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 4. Метрики: Prometheus и, опционально, CloudWatch
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics := metrics.New(registry)

	recorders := applicationPort.FetchRecorders{promMetrics}
	var fetchMetrics *cloudwatch.FetchMetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewFetchMetricsPublisher(context.Background(), cloudwatch.FetchMetricsConfig{
			AWS:               awsCfg,
			Namespace:         cfg.CloudWatch.Namespace,
			DefaultDimensions: map[string]string{"env": cfg.AppEnv},
		}, log)
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		fetchMetrics = publisherImpl
		recorders = append(recorders, fetchMetrics)
		log.Info("CloudWatch fetch metrics initialized", "namespace", cfg.CloudWatch.Namespace)
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// 5. Dependency Injection - Infrastructure Layer

	backendHTTP := &http.Client{Timeout: cfg.Backend.Timeout}
	deployClient := deployapi.NewClient(deployapi.ClientConfig{
		BaseURL:          cfg.Backend.DeployAPIURL,
		Timeout:          cfg.Backend.Timeout,
		MaxResponseBytes: cfg.Backend.MaxResponseBytes,
		OnError:          promMetrics.RecordBackendError,
	}, backendHTTP, log)
	autoscalingClient := deployapi.NewClient(deployapi.ClientConfig{
		BaseURL:          cfg.Backend.AutoscalingAPIURL,
		Timeout:          cfg.Backend.Timeout,
		MaxResponseBytes: cfg.Backend.MaxResponseBytes,
		OnError:          promMetrics.RecordBackendError,
	}, backendHTTP, log)

	environs := deployapi.NewEnvirons(deployClient)
	autoscaling := deployapi.NewAutoscaling(autoscalingClient)
	metricSource := metricsource.NewHTTPFetcher(cfg.Metrics.FetchTimeout, cfg.Metrics.MaxResponseBytes)

	var objects sitemetrics.ObjectReader
	if strings.HasPrefix(cfg.Metrics.SiteMetricsConfig, "s3://") {
		reader, initErr := s3storage.NewObjectReader(context.Background(), s3storage.Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if initErr != nil {
			log.Error("Failed to initialize S3 object reader", initErr)
			os.Exit(1)
		}
		objects = reader
	}

	siteMetrics, err := sitemetrics.Load(context.Background(), cfg.Metrics.SiteMetricsConfig, objects)
	if err != nil {
		log.Error("Failed to load site metrics", err, "location", cfg.Metrics.SiteMetricsConfig)
		os.Exit(1)
	}
	log.Info("Site metrics loaded", "count", len(siteMetrics))

	var sessionStore applicationPort.SessionStore
	if cfg.Session.Enabled {
		store, initErr := redisSession.NewSessionStore(context.Background(), redisSession.Config{
			Addr:      cfg.Session.Addr(),
			Password:  cfg.Session.Password,
			DB:        cfg.Session.DB,
			KeyPrefix: cfg.Session.KeyPrefix,
			Timeout:   cfg.Session.Timeout,
		})
		if initErr != nil {
			log.Error("Failed to connect to session store", initErr)
			os.Exit(1)
		}
		defer store.Close()
		sessionStore = store
		log.Info("Redis session store initialized", "addr", cfg.Session.Addr())
	} else {
		log.Warn("Session store is disabled, only bearer tokens are accepted")
	}

	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewAuditPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without audit events", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS audit publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS audit publishing is disabled")
	}

	// 6. Dependency Injection - Application Layer (Use Cases)

	checkHealthUC := usecase.NewCheckHealthUseCase(cfg.Metrics.HealthCheckURL, metricSource, recorders, log)
	serviceMetricsUC := usecase.NewGetServiceMetricsUseCase(environs, metricSource, recorders, siteMetrics, log)
	serviceAlarmsUC := usecase.NewGetServiceAlarmsUseCase(environs, metricSource, recorders, log)
	validateURLUC := usecase.NewValidateMetricsURLUseCase(cfg.Metrics.APIPrefix, metricSource, recorders, log)
	groupMetricsUC := usecase.NewGetGroupMetricsUseCase(environs, autoscaling, cfg.Metrics.DefaultStartTime, log)
	auditUC := usecase.NewRecordAuditEventUseCase(eventPublisher, cfg.NATS.SubjectPrefix, log)

	var stageIdentifiers usecase.StageIdentifiers = usecase.DisabledStageIdentifiers{}
	if cfg.Nimbus.Enabled {
		nimbusAPI := deployapi.NewClient(deployapi.ClientConfig{
			BaseURL: cfg.Nimbus.APIURL,
			Timeout: cfg.Nimbus.Timeout,
			OnError: promMetrics.RecordBackendError,
		}, &http.Client{Timeout: cfg.Nimbus.Timeout}, log)
		stageIdentifiers = usecase.NewCreateStageIdentifierUseCase(
			environs,
			nimbus.NewClient(nimbusAPI, cfg.Nimbus.ConsoleURL),
			log,
		)
		log.Info("Nimbus identifiers enabled", "url", cfg.Nimbus.APIURL)
	}

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	metricsAPIHandler := handler.NewMetricsAPIHandler(serviceMetricsUC, serviceAlarmsUC, validateURLUC, groupMetricsUC, log)
	environsHandler := handler.NewEnvironsAPIHandler(environs, stageIdentifiers, auditUC, log)
	healthHandler := handler.NewHealthHandler(checkHealthUC)
	sessionHandler := handler.NewSessionHandler(sessionStore, cfg.Security.SessionCookieName, cfg.Security.SecureCookies, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rateLimiter *middleware.IPRateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, promMetrics.RecordRateLimitDrop)
		go rateLimiter.Run(ctx)
		log.Info("Rate limiting enabled", "rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	}

	// Router
	router := httpInterface.NewRouter(
		metricsAPIHandler,
		environsHandler,
		healthHandler,
		sessionHandler,
		promMetrics,
		rateLimiter,
		middleware.SessionConfig{
			CookieName:    cfg.Security.SessionCookieName,
			SecureCookies: cfg.Security.SecureCookies,
			Store:         sessionStore,
		},
		cfg.Security,
		log,
	)

	// 8. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 9. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	if fetchMetrics != nil {
		log.Info("Flushing CloudWatch fetch metrics...")
		if err := fetchMetrics.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	log.Info("Server stopped gracefully")

	if logsPublisher != nil {
		if err := logsPublisher.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush CloudWatch logs: %v\n", err)
		}
	}
}
