// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package interview assembles and runs the read-only observability facade
// over the task mesh.
//
// The service answers "what is the state of this work" questions by
// resolving each query against the cheapest source that can still satisfy
// the caller's freshness requirement: projection cache, then ledger
// mirror, then a live component poll, with the global ledger available
// only behind an explicit opt-in. It never initiates work, routes work,
// or mutates any system it observes.
//
// # Composition
//
// New wires the full object graph: structured logging, tracing, metrics,
// the API key store, the audit journal, the optional cost exporter, the
// event stream hub, the source manager with its mesh clients, and the
// HTTP router. Deployment-specific identity and observer extensions are
// injected through extensions.ServiceOptions. Run starts the server and
// blocks; resources are released when it returns.
package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/audit"
	"github.com/PStryder/InterView/services/interview/auth"
	"github.com/PStryder/InterView/services/interview/config"
	"github.com/PStryder/InterView/services/interview/costs"
	"github.com/PStryder/InterView/services/interview/handlers"
	"github.com/PStryder/InterView/services/interview/middleware"
	"github.com/PStryder/InterView/services/interview/observability"
	"github.com/PStryder/InterView/services/interview/routes"
	"github.com/PStryder/InterView/services/interview/sources"
	"github.com/PStryder/InterView/services/interview/stream"
	"github.com/PStryder/InterView/services/mesh"
)

// Version is the service version reported by /health, the root card, and
// the interview.health MCP tool.
const Version = "0.1.0"

// tracerServiceName identifies this service in exported spans.
const tracerServiceName = "interview-service"

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the runnable facade.
type Service interface {
	// Run starts the HTTP server and blocks until it stops. Resources
	// are released before Run returns.
	Run() error

	// Router exposes the configured engine for integration tests.
	Router() *gin.Engine
}

// =============================================================================
// Implementation
// =============================================================================

// service composes the object graph behind Service.
type service struct {
	cfg    *config.Config
	opts   extensions.ServiceOptions
	logger *logging.Logger
	router *gin.Engine

	keys     *auth.KeyStore
	journal  *audit.Journal
	exporter *costs.Exporter
	hub      *stream.Hub
	manager  *sources.SourceManager
	limiter  *middleware.ClientLimiter
	prober   *mesh.Probe

	endpoints []mesh.Endpoint

	watchCancel   context.CancelFunc
	tracerCleanup func(context.Context)
}

// New builds a ready-to-run Service from a validated configuration.
//
// opts injects the extension seams: the identity provider consulted after
// key verification and an extra observer joined into the audit fan-out.
// Nil opts selects extensions.DefaultOptions.
//
// Initialization order: logging, tracing, metrics, key store, audit
// journal, cost exporter, stream hub, sources, router. A failure at any
// step releases what was already built and returns the error; the process
// should not start with a partially wired facade.
func New(cfg *config.Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{cfg: cfg}

	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	s.logger = logging.New(logging.Config{
		Level:   level,
		Service: "interview",
		JSON:    true,
	})

	cleanup, err := s.initTracer()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	observability.InitMetrics()

	if err := s.initKeyStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("initialize key store: %w", err)
	}

	if err := s.initObservers(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("initialize observers: %w", err)
	}

	if err := s.initSources(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("initialize sources: %w", err)
	}

	if cfg.RateLimitEnabled {
		s.limiter = middleware.NewClientLimiter(cfg.RateLimitRequestsPerMinute)
	}

	s.prober = mesh.NewProbe(cfg.ComponentPollTimeout())
	s.endpoints = meshEndpoints(cfg)

	s.initRouter()

	s.logger.Info("InterView facade initialized",
		"version", Version,
		"instance_id", cfg.InstanceID,
		"doctrine", handlers.Doctrine)
	s.logger.Info("Configured sources",
		"ledger_mirror", cfg.LedgerMirrorURL != "",
		"asyncgate", cfg.AsyncGateURL != "",
		"depot_backend", cfg.DepotBackend,
		"depot_configured", cfg.DepotGateURL != "" || cfg.DepotGCSBucket != "",
		"global_ledger_enabled", cfg.AllowGlobalLedger,
		"audit_journal", cfg.AuditDir != "",
		"cost_exporter", cfg.CostExporterEnabled())

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	defer s.cleanup()

	addr := s.cfg.Addr()
	s.logger.Info("Starting InterView server", "addr", addr)
	return s.router.Run(addr)
}

// Router returns the configured engine.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer selects the span exporter by configuration: OTLP over gRPC
// when a collector endpoint is set, stdout in debug mode, otherwise the
// global no-op provider stays in place.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	switch {
	case s.cfg.OTLPEndpoint != "":
		conn, err := grpc.NewClient(s.cfg.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("create gRPC connection: %w", err)
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("create OTLP exporter: %w", err)
		}

	case s.cfg.Debug:
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}

	default:
		return func(context.Context) {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(tracerServiceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			s.logger.Error("Tracer shutdown failed", "error", err)
		}
	}
	return cleanup, nil
}

// initKeyStore loads the API key set and starts the key file watcher.
func (s *service) initKeyStore() error {
	keys, err := auth.NewKeyStore(s.cfg.APIKey, s.cfg.APIKeysFile, s.cfg.InsecureMemory, s.logger)
	if err != nil {
		return err
	}
	s.keys = keys
	s.logger.Info("API key store initialized",
		"keys", keys.KeyCount(),
		"secure_memory", keys.Secure())

	if s.cfg.APIKeysFile != "" {
		ctx, cancel := context.WithCancel(context.Background())
		s.watchCancel = cancel
		go func() {
			if err := keys.Watch(ctx); err != nil {
				s.logger.Error("Key file watcher stopped", "error", err)
			}
		}()
	}
	return nil
}

// initObservers opens the audit journal, the optional cost exporter, and
// the stream hub. All three consume the same per-resolution events.
func (s *service) initObservers() error {
	journal, err := audit.Open(audit.Config{
		Dir:       s.cfg.AuditDir,
		Retention: s.cfg.AuditRetention(),
		Logger:    s.logger,
		Metrics:   observability.DefaultMetrics,
	})
	if err != nil {
		return err
	}
	s.journal = journal

	if s.cfg.CostExporterEnabled() {
		s.exporter = costs.New(costs.Config{
			URL:    s.cfg.InfluxURL,
			Token:  s.cfg.InfluxToken,
			Org:    s.cfg.InfluxOrg,
			Bucket: s.cfg.InfluxBucket,
			Logger: s.logger,
		})
	}

	s.hub = stream.NewHub(s.logger, observability.DefaultMetrics)
	return nil
}

// observer fans resolution events out to every configured sink, the
// injected extension observer included.
func (s *service) observer() extensions.ResolutionObserver {
	observers := extensions.MultiObserver{s.journal, s.hub}
	if s.exporter != nil {
		observers = append(observers, s.exporter)
	}
	if s.opts.Observer != nil {
		observers = append(observers, s.opts.Observer)
	}
	return observers
}

// initSources builds the mesh clients and the source manager around them.
// Clients for unconfigured endpoints are still constructed; their calls
// fail with a not-configured unavailability and resolution degrades per
// operation.
func (s *service) initSources() error {
	cfg := s.cfg

	cache := sources.NewProjectionCache(cfg.ProjectionCacheTTL())
	mirror := mesh.NewReceiptGateClient(cfg.LedgerMirrorURL)

	asyncGate := mesh.NewAsyncGateClient(cfg.AsyncGateURL).
		WithTimeout(cfg.ComponentPollTimeout()).
		WithAPIKey(cfg.AsyncGateAPIKey)
	poller := sources.NewComponentPoller(asyncGate, sources.AsyncGateComponent,
		cfg.ComponentPollRateLimitPerMinute, cfg.ComponentPollCacheTTL())

	var storage sources.ArtifactIndex
	if cfg.DepotBackend == "gcs" {
		bucket, err := mesh.NewDepotBucket(context.Background(),
			cfg.DepotGCSBucket, cfg.DepotGCSCredentials)
		if err != nil {
			return fmt.Errorf("open depot bucket: %w", err)
		}
		storage = bucket
	} else {
		storage = mesh.NewDepotGateClient(cfg.DepotGateURL).
			WithAPIKey(cfg.DepotGateAPIKey)
	}

	global := mesh.NewGlobalLedgerClient(cfg.GlobalLedgerURL)

	s.manager = sources.NewSourceManager(sources.Config{
		DefaultLimit:           cfg.DefaultLimit,
		MaxLimit:               cfg.MaxLimit,
		DefaultTimeWindowHours: cfg.DefaultTimeWindowHours,
		MaxTimeWindowHours:     cfg.MaxTimeWindowHours,
		AllowGlobalLedger:      cfg.AllowGlobalLedger,
	}, sources.Deps{
		Cache:    cache,
		Mirror:   mirror,
		Poller:   poller,
		Storage:  storage,
		Global:   global,
		Observer: s.observer(),
		Logger:   s.logger,
	})
	return nil
}

// meshEndpoints lists the components the mesh health sweep probes,
// configured or not. Unconfigured components report configured=false so
// the sweep shows the whole expected topology.
func meshEndpoints(cfg *config.Config) []mesh.Endpoint {
	return []mesh.Endpoint{
		{Component: "ReceiptGate", URL: cfg.LedgerMirrorURL},
		{Component: "AsyncGate", URL: cfg.AsyncGateURL},
		{Component: "DepotGate", URL: cfg.DepotGateURL},
		{Component: "MemoryGate", URL: cfg.MemoryGateURL},
		{Component: "GlobalLedger", URL: cfg.GlobalLedgerURL},
	}
}

// initRouter builds the engine with engine-wide middleware, then
// registers every surface.
func (s *service) initRouter() {
	if s.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(tracerServiceName))
	router.Use(middleware.CORS(middleware.CORSConfig{
		Origins:          s.cfg.CORSAllowedOrigins,
		AllowCredentials: s.cfg.CORSAllowCredentials,
		Methods:          s.cfg.CORSAllowedMethods,
		Headers:          s.cfg.CORSAllowedHeaders,
	}))
	router.Use(middleware.RequestMetrics(observability.DefaultMetrics))

	routes.SetupRoutes(router, routes.Deps{
		Resolver:         s.manager,
		Keys:             s.keys,
		Identity:         s.opts.AuthProvider,
		Limiter:          s.limiter,
		Metrics:          observability.DefaultMetrics,
		Hub:              s.hub,
		Audit:            s.journal,
		Prober:           s.prober,
		Endpoints:        s.endpoints,
		AllowInsecureDev: s.cfg.AllowInsecureDev,
		Version:          Version,
		InstanceID:       s.cfg.InstanceID,
		Logger:           s.logger,
	})
	s.router = router
}

// cleanup releases every resource the service holds. Safe to call with a
// partially built service; each step guards its own nil.
func (s *service) cleanup() {
	if s.watchCancel != nil {
		s.watchCancel()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("Audit journal close error", "error", err)
		}
	}
	if s.exporter != nil {
		s.exporter.Close()
	}
	if s.keys != nil {
		s.keys.Close()
		auth.PurgeSecrets()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
