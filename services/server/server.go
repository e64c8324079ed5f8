// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server assembles the MoA orchestrator and its HTTP surface
// from a config.Config. Both binaries build on it: moa-server runs the
// Gin router, the moa CLI borrows NewOrchestrator for in-process runs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianMoA/pkg/config"
	"github.com/AleutianAI/AleutianMoA/pkg/workspace"
	"github.com/AleutianAI/AleutianMoA/services/llm"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/dashboard"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/runner"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/tools"
	"github.com/AleutianAI/AleutianMoA/services/rag"
	"github.com/AleutianAI/AleutianMoA/services/translation"
)

// Service is the long-running HTTP server around the orchestrator.
type Service interface {
	// Run starts the HTTP server and blocks until it stops.
	Run() error

	// Router exposes the configured Gin engine for integration tests.
	Router() *gin.Engine
}

type service struct {
	config        config.Config
	router        *gin.Engine
	hub           *dashboard.Hub
	cleanupFns    []func()
	tracerCleanup func(context.Context)
}

// New builds a ready-to-run server from the given configuration.
func New(cfg config.Config) (Service, error) {
	s := &service{config: cfg}

	cleanup, err := initTracer(cfg.Server.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	s.hub = dashboard.NewHub(nil)

	orch, closeDeps, err := NewOrchestrator(context.Background(), cfg, s.hub, nil)
	if err != nil {
		s.tracerCleanup(context.Background())
		return nil, err
	}
	s.cleanupFns = append(s.cleanupFns, closeDeps)

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("moa-server"))
	handlers.SetupRoutes(s.router, orch, s.hub)

	return s, nil
}

func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	slog.Info("Starting MoA server", "port", s.config.Server.Port)

	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func (s *service) cleanup() {
	for _, fn := range s.cleanupFns {
		fn()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// NewOrchestrator wires an Orchestrator from the configuration. The
// returned cleanup function closes the translation cache and stops the
// document watcher; call it when the orchestrator is no longer needed.
func NewOrchestrator(ctx context.Context, cfg config.Config,
	notifier orchestrator.TaskNotifier, logger *slog.Logger) (*orchestrator.Orchestrator, func(), error) {

	if logger == nil {
		logger = slog.Default()
	}

	var cleanupFns []func()
	cleanup := func() {
		for _, fn := range cleanupFns {
			fn()
		}
	}

	client, err := newBackendClient(cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	gateway := llm.NewGateway(client, logger)
	if cfg.Backend.ReasonerBaseURL != "" {
		reasoner, err := llm.NewLlamaCppClient(cfg.Backend.ReasonerBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("reasoner backend: %w", err)
		}
		gateway.WithReasoner(reasoner)
	}

	ws, err := workspace.New(cfg.Workspace.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("workspace: %w", err)
	}

	engine, err := newEngine(ctx, cfg.RAG, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RAG.WatchDir != "" {
		watchCtx, stop := context.WithCancel(context.Background())
		watcher, err := rag.NewWatcher(cfg.RAG.WatchDir, engine, 2*time.Second, logger)
		if err != nil {
			stop()
			return nil, nil, fmt.Errorf("document watcher: %w", err)
		}
		go watcher.Run(watchCtx)
		cleanupFns = append(cleanupFns, stop)
	}

	executor := tools.NewExecutor(tools.ExecutorConfig{
		WeatherBaseURL: cfg.Tools.WeatherBaseURL,
		SearchBaseURL:  cfg.Tools.SearchBaseURL,
		WikiBaseURL:    cfg.Tools.WikiBaseURL,
		Shell:          cfg.Tools.Shell,
	}, logger)
	dispatcher := tools.NewDispatcher(executor, tools.NewRepairer(gateway, logger), logger)

	translator, closeCache, err := newTranslator(cfg.Translation, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if closeCache != nil {
		cleanupFns = append(cleanupFns, closeCache)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Engine:     engine,
		Workspace:  ws,
		Translator: translator,
		Notifier:   notifier,
		Runner: runner.Config{
			MaxWorkers:  cfg.Runner.MaxWorkers,
			TaskTimeout: cfg.Runner.TaskTimeout(),
		},
		Logger: logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return orch, cleanup, nil
}

func newBackendClient(cfg config.Backend) (llm.LLMClient, error) {
	switch cfg.Type {
	case "local":
		return llm.NewLlamaCppClient(cfg.BaseURL)
	case "openai":
		return llm.NewOpenAIClient()
	case "mock":
		return llm.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

func newEngine(ctx context.Context, cfg config.RAG, logger *slog.Logger) (rag.Engine, error) {
	if cfg.WeaviateURL == "" {
		return rag.NewMemoryEngine(logger), nil
	}

	parsed, err := url.Parse(cfg.WeaviateURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid Weaviate URL: %s", cfg.WeaviateURL)
	}
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	return rag.NewWeaviateEngine(ctx, client, logger)
}

func newTranslator(cfg config.Translation,
	logger *slog.Logger) (*translation.Pipeline, func(), error) {

	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return nil, nil, nil
	}

	var inner translation.Translator = translation.NewWebTranslator("", logger)
	if cfg.CacheDir != "" {
		cached, err := translation.NewCachedTranslator(inner, cfg.CacheDir, 0, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("translation cache: %w", err)
		}
		return translation.NewPipeline(cached, logger), func() {
			if err := cached.Close(); err != nil {
				logger.Warn("Translation cache close error", "error", err)
			}
		}, nil
	}
	return translation.NewPipeline(inner, logger), nil, nil
}

// initTracer sets up the OTLP trace exporter, following the collector
// sidecar convention. The returned cleanup flushes pending spans.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("moa-server")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}
	return cleanup, nil
}
