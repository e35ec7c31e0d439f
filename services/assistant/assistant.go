// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant wires the PolicyHub chat-completion gateway: the HTTP
// router, the per-client rate limiter, the upstream LLM client, tracing,
// and metrics, behind a small Service lifecycle.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/policyhubhq/assistant-gateway/services/assistant/handlers"
	"github.com/policyhubhq/assistant-gateway/services/assistant/middleware"
	"github.com/policyhubhq/assistant-gateway/services/assistant/observability"
	"github.com/policyhubhq/assistant-gateway/services/assistant/routes"
	"github.com/policyhubhq/assistant-gateway/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the assistant gateway lifecycle.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds gateway configuration options. Values are read once per
// process (from the environment in cmd/assistant) and are never
// caller-controlled. All fields have defaults applied by New.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// Backend selects the upstream provider: "azure" or "openai".
	// Default: "azure"
	Backend string

	// UpstreamEndpoint is the Azure OpenAI resource endpoint.
	UpstreamEndpoint string

	// UpstreamAPIKey is the upstream credential. Never logged.
	UpstreamAPIKey string

	// Deployment is the Azure deployment (or OpenAI model) identifier.
	// Default: "gpt-4o-mini"
	Deployment string

	// APIVersion is the Azure OpenAI API version. Default: go-openai's.
	APIVersion string

	// DefaultMaxTokens is the generation budget when the caller requests
	// none. Default: 1024
	DefaultMaxTokens int

	// MaxTokensCeiling is the platform maximum generation budget.
	// Caller-requested budgets are clamped to it. Default: 4096
	MaxTokensCeiling int

	// UpstreamTimeout bounds each upstream call. Default: 30s
	UpstreamTimeout time.Duration

	// RateLimitMax is the admitted request count per window per client.
	// Default: 20
	RateLimitMax int

	// RateLimitWindow is the admission window length. Default: 60s
	RateLimitWindow time.Duration

	// AllowedOrigin is the CORS Allow-Origin value. Default: "*"
	AllowedOrigin string

	// OTelEndpoint is the OpenTelemetry collector endpoint. Tracing is
	// skipped when empty.
	OTelEndpoint string

	// EnableMetrics exposes the Prometheus /metrics route. Default: true
	// (disable with DisableMetrics).
	EnableMetrics bool

	// DisableMetrics turns the /metrics route off.
	DisableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use. All fields are read-only
// after New returns.
type service struct {
	config        Config
	router        *gin.Engine
	llmClient     llm.ChatClient
	limiter       *middleware.Limiter
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates the assistant gateway Service.
//
// # Description
//
// Applies config defaults, initializes metrics and (when configured)
// tracing, constructs the upstream client, and registers routes. A missing
// upstream endpoint or credential does not fail construction: the service
// starts degraded with a nil client and the chat handler reports the
// configuration fault per request.
func New(cfg Config) (Service, error) {
	cfg = applyConfigDefaults(cfg)
	s := &service{config: cfg}

	observability.InitMetrics()

	if cfg.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to setup the OTLP tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	s.initLLMClient()
	s.limiter = middleware.NewLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting assistant gateway", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.Backend == "" {
		cfg.Backend = "azure"
	}
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-4o-mini"
	}
	if cfg.DefaultMaxTokens == 0 {
		cfg.DefaultMaxTokens = 1024
	}
	if cfg.MaxTokensCeiling == 0 {
		cfg.MaxTokensCeiling = 4096
	}
	if cfg.UpstreamTimeout == 0 {
		cfg.UpstreamTimeout = 30 * time.Second
	}
	if cfg.RateLimitMax == 0 {
		cfg.RateLimitMax = 20
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = 60 * time.Second
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	cfg.EnableMetrics = !cfg.DisableMetrics
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing via an OTLP
// gRPC exporter. Uses an insecure connection, appropriate for internal
// collector networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("assistant-gateway")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// initLLMClient constructs the upstream client for the configured backend.
// Missing deployment settings leave the client nil; the gateway starts
// degraded and the chat handler reports the fault per request instead of
// the process crash-looping in environments without credentials.
func (s *service) initLLMClient() {
	var (
		client llm.ChatClient
		err    error
	)

	switch s.config.Backend {
	case "openai":
		client, err = llm.NewOpenAIClient(s.config.UpstreamAPIKey, s.config.Deployment)
		slog.Info("Using OpenAI upstream backend")
	case "azure":
		client, err = llm.NewAzureOpenAIClient(llm.AzureConfig{
			Endpoint:   s.config.UpstreamEndpoint,
			APIKey:     s.config.UpstreamAPIKey,
			Deployment: s.config.Deployment,
			APIVersion: s.config.APIVersion,
		})
		slog.Info("Using Azure OpenAI upstream backend")
	default:
		slog.Warn("Unknown upstream backend, defaulting to azure", "backend", s.config.Backend)
		client, err = llm.NewAzureOpenAIClient(llm.AzureConfig{
			Endpoint:   s.config.UpstreamEndpoint,
			APIKey:     s.config.UpstreamAPIKey,
			Deployment: s.config.Deployment,
			APIVersion: s.config.APIVersion,
		})
	}
	if err != nil {
		slog.Error("Upstream LLM client not configured, starting degraded", "error", err)
		return
	}
	s.llmClient = client
}

// initRouter sets up the Gin HTTP router with middleware and routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("panic recovered in request handler", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))
	s.router.Use(otelgin.Middleware("assistant-gateway"))

	routes.SetupRoutes(s.router, s.limiter, s.llmClient, routes.Options{
		Chat: handlers.ChatOptions{
			DefaultMaxTokens: s.config.DefaultMaxTokens,
			MaxTokensCeiling: s.config.MaxTokensCeiling,
			UpstreamTimeout:  s.config.UpstreamTimeout,
		},
		AllowedOrigin: s.config.AllowedOrigin,
		EnableMetrics: s.config.EnableMetrics,
	})
}

// cleanup releases resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
