package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloakedge/cloakedge/internal/edge/common/clock"
	"github.com/cloakedge/cloakedge/internal/edge/common/log"
	"github.com/cloakedge/cloakedge/internal/edge/gateways/policyapi"
	"github.com/cloakedge/cloakedge/internal/edge/gateways/proxy"
	"github.com/cloakedge/cloakedge/internal/edge/gateways/transport"
	"github.com/cloakedge/cloakedge/internal/edge/infra/config"
	"github.com/cloakedge/cloakedge/internal/edge/infra/metrics"
	"github.com/cloakedge/cloakedge/internal/edge/repos/policycache"
	"github.com/cloakedge/cloakedge/internal/edge/services/router"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "cloakedged"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the edge server
type Application struct {
	config    *config.AppConfig
	transport *transport.HTTPTransport
	handler   http.Handler
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"port":       cfg.Port,
		"cache_size": cfg.CacheSize,
		"cache_ttl":  cfg.CacheTTL,
		"api_base":   cfg.APIBase,
	}, "Starting cloakedge server")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	// Start the edge server
	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "Cloakedge server stopped gracefully")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	// Shared clock so cache expiry is testable and consistent
	clk := clock.RealClock{}

	// Initialize logger (already configured globally)
	logger := log.GetLogger()

	fallback, err := url.Parse(cfg.DefaultOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid default origin: %w", err)
	}

	// Policy cache
	cache, err := policycache.New(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy cache: %w", err)
	}
	log.Info(map[string]any{
		"type": "LRU",
		"size": cfg.CacheSize,
		"ttl":  cfg.CacheTTL,
	}, "Policy cache configured")

	// Policy API client
	apiClient, err := policyapi.NewClient(policyapi.Options{
		BaseURL: cfg.APIBase,
		Token:   cfg.APIToken,
		Timeout: time.Duration(cfg.ResolveTimeout) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create policy API client: %w", err)
	}

	// Metrics registry, shared between the router and the /metrics endpoint
	edgeMetrics := metrics.New()

	// Routing decision engine
	routerService, err := router.New(router.Options{
		Cache:    cache,
		Provider: apiClient,
		Fallback: fallback,
		Logger:   logger,
		Metrics:  edgeMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	// Reverse proxy
	forwarder := proxy.New(proxy.Options{
		Timeout: time.Duration(cfg.ProxyTimeout) * time.Second,
		Logger:  logger,
	})

	// ACME challenge handler, static table first, API solver as fallback
	var static map[string]string
	if cfg.AcmeTokenFile != "" {
		static, err = transport.LoadStaticChallenges(cfg.AcmeTokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load ACME tokens: %w", err)
		}
		log.Info(map[string]any{
			"file":   cfg.AcmeTokenFile,
			"tokens": len(static),
		}, "Static ACME challenge table loaded")
	}
	acmeHandler := transport.NewACMEHandler(static, apiClient, logger)

	// HTTP surface and transport
	handler := transport.NewHandler(transport.HandlerOptions{
		Router:  routerService,
		Proxy:   forwarder,
		ACME:    acmeHandler,
		Metrics: edgeMetrics.Handler(),
		Logger:  logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpTransport := transport.NewHTTPTransport(transport.Options{
		Addr:     addr,
		MaxConns: cfg.MaxConns,
		Logger:   logger,
	})

	return &Application{
		config:    cfg,
		transport: httpTransport,
		handler:   handler,
	}, nil
}

// Run starts the edge server and blocks until context is cancelled
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.handler); err != nil {
		return fmt.Errorf("failed to start HTTP transport: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "HTTP",
	}, "Edge server started")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	// Stop transport gracefully, draining in-flight requests
	if err := app.transport.Stop(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
		return fmt.Errorf("shutdown incomplete: %w", err)
	}

	log.Info(nil, "Graceful shutdown completed")
	return nil
}
