package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopmesh/api-gateway/internal/auth"
	"github.com/shopmesh/api-gateway/internal/config"
	"github.com/shopmesh/api-gateway/internal/handler"
	"github.com/shopmesh/api-gateway/internal/middleware"
	"github.com/shopmesh/api-gateway/internal/proxy"
	"github.com/shopmesh/api-gateway/internal/routes"
	"github.com/shopmesh/api-gateway/pkg/logger"
	"github.com/shopmesh/api-gateway/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	zlog := logger.Get()
	zlog.Info("Starting API Gateway...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		zlog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		zlog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// The gateway holds no state of its own: no database, no cache. All it
	// owns is one pooled HTTP client shared by every forwarded request.
	proxyClient := proxy.NewClient(proxy.Config{
		ConnectTimeout:  cfg.Proxy.ConnectTimeout,
		ReadTimeout:     cfg.Proxy.ReadTimeout,
		WriteTimeout:    cfg.Proxy.WriteTimeout,
		MaxRetries:      cfg.Proxy.MaxRetries,
		BackoffInterval: cfg.Proxy.BackoffInterval,
		MaxConns:        cfg.Proxy.MaxConns,
		MaxIdleConns:    cfg.Proxy.MaxIdleConns,
	}, zlog)
	proxyClient.Start()
	defer proxyClient.Close()

	validator := auth.NewValidator(cfg.JWT.Secret, cfg.JWT.Algorithm)

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Apply global middlewares
	router.Use(middleware.Recovery(zlog))

	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.App.Name))
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zlog))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.Use(middleware.ErrorHandler(zlog))

	// Health check handlers
	healthHandler := handler.NewHealthHandler(proxyClient.HTTPClient(), []handler.Backend{
		{Name: "auth-service", BaseURL: cfg.Services.AuthServiceURL},
		{Name: "product-service", BaseURL: cfg.Services.ProductServiceURL},
		{Name: "cart-service", BaseURL: cfg.Services.CartServiceURL},
		{Name: "order-service", BaseURL: cfg.Services.OrderServiceURL},
	}, zlog)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/services", healthHandler.Services)

	// Resource route tables
	routes.NewRouter(proxyClient, validator, cfg.Services).Register(router)

	zlog.Info(fmt.Sprintf("Proxy configured: auth=%s, product=%s, cart=%s, order=%s",
		cfg.Services.AuthServiceURL, cfg.Services.ProductServiceURL,
		cfg.Services.CartServiceURL, cfg.Services.OrderServiceURL))

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		zlog.Info(fmt.Sprintf("API Gateway listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	zlog.Info("Server exited gracefully")
}
