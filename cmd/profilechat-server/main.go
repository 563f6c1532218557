// Package main provides the WebSocket chat server for profilechat.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/raphaelgruber/profilechat/internal/config"
	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/raphaelgruber/profilechat/internal/llm"
	"github.com/raphaelgruber/profilechat/internal/metrics"
	"github.com/raphaelgruber/profilechat/internal/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides PROFILECHAT_SERVER_ADDR)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}

	// Initialize logging
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel, true)
	defer closeLog()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting profilechat-server", "addr", cfg.ServerAddr, "provider", cfg.LLMProvider, "model", cfg.LLMModel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	model, err := llm.NewModel(ctx, cfg, logger)
	cancel()
	if err != nil {
		slog.Error("failed to create model", "error", err)
		os.Exit(1)
	}

	systemPrompt, err := config.LoadSystemPrompt(cfg)
	if err != nil {
		slog.Error("failed to load system prompt", "error", err)
		os.Exit(1)
	}

	// Metrics: in-memory stats for /stats, Prometheus for /metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewPrometheus(registry, cfg.LLMModel)
	collector := metrics.NewCollector()

	engine := conversation.NewEngine(model, conversation.Options{
		ModelID:  cfg.LLMModel,
		Provider: cfg.ProviderName(),
		Verbose:  cfg.VerboseErrors,
		Logger:   logger,
		Recorder: metrics.Tee{collector, prom},
	})

	srv := server.New(server.Deps{
		Engine:            engine,
		Exporter:          conversation.NewExporter(cfg.ExportDir, cfg.ProviderName()),
		SystemInstruction: systemPrompt,
		Collector:         collector,
		Prometheus:        prom,
		Gatherer:          registry,
	}, logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("chat endpoint available", "url", fmt.Sprintf("ws://%s/ws", displayAddr(cfg.ServerAddr)))
		slog.Info("metrics available", "url", fmt.Sprintf("http://%s/metrics", displayAddr(cfg.ServerAddr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// displayAddr turns ":8484" into "localhost:8484" for log output.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
