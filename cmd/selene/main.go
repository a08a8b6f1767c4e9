// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command selene starts the Selene assistant API server.
//
// Selene turns free-text chat messages into tool actions through a
// staged pipeline: keyword fast path, oracle classification, parameter
// validation, and a confirmation gate for high-risk actions.
//
// Usage:
//
//	go run ./cmd/selene
//	go run ./cmd/selene -port 9090
//
// With an OpenRouter key:
//
//	SELENE_OPENROUTER_API_KEY=sk-or-... go run ./cmd/selene
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/assistant/health
//
//	# Tool discovery
//	curl http://localhost:8080/v1/assistant/tools | jq
//
//	# One chat turn
//	curl -X POST http://localhost:8080/v1/assistant/chat \
//	  -H "Content-Type: application/json" \
//	  -d '{"message": "검색해줘 고양이"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/selene-ai/selene/services/assistant"
	"github.com/selene-ai/selene/services/assistant/config"
	"github.com/selene-ai/selene/services/assistant/pipeline"
	"github.com/selene-ai/selene/services/assistant/tools"
	"github.com/selene-ai/selene/services/llm"
)

// unconfiguredOracle stands in when no API key is set. Every call fails
// and the pipeline degrades to its fixed fallback replies.
type unconfiguredOracle struct{}

func (unconfiguredOracle) Chat(context.Context, []llm.Message, llm.GenerationParams) (string, error) {
	return "", fmt.Errorf("oracle is not configured: set SELENE_OPENROUTER_API_KEY")
}

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so trace context flows from incoming
	// headers through all handlers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	settings := config.LoadSettings()

	registry, err := config.GetToolRegistry(context.Background())
	if err != nil {
		slog.Error("Failed to load tool registry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Without an API key the server still serves discovery and health;
	// chat turns fall back to the pipeline's failure message.
	var oracle pipeline.Oracle = unconfiguredOracle{}
	if settings.OpenRouterAPIKey != "" {
		client, err := llm.NewClient(llm.Config{
			APIKey:        settings.OpenRouterAPIKey,
			BaseURL:       settings.OpenRouterBaseURL,
			Model:         settings.Model,
			Referer:       settings.Referer,
			Title:         settings.Title,
			Timeout:       settings.OracleTimeout,
			MaxInFlight:   settings.OracleMaxInFlight,
			RatePerSecond: settings.OracleRatePerSecond,
		}, slog.Default())
		if err != nil {
			slog.Error("Failed to create oracle client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		oracle = client
	}

	executors := tools.NewRegistry(slog.Default())
	if err := tools.RegisterBuiltins(executors, tools.BuiltinDeps{}); err != nil {
		slog.Error("Failed to register tool executors", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Pending confirmations survive restarts when BadgerDB is available.
	// Graceful degradation: fall back to the in-memory store otherwise.
	var confirmStore pipeline.ConfirmStore
	var confirmDB *badger.DB
	cacheDir := settings.CacheDir
	if cacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cacheDir = filepath.Join(home, ".selene", "cache", "confirm")
		}
	}
	if cacheDir != "" {
		db, err := badger.Open(badger.DefaultOptions(cacheDir).WithLogger(nil))
		if err != nil {
			slog.Warn("Confirmation BadgerDB unavailable, using in-memory store",
				slog.String("path", cacheDir),
				slog.String("error", err.Error()),
			)
		} else {
			confirmDB = db
			confirmStore = pipeline.NewBadgerConfirmStore(db, settings.ConfirmationTTL, slog.Default())
			slog.Info("Confirmation BadgerDB opened", slog.String("path", cacheDir))
		}
	}
	if confirmStore == nil {
		confirmStore = pipeline.NewMemoryConfirmStore(settings.ConfirmationTTL)
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewResolver(oracle, registry, slog.Default()),
		pipeline.NewValidator(registry, slog.Default()),
		pipeline.NewRiskGate(registry, settings.ConfirmationBypass),
		confirmStore,
		executors,
		oracle,
		slog.Default(),
	)

	ready := func() bool { return settings.OpenRouterAPIKey != "" }
	handlers := assistant.NewHandlers(orchestrator, registry, ready, slog.Default())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("selene-assistant"))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	assistant.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, registry, settings)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down Selene server")
		if confirmDB != nil {
			if err := confirmDB.Close(); err != nil {
				slog.Warn("Failed to close confirmation BadgerDB", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Selene server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// printBanner prints the startup summary.
func printBanner(port int, registry *config.ToolRegistry, settings config.Settings) {
	oracleState := "configured"
	if settings.OpenRouterAPIKey == "" {
		oracleState = "MISSING API KEY (chat will fail)"
	}
	fmt.Printf(`
  ___  ____ _     ____ _  _ ____
 / __)(  __( )   (  __( \( (  __)
 \__ \ ) _) ) (__ ) _) )  ( ) _)
 (___/(____(____((____(_)\_(____)

  Selene Assistant API
  ---------------------
  Address:     http://localhost:%d
  Model:       %s
  Oracle:      %s
  Tools:       %d registered, %d high risk
  Endpoints:   POST /v1/assistant/chat
               GET  /v1/assistant/chat/ws
               GET  /v1/assistant/tools
               GET  /metrics

`, port, settings.Model, oracleState, len(registry.Specs()), len(registry.HighRiskTools()))
}
