// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Settings holds the environment-derived runtime configuration.
//
// Description:
//
//	Every value has a default so a bare process starts (with oracle
//	calls failing fast when no API key is configured). The high-risk
//	tool set lives with the registry document, not here.
type Settings struct {
	// OpenRouterAPIKey is the oracle bearer credential (SELENE_OPENROUTER_API_KEY).
	OpenRouterAPIKey string

	// OpenRouterBaseURL is the chat completions endpoint (SELENE_OPENROUTER_BASE_URL).
	OpenRouterBaseURL string

	// Model is the default model identifier (SELENE_MODEL).
	Model string

	// Referer populates the HTTP-Referer header (SELENE_HTTP_REFERER).
	Referer string

	// Title populates the X-Title header (SELENE_CLIENT_TITLE).
	Title string

	// OracleTimeout bounds each oracle call (SELENE_ORACLE_TIMEOUT, Go duration).
	OracleTimeout time.Duration

	// OracleMaxInFlight bounds concurrent oracle calls (SELENE_ORACLE_MAX_IN_FLIGHT).
	OracleMaxInFlight int64

	// OracleRatePerSecond throttles oracle calls (SELENE_ORACLE_RATE). Zero disables.
	OracleRatePerSecond float64

	// ConfirmationTTL is how long a pending confirmation stays answerable
	// (SELENE_CONFIRMATION_TTL, Go duration).
	ConfirmationTTL time.Duration

	// ConfirmationBypass skips the risk gate entirely (SELENE_CONFIRMATION_BYPASS).
	// Operational escape hatch; leave false in production.
	ConfirmationBypass bool

	// CacheDir is the BadgerDB directory for pending confirmations
	// (SELENE_CACHE_DIR). Empty falls back to ~/.selene/cache.
	CacheDir string
}

// LoadSettings reads Settings from the environment, applying defaults.
//
// Thread Safety: Safe for concurrent use.
func LoadSettings() Settings {
	s := Settings{
		OpenRouterAPIKey:    os.Getenv("SELENE_OPENROUTER_API_KEY"),
		OpenRouterBaseURL:   envOr("SELENE_OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1/chat/completions"),
		Model:               envOr("SELENE_MODEL", "google/gemini-2.0-flash-exp:free"),
		Referer:             envOr("SELENE_HTTP_REFERER", "https://selene.local"),
		Title:               envOr("SELENE_CLIENT_TITLE", "Selene Assistant"),
		OracleTimeout:       envDuration("SELENE_ORACLE_TIMEOUT", 30*time.Second),
		OracleMaxInFlight:   int64(envInt("SELENE_ORACLE_MAX_IN_FLIGHT", 8)),
		OracleRatePerSecond: envFloat("SELENE_ORACLE_RATE", 0),
		ConfirmationTTL:     envDuration("SELENE_CONFIRMATION_TTL", 5*time.Minute),
		ConfirmationBypass:  envBool("SELENE_CONFIRMATION_BYPASS"),
		CacheDir:            os.Getenv("SELENE_CACHE_DIR"),
	}
	if s.OpenRouterAPIKey == "" {
		slog.Warn("SELENE_OPENROUTER_API_KEY not set; oracle calls will fail and the pipeline will degrade to fallback replies")
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default",
			slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default",
			slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using default",
			slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return f
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true" || v == "yes"
}
