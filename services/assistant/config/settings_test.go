// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	for _, key := range []string{
		"SELENE_OPENROUTER_API_KEY", "SELENE_OPENROUTER_BASE_URL", "SELENE_MODEL",
		"SELENE_ORACLE_TIMEOUT", "SELENE_ORACLE_MAX_IN_FLIGHT", "SELENE_ORACLE_RATE",
		"SELENE_CONFIRMATION_TTL", "SELENE_CONFIRMATION_BYPASS", "SELENE_CACHE_DIR",
	} {
		t.Setenv(key, "")
	}

	s := LoadSettings()

	if s.OpenRouterBaseURL != "https://openrouter.ai/api/v1/chat/completions" {
		t.Errorf("base URL = %q", s.OpenRouterBaseURL)
	}
	if s.OracleTimeout != 30*time.Second {
		t.Errorf("timeout = %v", s.OracleTimeout)
	}
	if s.OracleMaxInFlight != 8 {
		t.Errorf("max in flight = %d", s.OracleMaxInFlight)
	}
	if s.OracleRatePerSecond != 0 {
		t.Errorf("rate = %v", s.OracleRatePerSecond)
	}
	if s.ConfirmationTTL != 5*time.Minute {
		t.Errorf("confirmation TTL = %v", s.ConfirmationTTL)
	}
	if s.ConfirmationBypass {
		t.Error("bypass must default off")
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	t.Setenv("SELENE_OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("SELENE_MODEL", "anthropic/claude-sonnet")
	t.Setenv("SELENE_ORACLE_TIMEOUT", "90s")
	t.Setenv("SELENE_ORACLE_MAX_IN_FLIGHT", "2")
	t.Setenv("SELENE_ORACLE_RATE", "1.5")
	t.Setenv("SELENE_CONFIRMATION_TTL", "30s")
	t.Setenv("SELENE_CONFIRMATION_BYPASS", "true")
	t.Setenv("SELENE_CACHE_DIR", "/tmp/selene-test")

	s := LoadSettings()

	if s.OpenRouterAPIKey != "sk-or-test" || s.Model != "anthropic/claude-sonnet" {
		t.Errorf("settings = %+v", s)
	}
	if s.OracleTimeout != 90*time.Second {
		t.Errorf("timeout = %v", s.OracleTimeout)
	}
	if s.OracleMaxInFlight != 2 || s.OracleRatePerSecond != 1.5 {
		t.Errorf("oracle limits = %d, %v", s.OracleMaxInFlight, s.OracleRatePerSecond)
	}
	if s.ConfirmationTTL != 30*time.Second || !s.ConfirmationBypass {
		t.Errorf("confirmation = %v, %v", s.ConfirmationTTL, s.ConfirmationBypass)
	}
	if s.CacheDir != "/tmp/selene-test" {
		t.Errorf("cache dir = %q", s.CacheDir)
	}
}

func TestLoadSettingsIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("SELENE_ORACLE_TIMEOUT", "soon")
	t.Setenv("SELENE_ORACLE_MAX_IN_FLIGHT", "many")

	s := LoadSettings()

	if s.OracleTimeout != 30*time.Second {
		t.Errorf("timeout = %v, want the default on parse failure", s.OracleTimeout)
	}
	if s.OracleMaxInFlight != 8 {
		t.Errorf("max in flight = %d, want the default", s.OracleMaxInFlight)
	}
}
