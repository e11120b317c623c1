// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoreValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "interview-1", cfg.InstanceID)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.AllowGlobalLedger)
	assert.Equal(t, "http", cfg.DepotBackend)
	assert.Equal(t, 60, cfg.ComponentPollRateLimitPerMinute)
	assert.Equal(t, 100, cfg.DefaultLimit)
	assert.Equal(t, 200, cfg.MaxLimit)
	assert.Equal(t, 24, cfg.DefaultTimeWindowHours)
	assert.Equal(t, 168, cfg.MaxTimeWindowHours)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 100, cfg.RateLimitRequestsPerMinute)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.CORSAllowCredentials)
	assert.Equal(t, 72, cfg.AuditRetentionHours)
	assert.Equal(t, "legivellum", cfg.InfluxOrg)
	assert.Equal(t, "interview-costs", cfg.InfluxBucket)
}

func TestDefault_PassesValidation(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("INTERVIEW_PORT", "9100")
	t.Setenv("INTERVIEW_DEBUG", "true")
	t.Setenv("INTERVIEW_ALLOW_GLOBAL_LEDGER", "true")
	t.Setenv("INTERVIEW_LEDGER_MIRROR_URL", "http://receiptgate:8020")
	t.Setenv("INTERVIEW_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("INTERVIEW_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.AllowGlobalLedger)
	assert.Equal(t, "http://receiptgate:8020", cfg.LedgerMirrorURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9200\ninstance_id: interview-file\n"), 0600))

	t.Setenv("INTERVIEW_CONFIG_FILE", path)
	t.Setenv("INTERVIEW_PORT", "9300")

	cfg, err := Load()
	require.NoError(t, err)

	// Env wins over file; file wins over defaults.
	assert.Equal(t, 9300, cfg.Port)
	assert.Equal(t, "interview-file", cfg.InstanceID)
	assert.Equal(t, "0.0.0.0", cfg.Host)
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	t.Setenv("INTERVIEW_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidPortRejected(t *testing.T) {
	t.Setenv("INTERVIEW_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedBoolNamesVariable(t *testing.T) {
	t.Setenv("INTERVIEW_DEBUG", "notabool")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERVIEW_DEBUG")
}

func TestLoad_MalformedIntNamesVariable(t *testing.T) {
	t.Setenv("INTERVIEW_MAX_LIMIT", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERVIEW_MAX_LIMIT")
}

func TestLoad_BareHostURLRejected(t *testing.T) {
	t.Setenv("INTERVIEW_ASYNCGATE_URL", "asyncgate:8010")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_GCSBackendNeedsBucket(t *testing.T) {
	cfg := Default()
	cfg.DepotBackend = "gcs"
	require.Error(t, cfg.Validate())

	cfg.DepotGCSBucket = "interview-artifacts"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MaxBelowDefaultRejected(t *testing.T) {
	cfg := Default()
	cfg.MaxLimit = cfg.DefaultLimit - 1
	assert.Error(t, cfg.Validate())
}

func TestConfig_DerivedValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 500*time.Millisecond, cfg.ComponentPollTimeout())
	assert.Equal(t, 5*time.Second, cfg.ComponentPollCacheTTL())
	assert.Equal(t, time.Minute, cfg.ProjectionCacheTTL())
	assert.Equal(t, 72*time.Hour, cfg.AuditRetention())

	assert.False(t, cfg.CostExporterEnabled())
	cfg.InfluxURL = "http://influxdb:8086"
	assert.False(t, cfg.CostExporterEnabled())
	cfg.InfluxToken = "token"
	assert.True(t, cfg.CostExporterEnabled())
}
