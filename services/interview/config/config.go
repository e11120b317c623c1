// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the service configuration.
//
// Values come from three layers: built-in defaults, an optional YAML file
// named by INTERVIEW_CONFIG_FILE, and INTERVIEW_-prefixed environment
// variables. Later layers override earlier ones. Load validates the merged
// result and the process refuses to start on an invalid configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces every environment variable this service reads.
const envPrefix = "INTERVIEW_"

// configValidate is the validator instance for the merged configuration.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("base_url", validateBaseURL)
}

// validateBaseURL accepts absolute http(s) URLs only. Scheme-relative and
// bare-host values are rejected so a typo fails at startup, not at the
// first resolution.
func validateBaseURL(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// Config is the merged service configuration.
type Config struct {
	// Server
	Host       string `yaml:"host" validate:"required"`
	Port       int    `yaml:"port" validate:"min=1,max=65535"`
	Debug      bool   `yaml:"debug"`
	InstanceID string `yaml:"instance_id" validate:"required"`

	// Source endpoints. All optional; an unset endpoint makes its source
	// unavailable and resolution degrades per operation.

	// ProjectionCacheURL is reserved for an external projection store.
	// The projection cache currently runs in process and ignores it.
	ProjectionCacheURL string `yaml:"projection_cache_url" validate:"omitempty,base_url"`
	LedgerMirrorURL    string `yaml:"ledger_mirror_url" validate:"omitempty,base_url"`
	AsyncGateURL       string `yaml:"asyncgate_url" validate:"omitempty,base_url"`
	AsyncGateAPIKey    string `yaml:"asyncgate_api_key"`
	DepotGateURL       string `yaml:"depotgate_url" validate:"omitempty,base_url"`
	DepotGateAPIKey    string `yaml:"depotgate_api_key"`
	MemoryGateURL      string `yaml:"memorygate_url" validate:"omitempty,base_url"`
	GlobalLedgerURL    string `yaml:"global_ledger_url" validate:"omitempty,base_url"`
	AllowGlobalLedger  bool   `yaml:"allow_global_ledger"`

	// Depot artifact backend.
	DepotBackend        string `yaml:"depot_backend" validate:"oneof=http gcs"`
	DepotGCSBucket      string `yaml:"depot_gcs_bucket"`
	DepotGCSCredentials string `yaml:"depot_gcs_credentials"`

	// Component poll budget.
	ComponentPollRateLimitPerMinute int `yaml:"component_poll_rate_limit_per_minute" validate:"min=1"`
	ComponentPollTimeoutMS          int `yaml:"component_poll_timeout_ms" validate:"min=1"`
	ComponentPollCacheSeconds       int `yaml:"component_poll_cache_seconds" validate:"min=0"`

	// Result and window bounds.
	DefaultLimit              int `yaml:"default_limit" validate:"min=1"`
	MaxLimit                  int `yaml:"max_limit" validate:"min=1,gtefield=DefaultLimit"`
	DefaultTimeWindowHours    int `yaml:"default_time_window_hours" validate:"min=1"`
	MaxTimeWindowHours        int `yaml:"max_time_window_hours" validate:"min=1,gtefield=DefaultTimeWindowHours"`
	ProjectionCacheTTLSeconds int `yaml:"projection_cache_ttl_seconds" validate:"min=1"`

	// Authentication.
	APIKey           string `yaml:"api_key"`
	APIKeysFile      string `yaml:"api_keys_file"`
	AllowInsecureDev bool   `yaml:"allow_insecure_dev"`
	InsecureMemory   bool   `yaml:"insecure_memory"`

	// Inbound rate limiting.
	RateLimitEnabled           bool `yaml:"rate_limit_enabled"`
	RateLimitRequestsPerMinute int  `yaml:"rate_limit_requests_per_minute" validate:"min=1"`

	// CORS.
	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins"`
	CORSAllowCredentials bool     `yaml:"cors_allow_credentials"`
	CORSAllowedMethods   []string `yaml:"cors_allowed_methods"`
	CORSAllowedHeaders   []string `yaml:"cors_allowed_headers"`

	// Audit journal.
	AuditDir            string `yaml:"audit_dir"`
	AuditRetentionHours int    `yaml:"audit_retention_hours" validate:"min=1"`

	// Cost exporter.
	InfluxURL    string `yaml:"influx_url" validate:"omitempty,base_url"`
	InfluxToken  string `yaml:"influx_token"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`

	// Tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:       "0.0.0.0",
		Port:       8000,
		InstanceID: "interview-1",

		DepotBackend: "http",

		ComponentPollRateLimitPerMinute: 60,
		ComponentPollTimeoutMS:          500,
		ComponentPollCacheSeconds:       5,

		DefaultLimit:              100,
		MaxLimit:                  200,
		DefaultTimeWindowHours:    24,
		MaxTimeWindowHours:        168,
		ProjectionCacheTTLSeconds: 60,

		RateLimitEnabled:           true,
		RateLimitRequestsPerMinute: 100,

		CORSAllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8080"},
		CORSAllowCredentials: true,
		CORSAllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Authorization", "Content-Type", "X-Tenant-ID"},

		AuditRetentionHours: 72,

		InfluxOrg:    "legivellum",
		InfluxBucket: "interview-costs",
	}
}

// Load builds the configuration from defaults, the optional YAML file, and
// the environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path, ok := os.LookupEnv(envPrefix + "CONFIG_FILE"); ok && path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile overlays YAML values onto cfg. Keys absent from the file leave
// the current value in place.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DepotBackend == "gcs" && c.DepotGCSBucket == "" {
		return fmt.Errorf("invalid configuration: depot_backend is gcs but depot_gcs_bucket is unset")
	}
	return nil
}

// applyEnv overlays INTERVIEW_-prefixed environment variables onto cfg.
func applyEnv(cfg *Config) error {
	envString("HOST", &cfg.Host)
	envString("INSTANCE_ID", &cfg.InstanceID)
	envString("PROJECTION_CACHE_URL", &cfg.ProjectionCacheURL)
	envString("LEDGER_MIRROR_URL", &cfg.LedgerMirrorURL)
	envString("ASYNCGATE_URL", &cfg.AsyncGateURL)
	envString("ASYNCGATE_API_KEY", &cfg.AsyncGateAPIKey)
	envString("DEPOTGATE_URL", &cfg.DepotGateURL)
	envString("DEPOTGATE_API_KEY", &cfg.DepotGateAPIKey)
	envString("MEMORYGATE_URL", &cfg.MemoryGateURL)
	envString("GLOBAL_LEDGER_URL", &cfg.GlobalLedgerURL)
	envString("DEPOT_BACKEND", &cfg.DepotBackend)
	envString("DEPOT_GCS_BUCKET", &cfg.DepotGCSBucket)
	envString("DEPOT_GCS_CREDENTIALS", &cfg.DepotGCSCredentials)
	envString("API_KEY", &cfg.APIKey)
	envString("API_KEYS_FILE", &cfg.APIKeysFile)
	envString("AUDIT_DIR", &cfg.AuditDir)
	envString("INFLUX_URL", &cfg.InfluxURL)
	envString("INFLUX_TOKEN", &cfg.InfluxToken)
	envString("INFLUX_ORG", &cfg.InfluxOrg)
	envString("INFLUX_BUCKET", &cfg.InfluxBucket)
	envString("OTLP_ENDPOINT", &cfg.OTLPEndpoint)

	envCSV("CORS_ALLOWED_ORIGINS", &cfg.CORSAllowedOrigins)
	envCSV("CORS_ALLOWED_METHODS", &cfg.CORSAllowedMethods)
	envCSV("CORS_ALLOWED_HEADERS", &cfg.CORSAllowedHeaders)

	for _, bind := range []struct {
		key    string
		target *bool
	}{
		{"DEBUG", &cfg.Debug},
		{"ALLOW_GLOBAL_LEDGER", &cfg.AllowGlobalLedger},
		{"ALLOW_INSECURE_DEV", &cfg.AllowInsecureDev},
		{"INSECURE_MEMORY", &cfg.InsecureMemory},
		{"RATE_LIMIT_ENABLED", &cfg.RateLimitEnabled},
		{"CORS_ALLOW_CREDENTIALS", &cfg.CORSAllowCredentials},
	} {
		if err := envBool(bind.key, bind.target); err != nil {
			return err
		}
	}

	for _, bind := range []struct {
		key    string
		target *int
	}{
		{"PORT", &cfg.Port},
		{"COMPONENT_POLL_RATE_LIMIT_PER_MINUTE", &cfg.ComponentPollRateLimitPerMinute},
		{"COMPONENT_POLL_TIMEOUT_MS", &cfg.ComponentPollTimeoutMS},
		{"COMPONENT_POLL_CACHE_SECONDS", &cfg.ComponentPollCacheSeconds},
		{"DEFAULT_LIMIT", &cfg.DefaultLimit},
		{"MAX_LIMIT", &cfg.MaxLimit},
		{"DEFAULT_TIME_WINDOW_HOURS", &cfg.DefaultTimeWindowHours},
		{"MAX_TIME_WINDOW_HOURS", &cfg.MaxTimeWindowHours},
		{"PROJECTION_CACHE_TTL_SECONDS", &cfg.ProjectionCacheTTLSeconds},
		{"RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.RateLimitRequestsPerMinute},
		{"AUDIT_RETENTION_HOURS", &cfg.AuditRetentionHours},
	} {
		if err := envInt(bind.key, bind.target); err != nil {
			return err
		}
	}

	return nil
}

func envString(key string, target *string) {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		*target = value
	}
}

func envCSV(key string, target *[]string) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*target = out
}

func envBool(key string, target *bool) error {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*target = parsed
	return nil
}

func envInt(key string, target *int) error {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*target = parsed
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ComponentPollTimeout is the per-poll HTTP deadline.
func (c *Config) ComponentPollTimeout() time.Duration {
	return time.Duration(c.ComponentPollTimeoutMS) * time.Millisecond
}

// ComponentPollCacheTTL is how long a poll snapshot is reused.
func (c *Config) ComponentPollCacheTTL() time.Duration {
	return time.Duration(c.ComponentPollCacheSeconds) * time.Second
}

// ProjectionCacheTTL is the projection entry lifetime.
func (c *Config) ProjectionCacheTTL() time.Duration {
	return time.Duration(c.ProjectionCacheTTLSeconds) * time.Second
}

// AuditRetention is the audit journal entry lifetime.
func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionHours) * time.Hour
}

// CostExporterEnabled reports whether the Influx cost sink is configured.
func (c *Config) CostExporterEnabled() bool {
	return c.InfluxURL != "" && c.InfluxToken != ""
}
