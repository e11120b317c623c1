// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package costs exports per-query cost samples to InfluxDB.
//
// Each resolved query becomes one point in the interview_query_cost
// measurement, tagged by operation, source, and outcome, so resolution
// cost and freshness can be charted over time. Export failures are logged
// and counted; they never affect the query that produced the sample.
package costs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
)

// Measurement is the InfluxDB measurement holding cost samples.
const Measurement = "interview_query_cost"

// Config holds exporter connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	Logger *logging.Logger
}

// Exporter writes one cost point per audit event using the blocking write
// API. It implements extensions.ResolutionObserver.
type Exporter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *logging.Logger
	failures atomic.Int64
}

// New connects an exporter to InfluxDB.
func New(cfg Config) *Exporter {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	e := &Exporter{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger:   cfg.Logger,
	}
	cfg.Logger.Info("Cost exporter connected",
		"influx_url", cfg.URL,
		"influx_org", cfg.Org,
		"influx_bucket", cfg.Bucket,
	)
	return e
}

// NewWithWriteAPI builds an exporter around an existing write API.
func NewWithWriteAPI(writeAPI api.WriteAPIBlocking, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Exporter{writeAPI: writeAPI, logger: logger}
}

// Observe writes one cost point for the event.
func (e *Exporter) Observe(ctx context.Context, event extensions.AuditEvent) error {
	tags := map[string]string{
		"operation": event.Operation,
		"outcome":   event.Outcome,
	}
	if event.Source != "" {
		tags["source"] = event.Source
	}

	at := event.ObservedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	point := influxdb2.NewPoint(
		Measurement,
		tags,
		map[string]interface{}{
			"cost_units":       event.CostUnits,
			"freshness_age_ms": event.FreshnessAgeMS,
			"result_count":     event.ResultCount,
			"truncated":        event.Truncated,
		},
		at,
	)

	if err := e.writeAPI.WritePoint(ctx, point); err != nil {
		e.failures.Add(1)
		e.logger.Error("Cost point write failed",
			"operation", event.Operation,
			"outcome", event.Outcome,
			"error", err,
		)
		return fmt.Errorf("write cost point: %w", err)
	}
	return nil
}

// Failures reports how many writes have failed since startup.
func (e *Exporter) Failures() int64 {
	return e.failures.Load()
}

// Close releases the underlying client.
func (e *Exporter) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

var _ extensions.ResolutionObserver = (*Exporter)(nil)
