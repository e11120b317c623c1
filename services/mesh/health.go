// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mesh

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Endpoint names one mesh component and its configured base URL. An empty
// URL means the component is not wired into this deployment.
type Endpoint struct {
	Component string
	URL       string
}

// EndpointHealth is the probe verdict for one component.
type EndpointHealth struct {
	Component  string `json:"component"`
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	LatencyMS  int64  `json:"latency_ms"`
}

// Probe checks mesh component reachability by hitting each component's
// /health endpoint. Probes run in parallel and individually bounded; a
// slow component reports unreachable instead of delaying the sweep.
type Probe struct {
	timeout    time.Duration
	httpClient *http.Client
}

// NewProbe creates a probe with the given per-endpoint timeout.
func NewProbe(timeout time.Duration) *Probe {
	return &Probe{
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Check probes every endpoint and returns one verdict per endpoint, in
// input order. Unconfigured endpoints are reported, not probed.
func (p *Probe) Check(ctx context.Context, endpoints []Endpoint) []EndpointHealth {
	results := make([]EndpointHealth, len(endpoints))

	g, gCtx := errgroup.WithContext(ctx)
	for i, ep := range endpoints {
		g.Go(func() error {
			results[i] = p.checkOne(gCtx, ep)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Probe) checkOne(ctx context.Context, ep Endpoint) EndpointHealth {
	health := EndpointHealth{Component: ep.Component}
	if ep.URL == "" {
		return health
	}
	health.Configured = true

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet,
		strings.TrimRight(ep.URL, "/")+"/health", nil)
	if err != nil {
		return health
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	health.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		return health
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	health.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 300
	return health
}
