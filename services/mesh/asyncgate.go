// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/sources"
)

// DefaultDiagnosticTimeout is the default timeout for AsyncGate polls.
// Diagnostics are best-effort; a component that cannot answer quickly is
// treated as unreachable rather than waited on.
const DefaultDiagnosticTimeout = 500 * time.Millisecond

// AsyncGateClient polls the AsyncGate task broker for live health and
// queue diagnostics.
//
// # Description
//
// AsyncGate is the only live, mutable system InterView talks to, which is
// why these calls run under the short diagnostic timeout and sit behind
// the poller's rate limiter. A timed-out poll and a refused connection are
// both component unavailability; the caller maps that to reachable=false.
//
// # Thread Safety
//
// AsyncGateClient is safe for concurrent use.
type AsyncGateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAsyncGateClient creates an AsyncGate client. An empty baseURL is
// allowed; calls then fail with a not-configured unavailability.
func NewAsyncGateClient(baseURL string) *AsyncGateClient {
	return &AsyncGateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultDiagnosticTimeout,
		},
	}
}

// WithTimeout sets a custom timeout for diagnostic polls.
func (c *AsyncGateClient) WithTimeout(timeout time.Duration) *AsyncGateClient {
	c.httpClient.Timeout = timeout
	return c
}

// WithAPIKey sets the X-API-Key header sent on every poll.
func (c *AsyncGateClient) WithAPIKey(key string) *AsyncGateClient {
	c.apiKey = key
	return c
}

func (c *AsyncGateClient) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.httpClient.Do(req)
}

// Health polls GET /health for a point-in-time component snapshot.
func (c *AsyncGateClient) Health(ctx context.Context, tenantID string, verbose bool) (*datatypes.HealthSnapshot, error) {
	if c.baseURL == "" {
		return nil, sources.Unavailable(datatypes.SourceComponentPoll, "AsyncGate URL not configured")
	}

	params := url.Values{}
	params.Set("tenant_id", tenantID)
	params.Set("verbose", strconv.FormatBool(verbose))

	resp, err := c.get(ctx, "/health", params)
	if err != nil {
		if timedOut(err) {
			return nil, sources.Unavailable(datatypes.SourceComponentPoll, "AsyncGate health poll timed out")
		}
		return nil, sources.UnavailableWrap(datatypes.SourceComponentPoll, "AsyncGate health poll failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sources.Unavailable(datatypes.SourceComponentPoll,
			fmt.Sprintf("AsyncGate health poll failed: unexpected status %d", resp.StatusCode))
	}

	var snap datatypes.HealthSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceComponentPoll, "AsyncGate health poll failed", err)
	}
	return &snap, nil
}

// QueueDiagnostics polls GET /queues/diagnostics for bounded queue state.
// The limit inside q is assumed pre-clamped by the poller.
func (c *AsyncGateClient) QueueDiagnostics(ctx context.Context, q datatypes.QueueQuery) (*datatypes.QueueSnapshot, error) {
	if c.baseURL == "" {
		return nil, sources.Unavailable(datatypes.SourceComponentPoll, "AsyncGate URL not configured")
	}

	params := url.Values{}
	params.Set("tenant_id", q.TenantID)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("include_examples", strconv.FormatBool(q.IncludeExamples))
	if q.QueueID != "" {
		params.Set("queue_id", q.QueueID)
	}

	resp, err := c.get(ctx, "/queues/diagnostics", params)
	if err != nil {
		if timedOut(err) {
			return nil, sources.Unavailable(datatypes.SourceComponentPoll, "AsyncGate queue poll timed out")
		}
		return nil, sources.UnavailableWrap(datatypes.SourceComponentPoll, "AsyncGate queue poll failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sources.Unavailable(datatypes.SourceComponentPoll,
			fmt.Sprintf("AsyncGate queue poll failed: unexpected status %d", resp.StatusCode))
	}

	var snap datatypes.QueueSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceComponentPoll, "AsyncGate queue poll failed", err)
	}
	return &snap, nil
}

var _ sources.ComponentGate = (*AsyncGateClient)(nil)
