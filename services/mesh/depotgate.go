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

// DefaultDepotTimeout is the default timeout for DepotGate metadata queries.
const DefaultDepotTimeout = 30 * time.Second

// DepotGateClient lists staged-artifact metadata through the DepotGate
// HTTP API. Pointers and counts only; artifact payloads are never fetched.
//
// # Thread Safety
//
// DepotGateClient is safe for concurrent use.
type DepotGateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDepotGateClient creates a DepotGate client. An empty baseURL is
// allowed; calls then fail with a not-configured unavailability.
func NewDepotGateClient(baseURL string) *DepotGateClient {
	return &DepotGateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultDepotTimeout,
		},
	}
}

// WithTimeout sets a custom timeout for metadata queries.
func (c *DepotGateClient) WithTimeout(timeout time.Duration) *DepotGateClient {
	c.httpClient.Timeout = timeout
	return c
}

// WithAPIKey sets the X-API-Key header sent on every query.
func (c *DepotGateClient) WithAPIKey(key string) *DepotGateClient {
	c.apiKey = key
	return c
}

type artifactMetadataResponse struct {
	Artifacts               []datatypes.ArtifactPointer   `json:"artifacts"`
	ShipmentManifestPointer string                        `json:"shipment_manifest_pointer"`
	StagedCounts            *datatypes.StagedCountsByRole `json:"staged_counts"`
}

// ListArtifacts queries GET /artifacts/metadata scoped by lineage or
// deliverable. The selector requirement is enforced upstream; this client
// forwards whichever identifiers are present.
func (c *DepotGateClient) ListArtifacts(ctx context.Context, q datatypes.ArtifactQuery) (*datatypes.ArtifactInventory, error) {
	if c.baseURL == "" {
		return nil, sources.Unavailable(datatypes.SourceStorageMetadata, "DepotGate URL not configured")
	}

	params := url.Values{}
	params.Set("tenant_id", q.TenantID)
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.RootTaskID != "" {
		params.Set("root_task_id", q.RootTaskID)
	}
	if q.DeliverableID != "" {
		params.Set("deliverable_id", q.DeliverableID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/artifacts/metadata?"+params.Encode(), nil)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceStorageMetadata, "DepotGate metadata query failed", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceStorageMetadata, "DepotGate metadata query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sources.Unavailable(datatypes.SourceStorageMetadata,
			fmt.Sprintf("DepotGate metadata query failed: unexpected status %d", resp.StatusCode))
	}

	var body artifactMetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceStorageMetadata, "DepotGate metadata query failed", err)
	}

	return &datatypes.ArtifactInventory{
		Pointers:                body.Artifacts,
		ShipmentManifestPointer: body.ShipmentManifestPointer,
		StagedCounts:            body.StagedCounts,
	}, nil
}

var _ sources.ArtifactIndex = (*DepotGateClient)(nil)
