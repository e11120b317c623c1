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
	"strings"
	"time"

	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/sources"
)

// DefaultGlobalLedgerTimeout is the default timeout for direct ledger
// queries.
const DefaultGlobalLedgerTimeout = 30 * time.Second

// GlobalLedgerClient queries the authoritative global ledger directly.
// This is the heavyweight last resort behind the opt-in gate; the client
// itself carries no gating, only the wire call.
//
// # Thread Safety
//
// GlobalLedgerClient is safe for concurrent use.
type GlobalLedgerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGlobalLedgerClient creates a global ledger client. An empty baseURL
// is allowed; calls then fail with a not-configured unavailability.
func NewGlobalLedgerClient(baseURL string) *GlobalLedgerClient {
	return &GlobalLedgerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultGlobalLedgerTimeout,
		},
	}
}

// WithTimeout sets a custom timeout for ledger queries.
func (c *GlobalLedgerClient) WithTimeout(timeout time.Duration) *GlobalLedgerClient {
	c.httpClient.Timeout = timeout
	return c
}

type globalSearchResponse struct {
	Receipts []datatypes.ReceiptHeader `json:"receipts"`
}

// QueryReceipts queries GET /receipts/search for the full receipt set of
// one lineage.
func (c *GlobalLedgerClient) QueryReceipts(ctx context.Context, tenantID, rootTaskID string) ([]datatypes.ReceiptHeader, error) {
	if c.baseURL == "" {
		return nil, sources.Unavailable(datatypes.SourceGlobalLedger, "Global ledger URL not configured")
	}

	params := url.Values{}
	params.Set("tenant_id", tenantID)
	params.Set("root_task_id", rootTaskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/receipts/search?"+params.Encode(), nil)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceGlobalLedger, "Global ledger query failed", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceGlobalLedger, "Global ledger query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sources.Unavailable(datatypes.SourceGlobalLedger,
			fmt.Sprintf("Global ledger query failed: unexpected status %d", resp.StatusCode))
	}

	var body globalSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceGlobalLedger, "Global ledger query failed", err)
	}
	return body.Receipts, nil
}

var _ sources.LedgerGate = (*GlobalLedgerClient)(nil)
