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

// DefaultMirrorTimeout is the default timeout for ledger mirror requests.
const DefaultMirrorTimeout = 30 * time.Second

// ReceiptGateClient reads the ReceiptGate ledger mirror: the near-realtime
// read replica of receipt headers and full receipts.
//
// # Description
//
// The mirror is the second tier of the source hierarchy, behind the
// projection cache. A receipt the mirror answers 404 for is absent, not an
// error; everything else that prevents an answer (no configured URL,
// transport failure, unexpected status, undecodable body) is reported as
// ledger mirror unavailability.
//
// # Thread Safety
//
// ReceiptGateClient is safe for concurrent use.
type ReceiptGateClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewReceiptGateClient creates a mirror client. An empty baseURL is
// allowed; calls then fail with a not-configured unavailability, keeping
// the degraded-mode policy in the resolution engine.
func NewReceiptGateClient(baseURL string) *ReceiptGateClient {
	return &ReceiptGateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultMirrorTimeout,
		},
	}
}

// WithTimeout sets a custom timeout for mirror requests.
func (c *ReceiptGateClient) WithTimeout(timeout time.Duration) *ReceiptGateClient {
	c.httpClient.Timeout = timeout
	return c
}

// mirrorSearchResponse is the response body of GET /receipts/search.
type mirrorSearchResponse struct {
	Receipts []datatypes.ReceiptHeader `json:"receipts"`
}

// QueryHeaders searches receipt headers for one lineage.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - q: Bounded query; TenantID, RootTaskID, and Limit are always sent,
//     Phase, RecipientAI, and Since only when set.
//
// # Outputs
//
//   - []datatypes.ReceiptHeader: Matching headers as the mirror returned
//     them.
//   - error: Ledger mirror unavailability when the mirror cannot answer.
func (c *ReceiptGateClient) QueryHeaders(ctx context.Context, q datatypes.ReceiptQuery) ([]datatypes.ReceiptHeader, error) {
	if c.baseURL == "" {
		return nil, sources.Unavailable(datatypes.SourceLedgerMirror, "Ledger mirror URL not configured")
	}

	params := url.Values{}
	params.Set("tenant_id", q.TenantID)
	params.Set("root_task_id", q.RootTaskID)
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Phase != "" {
		params.Set("phase", q.Phase)
	}
	if q.RecipientAI != "" {
		params.Set("recipient_ai", q.RecipientAI)
	}
	if q.Since != nil {
		params.Set("since", q.Since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/receipts/search?"+params.Encode(), nil)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceLedgerMirror, "Ledger mirror query failed", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceLedgerMirror, "Ledger mirror query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sources.Unavailable(datatypes.SourceLedgerMirror,
			fmt.Sprintf("Ledger mirror query failed: unexpected status %d", resp.StatusCode))
	}

	var body mirrorSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceLedgerMirror, "Ledger mirror query failed", err)
	}
	return body.Receipts, nil
}

// GetReceipt fetches one full receipt by id. A 404 from the mirror is an
// absent receipt: (nil, nil).
func (c *ReceiptGateClient) GetReceipt(ctx context.Context, tenantID, receiptID string) (*datatypes.FullReceipt, error) {
	if c.baseURL == "" {
		return nil, sources.Unavailable(datatypes.SourceLedgerMirror, "Ledger mirror URL not configured")
	}

	params := url.Values{}
	params.Set("tenant_id", tenantID)

	reqURL := c.baseURL + "/receipts/" + url.PathEscape(receiptID) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceLedgerMirror, "Ledger mirror get failed", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceLedgerMirror, "Ledger mirror get failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, sources.Unavailable(datatypes.SourceLedgerMirror,
			fmt.Sprintf("Ledger mirror get failed: unexpected status %d", resp.StatusCode))
	}

	var receipt datatypes.FullReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, sources.UnavailableWrap(datatypes.SourceLedgerMirror, "Ledger mirror get failed", err)
	}
	return &receipt, nil
}

var _ sources.ReceiptLedger = (*ReceiptGateClient)(nil)
