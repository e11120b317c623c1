// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/sources"
	"github.com/PStryder/InterView/services/mesh"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockResolver substitutes the source manager in handler tests. Unset
// methods return an empty response.
type mockResolver struct {
	GetStatusFunc         func(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error)
	SearchReceiptsFunc    func(ctx context.Context, req datatypes.SearchReceiptsRequest) (*datatypes.SearchReceiptsResponse, error)
	GetReceiptFunc        func(ctx context.Context, req datatypes.GetReceiptRequest) (*datatypes.GetReceiptResponse, error)
	PollHealthFunc        func(ctx context.Context, req datatypes.HealthAsyncRequest) (*datatypes.HealthAsyncResponse, error)
	PollQueueFunc         func(ctx context.Context, req datatypes.QueueAsyncRequest) (*datatypes.QueueAsyncResponse, error)
	ListArtifactsFunc     func(ctx context.Context, req datatypes.InventoryArtifactsRequest) (*datatypes.InventoryArtifactsResponse, error)
	QueryGlobalLedgerFunc func(ctx context.Context, req datatypes.GlobalLedgerRequest) (*datatypes.GlobalLedgerResponse, error)
}

func (m *mockResolver) GetStatus(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, req)
	}
	return &datatypes.StatusReceiptsResponse{}, nil
}

func (m *mockResolver) SearchReceipts(ctx context.Context, req datatypes.SearchReceiptsRequest) (*datatypes.SearchReceiptsResponse, error) {
	if m.SearchReceiptsFunc != nil {
		return m.SearchReceiptsFunc(ctx, req)
	}
	return &datatypes.SearchReceiptsResponse{}, nil
}

func (m *mockResolver) GetReceipt(ctx context.Context, req datatypes.GetReceiptRequest) (*datatypes.GetReceiptResponse, error) {
	if m.GetReceiptFunc != nil {
		return m.GetReceiptFunc(ctx, req)
	}
	return &datatypes.GetReceiptResponse{}, nil
}

func (m *mockResolver) PollHealth(ctx context.Context, req datatypes.HealthAsyncRequest) (*datatypes.HealthAsyncResponse, error) {
	if m.PollHealthFunc != nil {
		return m.PollHealthFunc(ctx, req)
	}
	return &datatypes.HealthAsyncResponse{}, nil
}

func (m *mockResolver) PollQueue(ctx context.Context, req datatypes.QueueAsyncRequest) (*datatypes.QueueAsyncResponse, error) {
	if m.PollQueueFunc != nil {
		return m.PollQueueFunc(ctx, req)
	}
	return &datatypes.QueueAsyncResponse{}, nil
}

func (m *mockResolver) ListArtifacts(ctx context.Context, req datatypes.InventoryArtifactsRequest) (*datatypes.InventoryArtifactsResponse, error) {
	if m.ListArtifactsFunc != nil {
		return m.ListArtifactsFunc(ctx, req)
	}
	return &datatypes.InventoryArtifactsResponse{}, nil
}

func (m *mockResolver) QueryGlobalLedger(ctx context.Context, req datatypes.GlobalLedgerRequest) (*datatypes.GlobalLedgerResponse, error) {
	if m.QueryGlobalLedgerFunc != nil {
		return m.QueryGlobalLedgerFunc(ctx, req)
	}
	return &datatypes.GlobalLedgerResponse{}, nil
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) datatypes.ErrorResponse {
	t.Helper()
	var body datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// =============================================================================
// HealthCheck / Root Tests
// =============================================================================

func TestHealthCheck_ReturnsServiceIdentity(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck("0.1.0", "interview-1"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body datatypes.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "InterView", body.Service)
	assert.Equal(t, "0.1.0", body.Version)
	assert.Equal(t, "interview-1", body.InstanceID)
}

func TestRoot_ServiceCardListsSurfaces(t *testing.T) {
	router := gin.New()
	router.GET("/", Root("0.1.0"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Service  string   `json:"service"`
		Version  string   `json:"version"`
		Doctrine string   `json:"doctrine"`
		Surfaces []string `json:"surfaces"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "InterView", body.Service)
	assert.Equal(t, Doctrine, body.Doctrine)
	assert.Len(t, body.Surfaces, 6)
	assert.Contains(t, body.Surfaces, "status.receipts.interview")
	assert.Contains(t, body.Surfaces, "inventory.artifacts.depot.interview")
}

// =============================================================================
// StatusReceipts Tests
// =============================================================================

func TestStatusReceipts_ReturnsResolverPayload(t *testing.T) {
	var seen datatypes.StatusReceiptsRequest
	resolver := &mockResolver{
		GetStatusFunc: func(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error) {
			seen = req
			return &datatypes.StatusReceiptsResponse{
				Status: datatypes.StatusSummary{
					TenantID:         "tenant-a",
					RootTaskID:       "task-1",
					State:            datatypes.TaskStateShipped,
					ArtifactPointers: []string{},
				},
				Metadata: datatypes.ResponseMetadata{Source: datatypes.SourceProjectionCache, CostUnits: 1},
			}, nil
		},
	}
	router := gin.New()
	router.POST("/v1/status/receipts", StatusReceipts(resolver))

	w := postJSON(t, router, "/v1/status/receipts", `{"tenant_id":"tenant-a","root_task_id":"task-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-a", seen.TenantID)
	assert.Equal(t, "task-1", seen.RootTaskID)

	var body datatypes.StatusReceiptsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, datatypes.TaskStateShipped, body.Status.State)
	assert.Equal(t, datatypes.SourceProjectionCache, body.Metadata.Source)
	assert.Equal(t, 1, body.Metadata.CostUnits)
}

func TestStatusReceipts_MalformedBodyReturns400(t *testing.T) {
	router := gin.New()
	router.POST("/v1/status/receipts", StatusReceipts(&mockResolver{}))

	w := postJSON(t, router, "/v1/status/receipts", "{invalid json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, datatypes.ErrCodeValidation, body.ErrorCode)
	assert.Equal(t, "Invalid request body", body.Message)
	assert.NotEmpty(t, body.Detail)
}

func TestStatusReceipts_ValidationErrorReturns400(t *testing.T) {
	resolver := &mockResolver{
		GetStatusFunc: func(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error) {
			return nil, sources.NewValidationError("Either task_id or root_task_id is required")
		},
	}
	router := gin.New()
	router.POST("/v1/status/receipts", StatusReceipts(resolver))

	w := postJSON(t, router, "/v1/status/receipts", `{"tenant_id":"tenant-a"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, datatypes.ErrCodeValidation, body.ErrorCode)
	assert.Equal(t, "Either task_id or root_task_id is required", body.Message)
}

// =============================================================================
// Error Taxonomy Mapping Tests
// =============================================================================

func TestHealthAsync_RateLimitReturns429(t *testing.T) {
	resolver := &mockResolver{
		PollHealthFunc: func(ctx context.Context, req datatypes.HealthAsyncRequest) (*datatypes.HealthAsyncResponse, error) {
			return nil, &sources.RateLimitError{Component: "AsyncGate", PerMinute: 60}
		},
	}
	router := gin.New()
	router.POST("/v1/health/async", HealthAsync(resolver))

	w := postJSON(t, router, "/v1/health/async", `{"tenant_id":"tenant-a"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, datatypes.ErrCodeRateLimited, body.ErrorCode)
	assert.Equal(t, "Rate limit exceeded for AsyncGate polls", body.Message)
}

func TestQueueAsync_ReturnsQueueDiagnostics(t *testing.T) {
	resolver := &mockResolver{
		PollQueueFunc: func(ctx context.Context, req datatypes.QueueAsyncRequest) (*datatypes.QueueAsyncResponse, error) {
			return &datatypes.QueueAsyncResponse{
				QueueDepth: 3,
				Items:      []datatypes.QueueItemHeader{},
				Metadata:   datatypes.ResponseMetadata{Source: datatypes.SourceComponentPoll, CostUnits: 5},
			}, nil
		},
	}
	router := gin.New()
	router.POST("/v1/queue/async", QueueAsync(resolver))

	w := postJSON(t, router, "/v1/queue/async", `{"tenant_id":"tenant-a"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var body datatypes.QueueAsyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.QueueDepth)
	assert.Equal(t, 5, body.Metadata.CostUnits)
}

func TestGlobalLedger_DisabledReturns403(t *testing.T) {
	resolver := &mockResolver{
		QueryGlobalLedgerFunc: func(ctx context.Context, req datatypes.GlobalLedgerRequest) (*datatypes.GlobalLedgerResponse, error) {
			return nil, &sources.GlobalLedgerDisabledError{}
		},
	}
	router := gin.New()
	router.POST("/v1/global-ledger/receipts", GlobalLedgerReceipts(resolver))

	w := postJSON(t, router, "/v1/global-ledger/receipts", `{"tenant_id":"tenant-a"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, datatypes.ErrCodeGlobalLedgerDisabled, body.ErrorCode)
	assert.Equal(t, "Global ledger access is disabled", body.Message)
	assert.Equal(t, "Set INTERVIEW_ALLOW_GLOBAL_LEDGER=true to enable direct ledger queries", body.Detail)
}

func TestInventoryArtifacts_UnavailableReturns503(t *testing.T) {
	resolver := &mockResolver{
		ListArtifactsFunc: func(ctx context.Context, req datatypes.InventoryArtifactsRequest) (*datatypes.InventoryArtifactsResponse, error) {
			return nil, sources.Unavailable(datatypes.SourceStorageMetadata, "DepotGate endpoint not configured")
		},
	}
	router := gin.New()
	router.POST("/v1/inventory/artifacts/depot", InventoryArtifacts(resolver))

	w := postJSON(t, router, "/v1/inventory/artifacts/depot", `{"tenant_id":"tenant-a","root_task_id":"task-1"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, datatypes.ErrCodeSourceUnavailable, body.ErrorCode)
	assert.Equal(t, "DepotGate endpoint not configured", body.Message)
}

func TestGetReceipt_UnexpectedErrorReturns500(t *testing.T) {
	resolver := &mockResolver{
		GetReceiptFunc: func(ctx context.Context, req datatypes.GetReceiptRequest) (*datatypes.GetReceiptResponse, error) {
			return nil, errors.New("projection cache corrupted")
		},
	}
	router := gin.New()
	router.POST("/v1/get/receipt", GetReceipt(resolver))

	w := postJSON(t, router, "/v1/get/receipt", `{"tenant_id":"tenant-a","receipt_id":"rcpt-1"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, datatypes.ErrCodeInternal, body.ErrorCode)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestSearchReceipts_ReturnsHeaders(t *testing.T) {
	resolver := &mockResolver{
		SearchReceiptsFunc: func(ctx context.Context, req datatypes.SearchReceiptsRequest) (*datatypes.SearchReceiptsResponse, error) {
			return &datatypes.SearchReceiptsResponse{
				Receipts: []datatypes.ReceiptHeader{
					{ReceiptID: "rcpt-1", TenantID: "tenant-a"},
					{ReceiptID: "rcpt-2", TenantID: "tenant-a"},
				},
				Metadata: datatypes.ResponseMetadata{Source: datatypes.SourceLedgerMirror, Truncated: true, CostUnits: 2},
			}, nil
		},
	}
	router := gin.New()
	router.POST("/v1/search/receipts", SearchReceipts(resolver))

	w := postJSON(t, router, "/v1/search/receipts", `{"tenant_id":"tenant-a","root_task_id":"task-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var body datatypes.SearchReceiptsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Receipts, 2)
	assert.True(t, body.Metadata.Truncated)
}

// =============================================================================
// Mesh Health Tests
// =============================================================================

type stubProber struct {
	verdicts []mesh.EndpointHealth
}

func (p *stubProber) Check(ctx context.Context, endpoints []mesh.Endpoint) []mesh.EndpointHealth {
	return p.verdicts
}

func TestMeshHealth_ReportsAllComponents(t *testing.T) {
	prober := &stubProber{verdicts: []mesh.EndpointHealth{
		{Component: "AsyncGate", Configured: true, Reachable: true, LatencyMS: 12},
		{Component: "DepotGate", Configured: false, Reachable: false},
	}}
	router := gin.New()
	router.POST("/v1/mesh/health", MeshHealth(prober, []mesh.Endpoint{
		{Component: "AsyncGate", URL: "http://asyncgate:8010"},
		{Component: "DepotGate"},
	}))

	w := postJSON(t, router, "/v1/mesh/health", `{}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Components []mesh.EndpointHealth `json:"components"`
		CheckedAt  string                `json:"checked_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Components, 2)
	assert.Equal(t, "AsyncGate", body.Components[0].Component)
	assert.True(t, body.Components[0].Reachable)
	assert.False(t, body.Components[1].Configured)
	assert.NotEmpty(t, body.CheckedAt)
}
