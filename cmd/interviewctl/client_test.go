// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PStryder/InterView/services/interview/datatypes"
)

// withServer points the package-level client configuration at a test
// server for the duration of one test.
func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	oldURL, oldKey := serverURL, apiKey
	serverURL, apiKey = server.URL, "iv_test_key"
	t.Cleanup(func() { serverURL, apiKey = oldURL, oldKey })
}

func TestPostJSON_SendsBearerAndDecodesResponse(t *testing.T) {
	var gotAuth, gotContentType, gotPath string

	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path

		var req datatypes.StatusReceiptsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tenant-a", req.TenantID)

		json.NewEncoder(w).Encode(datatypes.StatusReceiptsResponse{
			Status: datatypes.StatusSummary{
				TenantID:         "tenant-a",
				RootTaskID:       "root-1",
				State:            datatypes.TaskStateResolved,
				ArtifactPointers: []string{},
			},
			Metadata: datatypes.ResponseMetadata{
				Source:    datatypes.SourceLedgerMirror,
				CostUnits: 5,
			},
		})
	})

	client := newAPIClient()
	var resp datatypes.StatusReceiptsResponse
	err := client.postJSON("/v1/status/receipts",
		datatypes.StatusReceiptsRequest{TenantID: "tenant-a", TaskID: "task-1"}, &resp)

	require.NoError(t, err)
	assert.Equal(t, "Bearer iv_test_key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "/v1/status/receipts", gotPath)
	assert.Equal(t, datatypes.TaskStateResolved, resp.Status.State)
	assert.Equal(t, 5, resp.Metadata.CostUnits)
}

func TestPostJSON_DecodesErrorEnvelope(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(datatypes.ErrorResponse{
			ErrorCode: datatypes.ErrCodeGlobalLedgerDisabled,
			Message:   "Global ledger access is disabled",
		})
	})

	client := newAPIClient()
	err := client.postJSON("/v1/global-ledger/receipts", map[string]string{}, nil)

	require.Error(t, err)
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, datatypes.ErrCodeGlobalLedgerDisabled, apiErr.Body.ErrorCode)
	assert.Contains(t, apiErr.Error(), "Global ledger access is disabled")
	assert.Contains(t, apiErr.Error(), datatypes.ErrCodeGlobalLedgerDisabled)
}

func TestPostJSON_NonJSONErrorBodyStillReportsStatus(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	client := newAPIClient()
	err := client.postJSON("/v1/status/receipts", map[string]string{}, nil)

	require.Error(t, err)
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "502")
}

func TestGetJSON_FetchesHealth(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(datatypes.HealthResponse{
			Status:     "healthy",
			Service:    "InterView",
			Version:    "0.1.0",
			InstanceID: "interview-1",
		})
	})

	client := newAPIClient()
	var resp datatypes.HealthResponse
	require.NoError(t, client.getJSON("/health", &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "InterView", resp.Service)
}

func TestNewAPIClient_TrimsTrailingSlash(t *testing.T) {
	oldURL := serverURL
	serverURL = "http://localhost:8000/"
	t.Cleanup(func() { serverURL = oldURL })

	client := newAPIClient()
	assert.Equal(t, "http://localhost:8000", client.baseURL)
}
