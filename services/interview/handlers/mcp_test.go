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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/sources"
)

type mcpKeyVerifier struct {
	valid  string
	noKeys bool
	seen   []string
}

func (v *mcpKeyVerifier) Verify(key string) bool {
	v.seen = append(v.seen, key)
	return key == v.valid
}

func (v *mcpKeyVerifier) HasKeys() bool { return !v.noKeys }

type mcpEnvelope struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Result  map[string]interface{} `json:"result"`
	Error   *struct {
		Code    interface{} `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func newMCPRouter(opts MCPOptions) *gin.Engine {
	router := gin.New()
	router.POST("/mcp", MCP(opts))
	return router
}

func callMCP(t *testing.T, router *gin.Engine, body string, header http.Header) mcpEnvelope {
	t.Helper()
	req, err := http.NewRequest("POST", "/mcp", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The envelope carries success and failure alike; transport stays 200.
	require.Equal(t, http.StatusOK, w.Code)

	var env mcpEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "2.0", env.JSONRPC)
	return env
}

// =============================================================================
// Envelope Tests
// =============================================================================

func TestMCP_ToolsListNeedsNoKey(t *testing.T) {
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}})

	env := callMCP(t, router, `{"jsonrpc":"2.0","method":"tools/list","id":1}`, nil)

	require.Nil(t, env.Error)
	tools, ok := env.Result["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 8)

	names := make([]string, 0, len(tools))
	for _, raw := range tools {
		tool, ok := raw.(map[string]interface{})
		require.True(t, ok)
		name, _ := tool["name"].(string)
		names = append(names, name)
		assert.NotEmpty(t, tool["description"])
		assert.NotNil(t, tool["inputSchema"])
	}
	assert.Contains(t, names, "interview.health")
	assert.Contains(t, names, "status.receipts.interview")
	assert.Contains(t, names, "global.ledger.receipts")
}

func TestMCP_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}})

	env := callMCP(t, router, `{"jsonrpc":"2.0","method":"resources/list","id":2}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, float64(-32601), env.Error.Code)
	assert.Equal(t, "Method not found: resources/list", env.Error.Message)
}

func TestMCP_MissingToolNameReturnsInvalidParams(t *testing.T) {
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}})

	env := callMCP(t, router, `{"jsonrpc":"2.0","method":"tools/call","params":{},"id":3}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, float64(-32602), env.Error.Code)
	assert.Equal(t, "Missing tool name", env.Error.Message)
}

func TestMCP_IDEchoedBack(t *testing.T) {
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}})

	env := callMCP(t, router, `{"jsonrpc":"2.0","method":"tools/list","id":"req-abc-42"}`, nil)

	assert.Equal(t, "req-abc-42", env.ID)
}

// =============================================================================
// Auth Tests
// =============================================================================

func TestMCP_MissingKeyReturnsAuthFailed(t *testing.T) {
	keys := &mcpKeyVerifier{valid: "iv_good"}
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}, Keys: keys})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"interview.health"},"id":4}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTH_FAILED", env.Error.Code)
	assert.Equal(t, "Missing authorization. Use Authorization: Bearer <key> or X-API-Key header", env.Error.Message)
	assert.Empty(t, keys.seen)
}

func TestMCP_InvalidKeyReturnsAuthFailed(t *testing.T) {
	keys := &mcpKeyVerifier{valid: "iv_good"}
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}, Keys: keys})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"interview.health","arguments":{"auth_token":"iv_wrong"}},"id":5}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTH_FAILED", env.Error.Code)
	assert.Equal(t, "Invalid API key", env.Error.Message)
	assert.Equal(t, []string{"iv_wrong"}, keys.seen)
}

func TestMCP_NoKeysConfiguredReturnsAuthFailed(t *testing.T) {
	keys := &mcpKeyVerifier{noKeys: true}
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}, Keys: keys})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"interview.health","arguments":{"auth_token":"iv_any"}},"id":6}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTH_FAILED", env.Error.Code)
	assert.Equal(t, "Server misconfigured: authentication not properly initialized", env.Error.Message)
}

func TestMCP_AuthTokenArgumentAuthenticates(t *testing.T) {
	keys := &mcpKeyVerifier{valid: "iv_good"}
	router := newMCPRouter(MCPOptions{
		Resolver:   &mockResolver{},
		Keys:       keys,
		Version:    "0.1.0",
		InstanceID: "interview-1",
	})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"interview.health","arguments":{"auth_token":"iv_good"}},"id":7}`, nil)

	require.Nil(t, env.Error)
	assert.Equal(t, "healthy", env.Result["status"])
	assert.Equal(t, "InterView", env.Result["service"])
	assert.Equal(t, "0.1.0", env.Result["version"])
	assert.Equal(t, "interview-1", env.Result["instance_id"])
}

func TestMCP_BearerHeaderAuthenticates(t *testing.T) {
	keys := &mcpKeyVerifier{valid: "iv_good"}
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}, Keys: keys})

	header := http.Header{}
	header.Set("Authorization", "Bearer iv_good")
	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"interview.health"},"id":8}`, header)

	require.Nil(t, env.Error)
	assert.Equal(t, []string{"iv_good"}, keys.seen)
}

func TestMCP_InsecureDevSkipsAuth(t *testing.T) {
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}, AllowInsecureDev: true})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"interview.health"},"id":9}`, nil)

	require.Nil(t, env.Error)
	assert.Equal(t, "healthy", env.Result["status"])
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestMCP_ToolCallBindsArguments(t *testing.T) {
	var seen datatypes.StatusReceiptsRequest
	resolver := &mockResolver{
		GetStatusFunc: func(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error) {
			seen = req
			return &datatypes.StatusReceiptsResponse{
				Status: datatypes.StatusSummary{TenantID: req.TenantID, RootTaskID: req.RootTaskID, State: datatypes.TaskStateResolved},
			}, nil
		},
	}
	router := newMCPRouter(MCPOptions{Resolver: resolver, AllowInsecureDev: true})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"status.receipts.interview","arguments":{"tenant_id":"tenant-a","root_task_id":"task-1","auth_token":"iv_never_bound"}},"id":10}`, nil)

	require.Nil(t, env.Error)
	assert.Equal(t, "tenant-a", seen.TenantID)
	assert.Equal(t, "task-1", seen.RootTaskID)

	status, ok := env.Result["status"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "resolved", status["state"])
}

func TestMCP_UnknownToolReturnsError(t *testing.T) {
	router := newMCPRouter(MCPOptions{Resolver: &mockResolver{}, AllowInsecureDev: true})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"weird.tool"},"id":11}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, "ERROR", env.Error.Code)
	assert.Equal(t, "Unknown tool: weird.tool", env.Error.Message)
}

func TestMCP_TaxonomyCodeFlowsThroughEnvelope(t *testing.T) {
	resolver := &mockResolver{
		QueryGlobalLedgerFunc: func(ctx context.Context, req datatypes.GlobalLedgerRequest) (*datatypes.GlobalLedgerResponse, error) {
			return nil, &sources.GlobalLedgerDisabledError{}
		},
	}
	router := newMCPRouter(MCPOptions{Resolver: resolver, AllowInsecureDev: true})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"global.ledger.receipts","arguments":{"tenant_id":"tenant-a"}},"id":12}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, datatypes.ErrCodeGlobalLedgerDisabled, env.Error.Code)
	assert.Contains(t, env.Error.Message, "Global ledger access is disabled")
}

func TestMCP_RateLimitCodeFlowsThroughEnvelope(t *testing.T) {
	resolver := &mockResolver{
		PollQueueFunc: func(ctx context.Context, req datatypes.QueueAsyncRequest) (*datatypes.QueueAsyncResponse, error) {
			return nil, &sources.RateLimitError{Component: "AsyncGate", PerMinute: 60}
		},
	}
	router := newMCPRouter(MCPOptions{Resolver: resolver, AllowInsecureDev: true})

	env := callMCP(t, router,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"queue.async.interview","arguments":{"tenant_id":"tenant-a"}},"id":13}`, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, datatypes.ErrCodeRateLimited, env.Error.Code)
	assert.Equal(t, "Rate limit exceeded for AsyncGate polls", env.Error.Message)
}
