// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/middleware"
	"github.com/PStryder/InterView/services/interview/sources"
)

// MCPRequest is the JSON-RPC 2.0 envelope accepted at POST /mcp.
type MCPRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
	ID      interface{}            `json:"id"`
}

// MCPTool describes one entry of the tools/list catalog.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

// mcpTools is the full catalog. Every tool is read-only; there are no
// mutating tools to list.
var mcpTools = []MCPTool{
	{Name: "interview.health", Description: "Health check / service info", InputSchema: emptySchema()},
	{Name: "status.receipts.interview", Description: "Get derived status for a task lineage", InputSchema: emptySchema()},
	{Name: "search.receipts.interview", Description: "Search receipt headers with strict bounds", InputSchema: emptySchema()},
	{Name: "get.receipt.interview", Description: "Retrieve a single receipt by ID", InputSchema: emptySchema()},
	{Name: "health.async.interview", Description: "Live health snapshot of AsyncGate", InputSchema: emptySchema()},
	{Name: "queue.async.interview", Description: "Live AsyncGate queue diagnostics", InputSchema: emptySchema()},
	{Name: "inventory.artifacts.depot.interview", Description: "List artifact pointers for a task lineage", InputSchema: emptySchema()},
	{Name: "global.ledger.receipts", Description: "Direct global ledger query (disabled by default)", InputSchema: emptySchema()},
}

func jsonrpcResult(id, result interface{}) gin.H {
	return gin.H{"jsonrpc": "2.0", "id": id, "result": result}
}

func jsonrpcError(id, code interface{}, message string) gin.H {
	return gin.H{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   gin.H{"code": code, "message": message},
	}
}

// MCPOptions wires the MCP entry point.
type MCPOptions struct {
	Resolver         Resolver
	Keys             middleware.KeyVerifier
	AllowInsecureDev bool
	Version          string
	InstanceID       string
}

// MCP serves POST /mcp. tools/list needs no key; tools/call authenticates
// per call, accepting the key in arguments.auth_token, the Authorization
// Bearer header, or X-API-Key. Every response is HTTP 200 with a JSON-RPC
// result or error object; only the inbound rate limiter answers outside
// the envelope.
func MCP(opts MCPOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MCPRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusOK, jsonrpcError(nil, -32700, "Parse error"))
			return
		}

		switch req.Method {
		case "tools/list":
			c.JSON(http.StatusOK, jsonrpcResult(req.ID, gin.H{"tools": mcpTools}))
			return
		case "tools/call":
		default:
			c.JSON(http.StatusOK, jsonrpcError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method)))
			return
		}

		name, _ := req.Params["name"].(string)
		if name == "" {
			c.JSON(http.StatusOK, jsonrpcError(req.ID, -32602, "Missing tool name"))
			return
		}
		arguments, _ := req.Params["arguments"].(map[string]interface{})
		if arguments == nil {
			arguments = map[string]interface{}{}
		}

		token := mcpAuthToken(arguments, c)
		if err := verifyMCPKey(opts, token); err != nil {
			c.JSON(http.StatusOK, jsonrpcError(req.ID, "AUTH_FAILED", err.Error()))
			return
		}

		result, err := dispatchTool(c.Request.Context(), opts, name, arguments)
		if err != nil {
			c.JSON(http.StatusOK, jsonrpcError(req.ID, toolErrorCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, jsonrpcResult(req.ID, result))
	}
}

// mcpAuthToken pulls the key out of the call. arguments.auth_token wins
// and is removed so it never reaches tool binding or logs.
func mcpAuthToken(arguments map[string]interface{}, c *gin.Context) string {
	if raw, ok := arguments["auth_token"]; ok {
		delete(arguments, "auth_token")
		if token, ok := raw.(string); ok && token != "" {
			return token
		}
	}
	authHeader := c.GetHeader("Authorization")
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(c.GetHeader("X-API-Key"))
}

// verifyMCPKey applies the same key policy as the HTTP middleware, with
// errors shaped for the JSON-RPC envelope.
func verifyMCPKey(opts MCPOptions, token string) error {
	if opts.AllowInsecureDev {
		return nil
	}
	if token == "" {
		return errors.New("Missing authorization. Use Authorization: Bearer <key> or X-API-Key header")
	}
	if opts.Keys == nil || !opts.Keys.HasKeys() {
		logging.Default().Error("SECURITY VIOLATION: api_key not configured. " +
			"Set INTERVIEW_API_KEY or enable INTERVIEW_ALLOW_INSECURE_DEV=true (dev only).")
		return errors.New("Server misconfigured: authentication not properly initialized")
	}
	if !opts.Keys.Verify(token) {
		return errors.New("Invalid API key")
	}
	return nil
}

// bindArguments maps loosely-typed tool arguments onto a request struct.
func bindArguments(arguments map[string]interface{}, req interface{}) error {
	data, err := json.Marshal(arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, req)
}

// dispatchTool routes one tools/call to the resolver.
func dispatchTool(ctx context.Context, opts MCPOptions, name string, arguments map[string]interface{}) (interface{}, error) {
	switch name {
	case "interview.health":
		return gin.H{
			"status":      "healthy",
			"service":     ServiceName,
			"version":     opts.Version,
			"instance_id": opts.InstanceID,
		}, nil

	case "status.receipts.interview":
		var req datatypes.StatusReceiptsRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.GetStatus(ctx, req)

	case "search.receipts.interview":
		var req datatypes.SearchReceiptsRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.SearchReceipts(ctx, req)

	case "get.receipt.interview":
		var req datatypes.GetReceiptRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.GetReceipt(ctx, req)

	case "health.async.interview":
		var req datatypes.HealthAsyncRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.PollHealth(ctx, req)

	case "queue.async.interview":
		var req datatypes.QueueAsyncRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.PollQueue(ctx, req)

	case "inventory.artifacts.depot.interview":
		var req datatypes.InventoryArtifactsRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.ListArtifacts(ctx, req)

	case "global.ledger.receipts":
		var req datatypes.GlobalLedgerRequest
		if err := bindArguments(arguments, &req); err != nil {
			return nil, sources.NewValidationError(err.Error())
		}
		return opts.Resolver.QueryGlobalLedger(ctx, req)
	}

	return nil, fmt.Errorf("Unknown tool: %s", name)
}

// toolErrorCode maps the taxonomy onto JSON-RPC error codes. Codes are
// the same strings the REST surface uses; unknown failures get "ERROR".
func toolErrorCode(err error) interface{} {
	var vErr *sources.ValidationError
	switch {
	case errors.As(err, &vErr):
		return datatypes.ErrCodeValidation
	case errors.Is(err, sources.ErrRateLimited):
		return datatypes.ErrCodeRateLimited
	case errors.Is(err, sources.ErrGlobalLedgerDisabled):
		return datatypes.ErrCodeGlobalLedgerDisabled
	case errors.Is(err, sources.ErrSourceUnavailable):
		return datatypes.ErrCodeSourceUnavailable
	default:
		return "ERROR"
	}
}
