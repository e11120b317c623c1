// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes registers every HTTP surface of the service.
//
// Three auth tiers: /health, /, and /metrics are open; /mcp sits behind
// the inbound rate limiter but authenticates per tools/call inside the
// JSON-RPC envelope (tools/list needs no key); everything under /v1
// requires an API key and the rate limiter.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/handlers"
	"github.com/PStryder/InterView/services/interview/middleware"
	"github.com/PStryder/InterView/services/interview/observability"
	"github.com/PStryder/InterView/services/interview/stream"
	"github.com/PStryder/InterView/services/mesh"
)

// Deps carries everything the routes need. All fields are required unless
// noted.
type Deps struct {
	Resolver handlers.Resolver
	Keys     middleware.KeyVerifier
	// Identity resolves verified keys to caller identities. Nil leaves
	// requests without an AuthInfo.
	Identity extensions.AuthProvider
	// Limiter may be nil to disable inbound rate limiting.
	Limiter *middleware.ClientLimiter
	Metrics *observability.ResolutionMetrics
	Hub     *stream.Hub
	Audit   handlers.AuditStore
	Prober  handlers.MeshProber
	// Endpoints are the mesh components /v1/mesh/health probes.
	Endpoints []mesh.Endpoint

	AllowInsecureDev bool
	Version          string
	InstanceID       string
	Logger           *logging.Logger
}

// SetupRoutes registers all routes on the router. Engine-wide middleware
// (tracing, CORS, request metrics) is applied by the caller before this
// runs so it covers open routes too.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck(deps.Version, deps.InstanceID))
	router.GET("/", handlers.Root(deps.Version))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimit := middleware.RateLimit(deps.Limiter, deps.Metrics)

	// MCP speaks JSON-RPC and reports auth failures inside the envelope,
	// so the key middleware stays off this group.
	mcp := router.Group("/mcp")
	mcp.Use(rateLimit)
	{
		mcp.POST("", handlers.MCP(handlers.MCPOptions{
			Resolver:         deps.Resolver,
			Keys:             deps.Keys,
			AllowInsecureDev: deps.AllowInsecureDev,
			Version:          deps.Version,
			InstanceID:       deps.InstanceID,
		}))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyAuth(deps.Keys, deps.Identity, deps.AllowInsecureDev, deps.Logger), rateLimit)
	{
		v1.POST("/status/receipts", handlers.StatusReceipts(deps.Resolver))
		v1.POST("/search/receipts", handlers.SearchReceipts(deps.Resolver))
		v1.POST("/get/receipt", handlers.GetReceipt(deps.Resolver))
		v1.POST("/health/async", handlers.HealthAsync(deps.Resolver))
		v1.POST("/queue/async", handlers.QueueAsync(deps.Resolver))
		v1.POST("/inventory/artifacts/depot", handlers.InventoryArtifacts(deps.Resolver))
		v1.POST("/global-ledger/receipts", handlers.GlobalLedgerReceipts(deps.Resolver))
		v1.POST("/mesh/health", handlers.MeshHealth(deps.Prober, deps.Endpoints))
		v1.POST("/audit/recent", handlers.AuditRecent(deps.Audit))
		v1.GET("/stream", handlers.Stream(deps.Hub))
	}
}
