// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the resolution surfaces over HTTP.
//
// Every handler is a thin adapter: bind the request, hand it to the
// source manager, map the error taxonomy onto status codes. Fallback
// policy, cost accounting, and audit emission all live behind the
// Resolver; nothing in this package touches a backing source directly.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/sources"
)

// Doctrine is the one-line contract printed by the root endpoint and the
// startup log. The service queries and reports; it never initiates work,
// routes work, or mutates state.
const Doctrine = "InterView is observational only. A window, not a gate."

// ServiceName identifies this service in payloads and logs.
const ServiceName = "InterView"

// Surfaces lists the public read operations, in resolution-cost order.
var Surfaces = []string{
	"status.receipts.interview",
	"search.receipts.interview",
	"get.receipt.interview",
	"health.async.interview",
	"queue.async.interview",
	"inventory.artifacts.depot.interview",
}

// Resolver is the resolution surface the handlers expose. Implemented by
// sources.SourceManager; tests substitute mocks.
type Resolver interface {
	GetStatus(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error)
	SearchReceipts(ctx context.Context, req datatypes.SearchReceiptsRequest) (*datatypes.SearchReceiptsResponse, error)
	GetReceipt(ctx context.Context, req datatypes.GetReceiptRequest) (*datatypes.GetReceiptResponse, error)
	PollHealth(ctx context.Context, req datatypes.HealthAsyncRequest) (*datatypes.HealthAsyncResponse, error)
	PollQueue(ctx context.Context, req datatypes.QueueAsyncRequest) (*datatypes.QueueAsyncResponse, error)
	ListArtifacts(ctx context.Context, req datatypes.InventoryArtifactsRequest) (*datatypes.InventoryArtifactsResponse, error)
	QueryGlobalLedger(ctx context.Context, req datatypes.GlobalLedgerRequest) (*datatypes.GlobalLedgerResponse, error)
}

// HealthCheck reports service liveness. Open, unauthenticated.
func HealthCheck(version, instanceID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:     "healthy",
			Service:    ServiceName,
			Version:    version,
			InstanceID: instanceID,
		})
	}
}

// Root serves the service card: identity, doctrine, and surface list.
func Root(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":  ServiceName,
			"version":  version,
			"doctrine": Doctrine,
			"surfaces": Surfaces,
		})
	}
}

// respondBadRequest rejects a request that failed to bind.
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
		ErrorCode: datatypes.ErrCodeValidation,
		Message:   "Invalid request body",
		Detail:    err.Error(),
	})
}

// respondError maps the resolution error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var vErr *sources.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			ErrorCode: datatypes.ErrCodeValidation,
			Message:   vErr.Message,
		})
	case errors.Is(err, sources.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
			ErrorCode: datatypes.ErrCodeRateLimited,
			Message:   err.Error(),
		})
	case errors.Is(err, sources.ErrGlobalLedgerDisabled):
		c.JSON(http.StatusForbidden, datatypes.ErrorResponse{
			ErrorCode: datatypes.ErrCodeGlobalLedgerDisabled,
			Message:   "Global ledger access is disabled",
			Detail:    "Set INTERVIEW_ALLOW_GLOBAL_LEDGER=true to enable direct ledger queries",
		})
	case errors.Is(err, sources.ErrSourceUnavailable):
		c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
			ErrorCode: datatypes.ErrCodeSourceUnavailable,
			Message:   err.Error(),
		})
	default:
		logging.Default().Error("Unhandled resolution error", "error", err)
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
			ErrorCode: datatypes.ErrCodeInternal,
			Message:   "Internal server error",
		})
	}
}
