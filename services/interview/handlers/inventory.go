// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/services/interview/datatypes"
)

// InventoryArtifacts serves POST /v1/inventory/artifacts/depot: artifact
// pointer metadata for a lineage or deliverable. Pointers only; blob
// bodies are never read. Unavailability surfaces as 503, there is no
// cheaper source to degrade to.
func InventoryArtifacts(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.InventoryArtifactsRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.ListArtifacts(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GlobalLedgerReceipts serves POST /v1/global-ledger/receipts: the opt-in
// direct ledger query. Denied 403 when the gate is off, whatever the
// ledger's health.
func GlobalLedgerReceipts(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.GlobalLedgerRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.QueryGlobalLedger(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
