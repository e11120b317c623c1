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

// StatusReceipts serves POST /v1/status/receipts: the derived status of a
// task lineage, cheapest source first.
func StatusReceipts(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StatusReceiptsRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.GetStatus(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SearchReceipts serves POST /v1/search/receipts: bounded header search
// within one lineage, newest first, never full bodies.
func SearchReceipts(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SearchReceiptsRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.SearchReceipts(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetReceipt serves POST /v1/get/receipt. Absence is found=false with 200,
// not an error.
func GetReceipt(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.GetReceiptRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.GetReceipt(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
