// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/pkg/validation"
	"github.com/PStryder/InterView/services/interview/datatypes"
)

// AuditStore is the journal surface the recent-events endpoint reads.
type AuditStore interface {
	Recent(ctx context.Context, tenantID string, limit int) ([]extensions.AuditEvent, error)
}

// AuditRecentRequest scopes a recent-events scan. Both fields are
// optional; the journal clamps the limit.
type AuditRecentRequest struct {
	TenantID string `json:"tenant_id"`
	Limit    int    `json:"limit"`
}

// AuditRecent serves POST /v1/audit/recent: the newest audit events,
// optionally scoped to one tenant.
func AuditRecent(store AuditStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AuditRecentRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		if err := validation.ValidateOptionalIdentifier("tenant_id", req.TenantID); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				ErrorCode: datatypes.ErrCodeValidation,
				Message:   "Invalid tenant scope",
				Detail:    err.Error(),
			})
			return
		}

		events, err := store.Recent(c.Request.Context(), req.TenantID, req.Limit)
		if err != nil {
			logging.Default().Error("Audit journal scan failed", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				ErrorCode: datatypes.ErrCodeInternal,
				Message:   "Audit journal scan failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"events": events,
			"count":  len(events),
		})
	}
}
