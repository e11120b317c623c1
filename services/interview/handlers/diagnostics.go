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

// HealthAsync serves POST /v1/health/async: a live, rate-limited AsyncGate
// health snapshot. Unreachability returns reachable=false with 200; only a
// poll-budget rejection surfaces as 429.
func HealthAsync(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.HealthAsyncRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.PollHealth(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// QueueAsync serves POST /v1/queue/async: bounded queue diagnostics under
// the same poll budget as HealthAsync.
func QueueAsync(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.QueueAsyncRequest
		if err := c.BindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		resp, err := resolver.PollQueue(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
