// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/services/interview/observability"
)

// ===== Request Metrics =====

// RequestMetrics records a latency observation per request, labeled by
// route template and status code. Unmatched paths count under "unmatched"
// so probes for random URLs cannot blow up label cardinality.
func RequestMetrics(metrics *observability.ResolutionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordRequest(endpoint, status, time.Since(start).Seconds())
	}
}
