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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/services/mesh"
)

// MeshProber checks downstream endpoints concurrently.
type MeshProber interface {
	Check(ctx context.Context, endpoints []mesh.Endpoint) []mesh.EndpointHealth
}

// MeshHealth serves POST /v1/mesh/health: one reachability verdict per
// configured downstream endpoint. Unconfigured endpoints report
// configured=false rather than being omitted, so the operator sees the
// full mesh shape.
func MeshHealth(prober MeshProber, endpoints []mesh.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		verdicts := prober.Check(c.Request.Context(), endpoints)
		c.JSON(http.StatusOK, gin.H{
			"components": verdicts,
			"checked_at": time.Now().UTC(),
		})
	}
}
