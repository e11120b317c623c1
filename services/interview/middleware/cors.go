// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig carries the browser cross-origin policy.
type CORSConfig struct {
	Origins          []string
	AllowCredentials bool
	Methods          []string
	Headers          []string
}

// CORS creates the cross-origin middleware applied to every route,
// including /health and the doctrine root.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     cfg.Methods,
		AllowHeaders:     cfg.Headers,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range cfg.Origins {
		if origin == "*" {
			// A wildcard origin cannot be combined with credentials.
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowOrigins = nil
			corsCfg.AllowCredentials = false
			break
		}
		corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, origin)
	}
	return cors.New(corsCfg)
}
