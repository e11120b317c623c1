// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the InterView service.
//
// This package contains middleware for API key authentication and inbound
// rate limiting. Both run before any handler on the protected route
// groups; health and doctrine endpoints stay open.
//
// # Authentication Flow
//
// The auth middleware extracts an API key from the Authorization header
// (Bearer scheme) or the X-API-Key header, with Bearer taking precedence,
// and verifies it against the configured key store.
//
//	Request
//	   │
//	   ▼
//	APIKeyAuth
//	   │
//	   ├─► Extract key: "Authorization: Bearer iv_..." else "X-API-Key"
//	   │
//	   ├─► keys.Verify(key)  (constant time, whole set)
//	   │
//	   ├─► identity.Validate(key)  (resolves the caller's AuthInfo)
//	   │
//	   └─► Store client key and AuthInfo in context
//	           │
//	           ▼
//	       RateLimit (keys per client)
//	           │
//	           ▼
//	       Handler
//
// # Dev Mode
//
// With INTERVIEW_ALLOW_INSECURE_DEV=true the auth middleware passes every
// request through. The bypass is logged loudly at startup; it exists for
// local development only.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/datatypes"
)

// =============================================================================
// Context Keys
// =============================================================================

// clientKeyKey is the context key holding the rate-limit identity of the
// request: the verified API key, or the client IP when no key was
// presented. Using a typed key prevents collisions with other context
// values.
const clientKeyKey = "interview_client_key"

// authInfoKey is the context key holding the resolved caller identity.
const authInfoKey = "interview_auth_info"

// =============================================================================
// Context Helpers
// =============================================================================

// SetClientKey stores the request's rate-limit identity in the Gin context.
func SetClientKey(c *gin.Context, key string) {
	c.Set(clientKeyKey, key)
}

// ClientKey retrieves the request's rate-limit identity. Returns the
// client IP when auth has not stamped an identity.
func ClientKey(c *gin.Context) string {
	if v, exists := c.Get(clientKeyKey); exists {
		if key, ok := v.(string); ok && key != "" {
			return key
		}
	}
	return c.ClientIP()
}

// SetAuthInfo stores the resolved caller identity in the Gin context.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the caller identity stamped by APIKeyAuth.
// Returns nil when auth did not run or no identity provider is wired.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if v, exists := c.Get(authInfoKey); exists {
		if info, ok := v.(*extensions.AuthInfo); ok {
			return info
		}
	}
	return nil
}

// =============================================================================
// Auth Middleware
// =============================================================================

// KeyVerifier is the key store surface the middleware needs.
type KeyVerifier interface {
	// Verify reports whether candidate matches a configured key.
	Verify(candidate string) bool
	// HasKeys reports whether any key is configured at all.
	HasKeys() bool
}

// APIKeyAuth creates a Gin middleware that authenticates requests against
// the configured API keys.
//
// # Description
//
// The key is read from "Authorization: Bearer <key>" first, then from the
// X-API-Key header. A request with no key is rejected 401 before the key
// store is consulted. A server with auth enabled but no keys configured
// rejects 503 and logs a security violation; serving unauthenticated
// reads by accident is the one failure mode this facade must not have.
//
// Once the key verifies, the identity provider resolves it to an AuthInfo
// stamped into the context via SetAuthInfo. The provider may reject a key
// the store accepted, which lets deployments enforce revocation or expiry
// on top of raw key possession. The insecure dev bypass stamps the "dev"
// identity without consulting either.
//
// # Inputs
//
//   - keys: verifier backing the check. Must not be nil unless
//     allowInsecureDev is set.
//   - identity: resolves verified keys to caller identities. Nil skips
//     the identity step; GetAuthInfo then returns nil.
//   - allowInsecureDev: disables authentication entirely.
//   - logger: receives the misconfiguration log. Nil falls back to the
//     process default.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func APIKeyAuth(keys KeyVerifier, identity extensions.AuthProvider, allowInsecureDev bool, logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(c *gin.Context) {
		key := presentedKey(c)

		if allowInsecureDev {
			SetClientKey(c, key)
			SetAuthInfo(c, &extensions.AuthInfo{Subject: "dev", Roles: []string{"observer"}})
			c.Next()
			return
		}

		if key == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, datatypes.ErrorResponse{
				ErrorCode: datatypes.ErrCodeAuthFailed,
				Message:   "Missing authorization. Use Authorization: Bearer <key> or X-API-Key header",
			})
			return
		}

		if keys == nil || !keys.HasKeys() {
			logger.Error("SECURITY VIOLATION: api_key not configured. " +
				"Set INTERVIEW_API_KEY or enable INTERVIEW_ALLOW_INSECURE_DEV=true (dev only).")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
				ErrorCode: datatypes.ErrCodeInternal,
				Message:   "Server misconfigured: authentication not properly initialized",
			})
			return
		}

		if !keys.Verify(key) {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, datatypes.ErrorResponse{
				ErrorCode: datatypes.ErrCodeAuthFailed,
				Message:   "Invalid API key",
			})
			return
		}

		if identity != nil {
			info, err := identity.Validate(c.Request.Context(), key)
			if err != nil {
				if errors.Is(err, extensions.ErrAuthNotConfigured) {
					logger.Error("SECURITY VIOLATION: identity provider cannot verify credentials. " +
						"Fix the injected AuthProvider or fall back to the default.")
					c.AbortWithStatusJSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
						ErrorCode: datatypes.ErrCodeInternal,
						Message:   "Server misconfigured: authentication not properly initialized",
					})
					return
				}
				c.Header("WWW-Authenticate", "Bearer")
				c.AbortWithStatusJSON(http.StatusUnauthorized, datatypes.ErrorResponse{
					ErrorCode: datatypes.ErrCodeAuthFailed,
					Message:   "Invalid API key",
				})
				return
			}
			SetAuthInfo(c, info)
		}

		SetClientKey(c, key)
		c.Next()
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// presentedKey extracts the API key from the request. Bearer wins over
// X-API-Key when both are present.
func presentedKey(c *gin.Context) string {
	if token := extractBearerToken(c); token != "" {
		return token
	}
	return strings.TrimSpace(c.GetHeader("X-API-Key"))
}

// extractBearerToken extracts the token from the Authorization header.
// The "Bearer" prefix is case-insensitive per RFC 7235; returns empty
// string if the header is missing or malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
