// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/services/interview/datatypes"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// mockKeyVerifier is a configurable key store for testing.
type mockKeyVerifier struct {
	valid   string
	hasKeys bool
}

func (m *mockKeyVerifier) Verify(candidate string) bool {
	return m.hasKeys && candidate == m.valid
}

func (m *mockKeyVerifier) HasKeys() bool { return m.hasKeys }

// mockAuthProvider resolves every token to a fixed identity or error.
type mockAuthProvider struct {
	info *extensions.AuthInfo
	err  error
}

func (m *mockAuthProvider) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

func newAuthRouter(keys KeyVerifier, identity extensions.AuthProvider, allowInsecureDev bool) *gin.Engine {
	router := gin.New()
	router.Use(APIKeyAuth(keys, identity, allowInsecureDev, nil))
	router.GET("/test", func(c *gin.Context) {
		resp := gin.H{"client_key": ClientKey(c)}
		if info := GetAuthInfo(c); info != nil {
			resp["subject"] = info.Subject
		}
		c.JSON(http.StatusOK, resp)
	})
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) datatypes.ErrorResponse {
	t.Helper()
	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// Key Extraction Tests
// =============================================================================

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid token", "Bearer iv_abc123", "iv_abc123"},
		{"lowercase scheme", "bearer iv_abc123", "iv_abc123"},
		{"mixed case scheme", "BeArEr iv_abc123", "iv_abc123"},
		{"no bearer prefix", "iv_abc123", ""},
		{"basic auth", "Basic iv_abc123", ""},
		{"only bearer", "Bearer", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}

func TestPresentedKey_BearerWinsOverXAPIKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer iv_bearer")
	c.Request.Header.Set("X-API-Key", "iv_header")

	assert.Equal(t, "iv_bearer", presentedKey(c))
}

func TestPresentedKey_FallsBackToXAPIKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("X-API-Key", "  iv_header  ")

	assert.Equal(t, "iv_header", presentedKey(c))
}

// =============================================================================
// APIKeyAuth Tests
// =============================================================================

func TestAPIKeyAuth_ValidBearerKey(t *testing.T) {
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, nil, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_good")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "iv_good")
	// No identity provider wired, so no subject is stamped.
	assert.NotContains(t, w.Body.String(), "subject")
}

func TestAPIKeyAuth_ValidXAPIKey(t *testing.T) {
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, nil, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-API-Key", "iv_good")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, nil, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	resp := decodeError(t, w)
	assert.Equal(t, datatypes.ErrCodeAuthFailed, resp.ErrorCode)
	assert.Equal(t,
		"Missing authorization. Use Authorization: Bearer <key> or X-API-Key header",
		resp.Message)
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, nil, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_wrong")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	resp := decodeError(t, w)
	assert.Equal(t, datatypes.ErrCodeAuthFailed, resp.ErrorCode)
	assert.Equal(t, "Invalid API key", resp.Message)
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	router := newAuthRouter(&mockKeyVerifier{hasKeys: false}, nil, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_anything")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, datatypes.ErrCodeInternal, resp.ErrorCode)
	assert.Equal(t, "Server misconfigured: authentication not properly initialized", resp.Message)
}

func TestAPIKeyAuth_InsecureDevBypass(t *testing.T) {
	// No verifier at all: dev mode never consults one.
	router := newAuthRouter(nil, nil, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"dev"`)
}

// =============================================================================
// Identity Provider Tests
// =============================================================================

func TestAPIKeyAuth_IdentityStampsSubject(t *testing.T) {
	identity := &mockAuthProvider{info: &extensions.AuthInfo{
		Subject: "analyst-7",
		Roles:   []string{"observer"},
	}}
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, identity, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_good")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"analyst-7"`)
}

func TestAPIKeyAuth_NopProviderResolvesLocalObserver(t *testing.T) {
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true},
		&extensions.NopAuthProvider{}, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_good")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"local-observer"`)
}

func TestAPIKeyAuth_IdentityRejectionFailsValidKey(t *testing.T) {
	identity := &mockAuthProvider{
		err: fmt.Errorf("key revoked: %w", extensions.ErrUnauthorized),
	}
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, identity, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_good")
	router.ServeHTTP(w, req)

	// The key store accepted the key; the identity provider overrules it.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, datatypes.ErrCodeAuthFailed, resp.ErrorCode)
	assert.Equal(t, "Invalid API key", resp.Message)
}

func TestAPIKeyAuth_IdentityNotConfigured(t *testing.T) {
	identity := &mockAuthProvider{err: extensions.ErrAuthNotConfigured}
	router := newAuthRouter(&mockKeyVerifier{valid: "iv_good", hasKeys: true}, identity, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer iv_good")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, datatypes.ErrCodeInternal, resp.ErrorCode)
}

// =============================================================================
// Context Helper Tests
// =============================================================================

func TestClientKey_ReturnsStampedKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	SetClientKey(c, "iv_stamped")

	assert.Equal(t, "iv_stamped", ClientKey(c))
}

func TestClientKey_FallsBackToClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	// httptest stamps a fixed remote address.
	assert.Equal(t, "192.0.2.1", ClientKey(c))
}

func TestClientKey_EmptyStampFallsBackToClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	SetClientKey(c, "")

	assert.Equal(t, "192.0.2.1", ClientKey(c))
}

func TestGetAuthInfo_ReturnsStampedIdentity(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	SetAuthInfo(c, &extensions.AuthInfo{Subject: "analyst-7"})

	info := GetAuthInfo(c)
	require.NotNil(t, info)
	assert.Equal(t, "analyst-7", info.Subject)
}

func TestGetAuthInfo_NilWhenUnset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Nil(t, GetAuthInfo(c))
}
