// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when credential verification fails.
// Implementations should wrap it with context:
//
//	return nil, fmt.Errorf("invalid api key: %w", extensions.ErrUnauthorized)
var ErrUnauthorized = errors.New("unauthorized")

// ErrAuthNotConfigured is returned when the provider cannot verify anything
// because no credentials are configured server-side. Handlers map this to a
// misconfiguration response, distinct from a caller error.
var ErrAuthNotConfigured = errors.New("authentication not configured")

// AuthInfo is the identity attached to a request after successful
// verification.
//
// Subject is the only required field: "local-observer" under the default
// provider and "dev" under the insecure dev bypass. Custom providers
// assign their own stable, non-secret identifier, such as a key
// fingerprint or an SSO subject.
type AuthInfo struct {
	// Subject is a stable, loggable identifier for the caller.
	// Never the raw credential.
	Subject string

	// Roles lists the caller's role memberships. InterView is read-only,
	// so the only role it distinguishes today is "observer".
	Roles []string

	// Metadata carries provider-specific claims (key source, issuer).
	Metadata map[string]string
}

// HasRole reports whether the identity carries the given role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates inbound credentials and returns the caller's
// identity.
//
// The service consults the provider after the API key store has verified
// raw key possession; a provider rejection overrules the store, so a
// deployment can enforce revocation or expiry without touching the key
// file. The default NopAuthProvider accepts everything, which keeps a
// local single-user deployment working with zero auth infrastructure.
// Production deployments inject their own SSO or token-service bridge.
type AuthProvider interface {
	// Validate checks the token and returns the caller identity.
	//
	// Returns ErrUnauthorized (possibly wrapped) for bad credentials and
	// ErrAuthNotConfigured when verification is impossible server-side.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts any token, including an empty one, and returns a
// local observer identity. Intended for local single-user deployments.
type NopAuthProvider struct{}

// Validate always succeeds with the local observer identity.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		Subject: "local-observer",
		Roles:   []string{"observer"},
	}, nil
}

var _ AuthProvider = (*NopAuthProvider)(nil)
