// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the dependency-injection seams of the
// InterView service.
//
// The service core depends only on the interfaces in this package; the
// no-op defaults make a bare service fully functional. Deployments swap in
// concrete implementations via ServiceOptions:
//
//	opts := extensions.DefaultOptions().
//	    WithAuth(ssoBridge).
//	    WithObserver(siemForwarder)
//	svc, err := interview.New(cfg, &opts)
//
// The injected observer joins the service's own sinks (audit journal,
// cost exporter, stream hub) in the per-resolution fan-out. The injected
// auth provider resolves verified API keys to caller identities and may
// reject keys the store accepted.
//
// # Extension Categories
//
//   - auth.go: caller identity resolution for inbound requests (AuthProvider)
//   - observer.go: per-resolution audit event fan-out (ResolutionObserver)
//
// # Thread Safety
//
// All implementations must be safe for concurrent use; multiple request
// goroutines call these interfaces simultaneously.
package extensions

// ServiceOptions groups the extension points handed to the service
// constructor. All fields are optional; nil values are replaced with the
// no-op defaults.
type ServiceOptions struct {
	// AuthProvider resolves verified API keys to caller identities and
	// may reject them, narrowing access beyond raw key possession.
	// Default: NopAuthProvider (every caller becomes the local observer).
	AuthProvider AuthProvider

	// Observer receives one AuditEvent per resolved query, alongside the
	// service's built-in sinks.
	// Default: NopObserver (discards all events).
	Observer ResolutionObserver
}

// DefaultOptions returns ServiceOptions with no-op defaults: every request
// authenticates as the local observer and resolution events are discarded.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		Observer:     &NopObserver{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
// Useful for fluent configuration.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithObserver returns a copy of opts with the given ResolutionObserver.
func (opts ServiceOptions) WithObserver(observer ResolutionObserver) ServiceOptions {
	opts.Observer = observer
	return opts
}
