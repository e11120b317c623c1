// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"errors"
	"fmt"

	"github.com/PStryder/InterView/services/interview/datatypes"
)

// Sentinel errors for class checks across package boundaries. The concrete
// types below report true from errors.Is against their sentinel, so callers
// can branch on the class without naming the type.
var (
	// ErrSourceUnavailable matches any SourceUnavailableError.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited matches any RateLimitError.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrGlobalLedgerDisabled matches any GlobalLedgerDisabledError.
	ErrGlobalLedgerDisabled = errors.New("global ledger access disabled")
)

// ValidationError reports a request rejected before any source lookup. The
// message is caller-facing and carries the exact guidance for the missing or
// malformed field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with the given caller-facing
// message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// SourceUnavailableError reports that a specific backing source could not
// answer: unreachable endpoint, timeout, missing configuration, or an
// undecodable response body. Inside a fallback chain it triggers the next
// source; at the end of a chain it degrades or propagates per the
// operation's contract.
type SourceUnavailableError struct {
	Source  datatypes.Source
	Message string
	Err     error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Is reports true for ErrSourceUnavailable.
func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Unavailable builds a SourceUnavailableError with a plain message.
func Unavailable(source datatypes.Source, message string) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Message: message}
}

// UnavailableWrap builds a SourceUnavailableError around an underlying
// transport or decode failure.
func UnavailableWrap(source datatypes.Source, message string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Message: message, Err: err}
}

// RateLimitError reports a component poll rejected by the sliding-window
// limiter. Distinct from unavailability: it is always surfaced to the
// caller, never retried internally and never substituted with a fallback.
type RateLimitError struct {
	Component string
	PerMinute int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded for %s polls", e.Component)
}

// Is reports true for ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// GlobalLedgerDisabledError reports the policy gate in front of the global
// ledger. It is raised whenever the opt-in flag is off, regardless of
// whether the endpoint would be reachable, and is never conflated with an
// outage.
type GlobalLedgerDisabledError struct{}

func (e *GlobalLedgerDisabledError) Error() string {
	return "Global ledger access is disabled. Set INTERVIEW_ALLOW_GLOBAL_LEDGER=true to enable."
}

// Is reports true for ErrGlobalLedgerDisabled.
func (e *GlobalLedgerDisabledError) Is(target error) bool {
	return target == ErrGlobalLedgerDisabled
}
