// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for identifiers that travel
// into downstream query strings.
//
// Every identifier InterView accepts (tenant, task, receipt, queue,
// deliverable) is forwarded verbatim as a URL query parameter to mesh
// services. Validating the shape here keeps malformed or hostile values out
// of those requests.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches mesh identifiers: letters, digits, and the
// separator characters the ledger uses in task and receipt ids.
// Max length 128 covers UUID-derived and composite ids.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

// ValidateIdentifier validates a mesh identifier (tenant_id, task_id,
// root_task_id, receipt_id, queue_id, deliverable_id).
//
// Valid identifiers:
//   - 1-128 characters
//   - Letters and digits
//   - Dots, underscores, colons, and hyphens after the first character
//
// The field name is included in the error for caller-facing messages.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}

	if !identifierPattern.MatchString(value) {
		return fmt.Errorf("invalid %s format: %q (must be 1-128 alphanumeric chars, dots, underscores, colons, or hyphens)", field, value)
	}

	return nil
}

// ValidateOptionalIdentifier validates value when it is non-empty; empty is
// allowed for optional fields.
func ValidateOptionalIdentifier(field, value string) error {
	if value == "" {
		return nil
	}
	return ValidateIdentifier(field, value)
}

// SanitizeIdentifier trims surrounding whitespace and validates the result.
// Returns the trimmed identifier if valid.
func SanitizeIdentifier(field, value string) (string, error) {
	normalized := strings.TrimSpace(value)
	if err := ValidateIdentifier(field, normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
