// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package auth implements API key authentication for InterView: the iv_
// key format, a locked-memory key vault, and a hot-reloading key store
// that combines the primary configured key with an optional key file.
//
// # Security
//
// Key comparison is constant-time across the whole key set. In secure mode
// keys live in mlocked guarded buffers and are wiped on replacement and
// shutdown. Key values are never logged; only counts and presence.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeyPrefix is the prefix carried by InterView API keys.
const KeyPrefix = "iv_"

// GenerateKey returns a new API key: the iv_ prefix followed by 32 random
// bytes in unpadded URL-safe base64.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
