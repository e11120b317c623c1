// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/PStryder/InterView/pkg/logging"
)

// KeyStore combines the primary configured API key with the optional key
// file and serves constant-time verification from the vault.
//
// # Description
//
// When a key file is configured, Watch hot-reloads it on filesystem
// change. A reload replaces the whole key set atomically; it is never
// partially applied, and a failed read keeps the previous set in effect.
//
// # Thread Safety
//
// KeyStore is safe for concurrent use. Watch should be called at most
// once, in its own goroutine.
type KeyStore struct {
	vault    *Vault
	primary  string
	filePath string
	logger   *logging.Logger
}

// NewKeyStore builds the store and loads the initial key set. Both the
// primary key and the file path are optional, but a configured file must
// be readable at startup. insecureMemory permits the plain-memory vault
// fallback when locked pages are unavailable.
func NewKeyStore(primaryKey, filePath string, insecureMemory bool, logger *logging.Logger) (*KeyStore, error) {
	if logger == nil {
		logger = logging.Default()
	}

	vault, err := NewVault(insecureMemory, logger)
	if err != nil {
		return nil, err
	}

	s := &KeyStore{
		vault:    vault,
		primary:  primaryKey,
		filePath: filePath,
		logger:   logger,
	}

	keys, err := s.assembleKeys()
	if err != nil {
		vault.Destroy()
		return nil, err
	}
	s.vault.Replace(keys)

	return s, nil
}

// assembleKeys builds the full key set: the primary key first, then the
// key file contents.
func (s *KeyStore) assembleKeys() ([]string, error) {
	keys := make([]string, 0, 1)
	if s.primary != "" {
		keys = append(keys, s.primary)
	}
	if s.filePath != "" {
		fileKeys, err := loadKeyFile(s.filePath)
		if err != nil {
			return nil, fmt.Errorf("load api keys file: %w", err)
		}
		keys = append(keys, fileKeys...)
	}

	unprefixed := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, KeyPrefix) {
			unprefixed++
		}
	}
	if unprefixed > 0 {
		s.logger.Warn("Loaded API keys without the iv_ prefix", "count", unprefixed)
	}

	return keys, nil
}

// loadKeyFile reads one key per line from path.
func loadKeyFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseKeys(f)
}

// parseKeys reads one key per line. Blank lines and # comments are
// skipped; surrounding whitespace is trimmed.
func parseKeys(r io.Reader) ([]string, error) {
	var keys []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	return keys, scanner.Err()
}

// Verify reports whether candidate matches any loaded key.
func (s *KeyStore) Verify(candidate string) bool {
	return s.vault.Verify(candidate)
}

// HasKeys reports whether at least one key is loaded.
func (s *KeyStore) HasKeys() bool {
	return s.vault.Len() > 0
}

// KeyCount returns the number of loaded keys.
func (s *KeyStore) KeyCount() int {
	return s.vault.Len()
}

// Secure reports whether keys are held in locked memory.
func (s *KeyStore) Secure() bool {
	return s.vault.Secure()
}

// Watch blocks, hot-reloading the key file on change, until ctx is
// cancelled. It returns immediately when no key file is configured.
// Run in a goroutine.
func (s *KeyStore) Watch(ctx context.Context) error {
	if s.filePath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create key file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: atomic replaces rename a new
	// file over the old one, which drops inode-level watches.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("watch key file directory: %w", err)
	}

	s.logger.Info("Watching API keys file", "path", s.filePath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Key file watcher error", "error", err)

		case <-ctx.Done():
			s.logger.Debug("Key file watcher stopping")
			return nil
		}
	}
}

// handleEvent reloads on events touching the key file.
func (s *KeyStore) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(s.filePath) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	s.reload()
}

// reload re-reads the key file and swaps the key set.
func (s *KeyStore) reload() {
	keys, err := s.assembleKeys()
	if err != nil {
		s.logger.Error("API key reload failed, keeping previous key set", "error", err)
		return
	}
	s.vault.Replace(keys)
	s.logger.Info("API keys reloaded", "count", len(keys))
}

// Close destroys the vault. The watcher stops with its context.
func (s *KeyStore) Close() {
	s.vault.Destroy()
}
