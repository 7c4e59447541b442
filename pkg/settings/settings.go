// CoDLinux
// Copyright (c) 2026 The CoDLinux Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of CoDLinux.
//
// CoDLinux is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CoDLinux is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CoDLinux.  If not, see <http://www.gnu.org/licenses/>.

// Package settings persists the user's game settings as flat key=value files,
// one file per namespace: the global launcher settings plus one per game.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// Global is the namespace of launcher-wide settings.
const Global = "codlinux"

const fileExt = ".cfg"

// Global keys.
const (
	KeyRememberedGame    = "remembered_game"
	KeyWinePrefix        = "wine_prefix"
	KeyDefaultWinePrefix = "default_wine_prefix"
	KeyDefaultEnvars     = "default_envars"
	KeyAssistCapture     = "assist_moss"
)

// Per-game keys.
const (
	KeyGamePrefix = "wineprefix"
	KeyGameEnvars = "envars"
	KeyGameArgs   = "args"
)

var (
	ErrInvalidKey       = errors.New("invalid settings key")
	ErrInvalidNamespace = errors.New("invalid settings namespace")
)

func init() {
	// Write "key=value" with no alignment padding.
	ini.PrettyFormat = false
}

// Values are taken verbatim, quotes included, so files written by hand or
// by older releases read back unchanged.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	KeyValueDelimiters:      "=",
	SkipUnrecognizableLines: true,
	PreserveSurroundedQuote: true,
}

// Store reads and writes settings files in a single directory.
type Store struct {
	fs  afero.Fs
	dir string
	mu  syncutil.Mutex
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(namespace string) (string, error) {
	if namespace == "" || strings.ContainsAny(namespace, `/\`) || strings.HasPrefix(namespace, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return filepath.Join(s.dir, namespace+fileExt), nil
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "=\r\n[]") || strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Load returns every value in the namespace. A missing file is an empty
// namespace, not an error.
func (s *Store) Load(namespace string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(namespace)
}

func (s *Store) load(namespace string) (map[string]string, error) {
	p, err := s.path(namespace)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", p, err)
	}

	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", p, err)
	}

	vals := make(map[string]string)
	for _, k := range f.Section(ini.DefaultSection).Keys() {
		vals[k.Name()] = k.Value()
	}
	return vals, nil
}

// Save replaces the namespace file with vals.
func (s *Store) Save(namespace string, vals map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(namespace, vals)
}

func (s *Store) save(namespace string, vals map[string]string) error {
	p, err := s.path(namespace)
	if err != nil {
		return err
	}

	f := ini.Empty(loadOptions)
	sec := f.Section(ini.DefaultSection)
	for k, v := range vals {
		if err := validateKey(k); err != nil {
			return err
		}
		// Surrounding spaces would make the encoder quote the value.
		if _, err := sec.NewKey(k, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := s.fs.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, p, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", p, err)
	}

	log.Debug().Str("path", p).Int("keys", len(vals)).Msg("saved settings")
	return nil
}

// Get returns a single value, or "" if unset.
func (s *Store) Get(namespace, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	vals, err := s.Load(namespace)
	if err != nil {
		return "", err
	}
	return vals[key], nil
}

// Set writes one value, keeping the rest of the namespace.
func (s *Store) Set(namespace, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vals, err := s.load(namespace)
	if err != nil {
		return err
	}
	vals[key] = strings.TrimSpace(value)
	return s.save(namespace, vals)
}

// Delete removes a key. Deleting a missing key is a no-op.
func (s *Store) Delete(namespace, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vals, err := s.load(namespace)
	if err != nil {
		return err
	}
	if _, ok := vals[key]; !ok {
		return nil
	}
	delete(vals, key)
	return s.save(namespace, vals)
}

// Bool reads a "yes"/"no" value. "true" and "1" are also accepted; unset
// or unparsable values are false.
func (s *Store) Bool(namespace, key string) bool {
	v, err := s.Get(namespace, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read setting")
		return false
	}
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "yes") {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (s *Store) SetBool(namespace, key string, value bool) error {
	if value {
		return s.Set(namespace, key, "yes")
	}
	return s.Set(namespace, key, "no")
}
