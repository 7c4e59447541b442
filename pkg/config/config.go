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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const SchemaVersion = 1

type Values struct {
	Updates        Updates        `toml:"updates"`
	Capture        Capture        `toml:"capture"`
	ErrorReporting ErrorReporting `toml:"error_reporting"`
	Display        Display        `toml:"display"`
	Wine           Wine           `toml:"wine"`
	ConfigSchema   int            `toml:"config_schema"`
	DebugLogging   bool           `toml:"debug_logging"`
}

type Updates struct {
	Owner           string   `toml:"owner"`
	Repo            string   `toml:"repo"`
	CheckTimeout    Duration `toml:"check_timeout"`
	DownloadTimeout Duration `toml:"download_timeout"`
	Skew            Duration `toml:"skew"`
	CheckOnStartup  bool     `toml:"check_on_startup"`
}

type Capture struct {
	Companion  string   `toml:"companion"`
	ArchiveDir string   `toml:"archive_dir,omitempty"`
	ScratchDir string   `toml:"scratch_dir,omitempty"`
	Tool       string   `toml:"tool"`
	Interval   Duration `toml:"interval"`
	PollDelay  Duration `toml:"poll_delay"`
}

type ErrorReporting struct {
	DSN     string `toml:"dsn,omitempty"`
	Enabled bool   `toml:"enabled"`
}

type Display struct {
	Tool string `toml:"tool"`
}

type Wine struct {
	Binary string `toml:"binary"`
}

// Duration is a time.Duration stored as a string like "10s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Updates: Updates{
		Owner:           ReleaseOwner,
		Repo:            ReleaseRepo,
		CheckOnStartup:  true,
		CheckTimeout:    Duration{DefaultCheckTimeout},
		DownloadTimeout: Duration{DefaultDownloadTimeout},
		Skew:            Duration{DefaultUpdateSkew},
	},
	Capture: Capture{
		Companion: "moss",
		Tool:      "scrot",
		Interval:  Duration{10 * time.Second},
		PollDelay: Duration{3 * time.Second},
	},
	Display: Display{
		Tool: "xrandr",
	},
	Wine: Wine{
		Binary: "wine",
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the launcher config from configDir, or from the path in
// CODLINUX_CFG. A missing file is created from defaults.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults so keys missing from the file keep their defaults.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) Updates() Updates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Updates
}

// ReleasesURL is the latest-release metadata endpoint for the configured repo.
func (c *Instance) ReleasesURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf(
		"https://api.github.com/repos/%s/%s/releases/latest",
		c.vals.Updates.Owner,
		c.vals.Updates.Repo,
	)
}

func (c *Instance) CheckOnStartup() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Updates.CheckOnStartup
}

func (c *Instance) Capture() Capture {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Capture
}

func (c *Instance) DisplayTool() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.Tool
}

func (c *Instance) WineBinary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Wine.Binary
}

func (c *Instance) ErrorReporting() ErrorReporting {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting
}

func (c *Instance) SetErrorReporting(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.ErrorReporting.Enabled = enabled
}

// ParseBuildTime returns the compile timestamp baked in with -ldflags. If it
// is missing or malformed, the modification time of exePath is used instead.
func ParseBuildTime(raw, exePath string) (time.Time, error) {
	if raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err == nil {
			return t.UTC(), nil
		}
		log.Warn().Err(err).Str("buildTime", raw).Msg("invalid build time, falling back to binary mtime")
	}

	info, err := os.Stat(exePath)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat executable: %w", err)
	}
	return info.ModTime().UTC(), nil
}
