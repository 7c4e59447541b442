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

package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/coyoteclan/codlinux/pkg/config"
)

type Flags struct {
	set         *flag.FlagSet
	Version     *bool
	Debug       *bool
	CheckUpdate *bool
	Update      *bool
	Forget      *bool
}

// SetupFlags defines the launcher's flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set: fs,
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging",
		),
		CheckUpdate: fs.Bool(
			"check-update",
			false,
			"check for a newer launcher, print the changelog and exit",
		),
		Update: fs.Bool(
			"update",
			false,
			"download and install the latest launcher if newer, then exit",
		),
		Forget: fs.Bool(
			"forget",
			false,
			"forget the remembered game and show the game list",
		),
	}
}

// Pre parses args and handles flags that need no setup. It exits the
// process after printing the version.
func (f *Flags) Pre(args []string, out io.Writer) error {
	if err := f.set.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "%s %s (built %s)\n", config.DisplayName, config.AppVersion, buildLabel())
		os.Exit(0)
	}
	return nil
}

// Args returns the positional arguments left after parsing.
func (f *Flags) Args() []string {
	return f.set.Args()
}

// Headless reports whether a flag asked for a non-interactive run.
func (f *Flags) Headless() bool {
	return *f.CheckUpdate || *f.Update
}

func buildLabel() string {
	if config.BuildTime == "" {
		return "unknown"
	}
	return config.BuildTime
}
