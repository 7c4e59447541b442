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

import "time"

// AppVersion and BuildTime are set at build time with -ldflags -X.
// BuildTime must be RFC3339, e.g. 2026-10-16T12:00:00Z.
var (
	AppVersion = "DEVELOPMENT"
	BuildTime  = ""
)

const (
	AppName     = "codlinux"
	DisplayName = "CoDLinux"
	LogFile     = "codlinux.log"
	GameLogFile = "game.log"
	CfgFile     = "launcher.toml"
	CfgEnv      = "CODLINUX_CFG"

	// SettingsDir holds the key=value game settings, beside the binary.
	SettingsDir = "codlinux_conf"

	ReleaseOwner = "coyoteclan"
	ReleaseRepo  = "codlinux"

	DefaultCheckTimeout    = 10 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute
	DefaultUpdateSkew      = 5 * time.Minute
)
