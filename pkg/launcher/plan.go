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

package launcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/rs/zerolog/log"
)

const (
	FallbackPrefix = "$HOME/.wine"
	DefaultEnv     = "MESA_EXTENSION_MAX_YEAR=2008 force_s3tc_enable=true __GL_ExtensionStringVersion=17700"
	DefaultArgs    = "+set r_ignorehwgamma 1"
)

// Defaults are the stored launcher-wide values used when a game has no
// override of its own.
type Defaults struct {
	// SessionPrefix is the prefix last chosen in the UI.
	SessionPrefix string
	WinePrefix    string
	Env           string
}

// Plan is a fully resolved game command.
type Plan struct {
	Binary string
	Prefix string
	Dir    string
	Args   []string
	Env    []string
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Resolve works out the prefix, environment and arguments for d. Extra
// arguments are appended after the game's own.
func Resolve(d games.Descriptor, defaults Defaults, wineBinary string, extra []string) Plan {
	prefix := firstNonBlank(d.Overrides.WinePrefix, defaults.SessionPrefix, defaults.WinePrefix, FallbackPrefix)
	prefix = os.ExpandEnv(prefix)

	envString := firstNonBlank(d.Overrides.Env, defaults.Env, DefaultEnv)
	var env []string
	for _, tok := range strings.Fields(envString) {
		if k, _, ok := strings.Cut(tok, "="); !ok || k == "" {
			log.Warn().Str("token", tok).Msg("ignoring malformed environment entry")
			continue
		}
		env = append(env, tok)
	}
	env = append(env, "WINEPREFIX="+prefix)

	args := []string{d.Path}
	args = append(args, strings.Fields(firstNonBlank(d.Overrides.Args, DefaultArgs))...)
	args = append(args, extra...)

	return Plan{
		Binary: wineBinary,
		Prefix: prefix,
		Dir:    filepath.Dir(d.Path),
		Args:   args,
		Env:    env,
	}
}
