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

package service

import (
	"github.com/coyoteclan/codlinux/pkg/cli"
	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/rs/zerolog/log"
)

// StartMode is how the launcher proceeds after scanning.
type StartMode int

const (
	// Interactive shows the game picker.
	Interactive StartMode = iota
	// Direct launches the game a connect URI asked for.
	Direct
	// Remembered launches the game the user chose to remember.
	Remembered
)

func (m StartMode) String() string {
	switch m {
	case Direct:
		return "direct"
	case Remembered:
		return "remembered"
	default:
		return "interactive"
	}
}

type Decision struct {
	Target *cli.ConnectTarget
	Extra  []string
	Game   games.Descriptor
	Mode   StartMode
}

// Decide picks the startup path. A connect URI wins over a remembered game;
// a URI for a client that isn't installed falls through with a warning.
// Arguments left over after the URI are passed on to whichever game runs.
func Decide(args []string, descs []games.Descriptor, remembered string) Decision {
	target, rest := cli.SplitConnect(args)
	if target != nil {
		if d, ok := games.FindVariant(descs, target.Variant); ok {
			extra := append(target.Args(), rest...)
			return Decision{Mode: Direct, Game: d, Extra: extra, Target: target}
		}
		log.Warn().
			Str("variant", target.Variant.String()).
			Str("address", target.Address()).
			Msg("connect requested but client not installed")
	}

	if remembered != "" {
		for _, d := range descs {
			if d.Path == remembered {
				return Decision{Mode: Remembered, Game: d, Extra: rest}
			}
		}
		log.Warn().Str("path", remembered).Msg("remembered game not found, ignoring")
	}

	return Decision{Mode: Interactive, Extra: rest}
}
