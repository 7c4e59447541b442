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

package tui

import (
	"fmt"
	"strings"

	"github.com/coyoteclan/codlinux/pkg/updater"
)

const barWidth = 30

// ProgressBar draws p as a fixed-width bar followed by a percentage.
func ProgressBar(p updater.Progress) string {
	f := p.Fraction()
	filled := int(f * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[green]%s[gray]%s[-] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
		int(f*100),
	)
}

// downloadText is the update dialog body while a download runs.
func downloadText(p updater.Progress) string {
	return fmt.Sprintf("Downloading... (%s)\n\n%s", p.Human(), ProgressBar(p))
}
