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

package updater

import (
	"fmt"
	"math"
)

const mib = 1024 * 1024

// Progress is the state of one download attempt.
type Progress struct {
	Written int64
	Total   int64
}

// Fraction is Written/Total clamped to [0, 1]. It is 1 only once every
// byte has been written.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 || p.Written <= 0 {
		return 0
	}
	if p.Written >= p.Total {
		return 1
	}
	f := float64(p.Written) / float64(p.Total)
	// Float rounding must not report completion early.
	if f >= 1 {
		return math.Nextafter(1, 0)
	}
	return f
}

// Human formats the progress as "written/total MB".
func (p Progress) Human() string {
	return fmt.Sprintf("%.2f/%.2f MB", float64(p.Written)/mib, float64(p.Total)/mib)
}

// ProgressFunc receives a progress update after every chunk written.
type ProgressFunc func(Progress)
