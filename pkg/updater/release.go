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

// Package updater checks for newer launcher releases and replaces the
// running binary with the downloaded one.
package updater

import (
	"errors"
	"time"
)

var ErrNoAssets = errors.New("no downloadable assets in release")

// Release is the subset of the latest-release metadata the launcher uses.
// The publish time is the release's version.
type Release struct {
	PublishedAt time.Time `json:"published_at"`
	Name        string    `json:"name"`
	TagName     string    `json:"tag_name"`
	Body        string    `json:"body"`
	Assets      []Asset   `json:"assets"`
}

type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

// Asset returns the first asset, the launcher binary.
func (r *Release) Asset() (Asset, error) {
	if len(r.Assets) == 0 || r.Assets[0].URL == "" {
		return Asset{}, ErrNoAssets
	}
	return r.Assets[0], nil
}
