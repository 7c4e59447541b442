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

// Package games identifies the game executables present in an install
// directory by file name and content fingerprint.
package games

import (
	"path/filepath"
	"strings"
)

type Variant int

const (
	VariantUnknown Variant = iota
	VariantBase
	VariantExpansion
	VariantIW1X
	VariantT1X
)

func (v Variant) String() string {
	switch v {
	case VariantBase:
		return "base"
	case VariantExpansion:
		return "expansion"
	case VariantIW1X:
		return "iw1x"
	case VariantT1X:
		return "t1x"
	default:
		return "unknown"
	}
}

// UnknownVersion marks a recognised executable whose hash is not in the table.
const UnknownVersion = "???"

// Overrides are the per-game settings a user may edit.
type Overrides struct {
	WinePrefix string
	Env        string
	Args       string
}

type Descriptor struct {
	Path        string
	Fingerprint string
	Label       string
	Version     string
	Overrides   Overrides
	Variant     Variant
}

// Key is the per-game settings namespace, the lowercase file stem.
func (d Descriptor) Key() string {
	return keyFor(d.Path)
}

func (d Descriptor) Known() bool {
	return d.Version != UnknownVersion
}

func keyFor(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

type executable struct {
	name    string
	variant Variant
	// verified executables look their version up in hashes.
	verified bool
	// version and label are used as-is when the executable isn't verified.
	version string
	label   string
}

// executables is ordered; scan results follow this order.
var executables = []executable{
	{name: "CoDMP.exe", variant: VariantBase, verified: true},
	{name: "CoDUOMP.exe", variant: VariantExpansion, verified: true},
	{name: "iw1x.exe", variant: VariantIW1X, version: "1.1", label: "iw1x (CoD v1.1)"},
	{name: "t1x.exe", variant: VariantT1X, version: "1.51", label: "t1x (UO v1.51)"},
}

type knownHash struct {
	version string
	label   string
	variant Variant
}

var hashes = map[string]knownHash{
	"753fbcabd0fdda7f7dad3dbb29c3c008": {variant: VariantBase, version: "1.1", label: "Call of Duty (v1.1)"},
	"4bdf293d8e6fb32208d1b0942a1ba6bc": {variant: VariantBase, version: "1.5", label: "Call of Duty (v1.5)"},
	"928dd08dc169bd85fdd12d2db28def70": {
		variant: VariantExpansion,
		version: "1.51",
		label:   "United Offensive (v1.51)",
	},
}

func lookupExecutable(name string) (int, executable, bool) {
	for i, e := range executables {
		if strings.EqualFold(e.name, name) {
			return i, e, true
		}
	}
	return -1, executable{}, false
}

// classify builds a descriptor from a known executable and its fingerprint.
func classify(path string, exe executable, fingerprint string) Descriptor {
	d := Descriptor{
		Path:        path,
		Fingerprint: fingerprint,
		Variant:     exe.variant,
	}

	if !exe.verified {
		d.Version = exe.version
		d.Label = exe.label
		return d
	}

	if known, ok := hashes[fingerprint]; ok && known.variant == exe.variant {
		d.Version = known.version
		d.Label = known.label
		return d
	}

	d.Version = UnknownVersion
	d.Label = strings.TrimSuffix(exe.name, filepath.Ext(exe.name)) + " (" + UnknownVersion + ")"
	return d
}

// ExecutableNames lists the recognised file names in scan order.
func ExecutableNames() []string {
	names := make([]string, 0, len(executables))
	for _, e := range executables {
		names = append(names, e.name)
	}
	return names
}
