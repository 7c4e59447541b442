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

//go:build linux

// Package installer registers CoDLinux with the desktop: a .desktop entry
// for the application menu and the iw1x/t1x URI scheme handlers.
package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/coyoteclan/codlinux/pkg/helpers/command"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	schemeBase      = "iw1x"
	schemeExpansion = "t1x"
	mimeTool        = "xdg-mime"
)

const desktopTemplate = `[Desktop Entry]
Type=Application
Name=%[1]s
GenericName=%[1]s
Exec=%[2]s %%u
Path=%[3]s
Icon=codlinux
Terminal=false
Categories=Game;
StartupNotify=false
Keywords=cod;gaming;wine;
MimeType=x-scheme-handler/iw1x;x-scheme-handler/t1x;
`

// Entry describes the desktop file generated for an install directory.
type Entry struct {
	Name     string
	FileName string
	Schemes  []string
}

// PlanEntry picks the desktop entry name and the schemes to register for
// the detected executables. The expansion gets its own entry so a base-game
// install and an expansion install can coexist. It reports false when
// neither the base game nor the expansion is present.
func PlanEntry(descs []games.Descriptor) (Entry, bool) {
	_, hasBase := games.FindVariant(descs, games.VariantBase)
	_, hasExp := games.FindVariant(descs, games.VariantExpansion)
	_, hasIW1X := games.FindVariant(descs, games.VariantIW1X)
	_, hasT1X := games.FindVariant(descs, games.VariantT1X)

	if !hasBase && !hasExp {
		return Entry{}, false
	}

	name := config.DisplayName
	if hasExp {
		name += " (uo)"
	}
	e := Entry{
		Name:     name,
		FileName: strings.ReplaceAll(name, " ", "_") + ".desktop",
	}

	switch {
	case hasExp && hasT1X:
		e.Schemes = []string{schemeExpansion}
	case hasBase && !hasExp && hasIW1X:
		e.Schemes = []string{schemeBase}
	}
	return e, true
}

// DesktopFile renders the desktop entry launching exePath.
func DesktopFile(e Entry, exePath string) string {
	return fmt.Sprintf(desktopTemplate, e.Name, exePath, filepath.Dir(exePath))
}

type Installer struct {
	fs      afero.Fs
	cmd     command.Executor
	appsDir string
}

type Option func(*Installer)

// WithApplicationsDir overrides the directory desktop files are written to.
func WithApplicationsDir(dir string) Option {
	return func(i *Installer) {
		i.appsDir = dir
	}
}

func NewInstaller(fs afero.Fs, cmd command.Executor, opts ...Option) *Installer {
	i := &Installer{
		fs:      fs,
		cmd:     cmd,
		appsDir: filepath.Join(xdg.DataHome, "applications"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install writes the desktop file and registers the URI schemes. Nothing
// is written without the base game or the expansion. The returned error is
// informational; callers log it and carry on.
func (i *Installer) Install(ctx context.Context, exePath string, descs []games.Descriptor) (Entry, error) {
	e, ok := PlanEntry(descs)
	if !ok {
		log.Debug().Msg("no base game or expansion, skipping desktop entry")
		return e, nil
	}

	if err := i.fs.MkdirAll(i.appsDir, 0o755); err != nil {
		return e, fmt.Errorf("failed to create applications dir: %w", err)
	}

	path := filepath.Join(i.appsDir, e.FileName)
	content := DesktopFile(e, exePath)
	if err := afero.WriteFile(i.fs, path, []byte(content), 0o644); err != nil {
		return e, fmt.Errorf("failed to write desktop file: %w", err)
	}
	log.Debug().Str("path", path).Msg("desktop file written")

	var failed []string
	for _, scheme := range e.Schemes {
		err := i.cmd.Run(ctx, mimeTool, "default", e.FileName, "x-scheme-handler/"+scheme)
		if err != nil {
			log.Warn().Err(err).Str("scheme", scheme).Msg("failed to register uri scheme")
			failed = append(failed, scheme)
			continue
		}
		log.Info().Str("scheme", scheme).Str("entry", e.FileName).Msg("registered uri scheme")
	}
	if len(failed) > 0 {
		return e, fmt.Errorf("failed to register schemes: %s", strings.Join(failed, ", "))
	}
	return e, nil
}
