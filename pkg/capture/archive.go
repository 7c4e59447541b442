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

package capture

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ProcessedDir is where screenshots go once folded into an archive.
const ProcessedDir = "old"

var (
	ErrNoArchive        = errors.New("no companion archive found")
	ErrAmbiguousArchive = errors.New("several archives share the newest modification time")
)

func isShot(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".jpg")
}

// LatestArchive returns the most recently modified .zip in dir. It refuses
// to guess when the newest modification time is shared.
func LatestArchive(fs afero.Fs, dir string) (string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w in %s", ErrNoArchive, dir)
	} else if err != nil {
		return "", fmt.Errorf("failed to read archive dir: %w", err)
	}

	var (
		latest  string
		newest  time.Time
		tied    bool
		matched int
	)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		matched++
		switch mod := e.ModTime(); {
		case latest == "" || mod.After(newest):
			latest, newest, tied = e.Name(), mod, false
		case mod.Equal(newest):
			tied = true
		}
	}

	if matched == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoArchive, dir)
	}
	if tied {
		return "", fmt.Errorf("%w in %s", ErrAmbiguousArchive, dir)
	}
	return filepath.Join(dir, latest), nil
}

// RewriteArchive replaces every .jpg entry in the archive at path with the
// given screenshots. The new archive is written beside the old one and
// renamed over it, so a failure leaves the original untouched.
func RewriteArchive(fs afero.Fs, path string, shots []string) (err error) {
	src, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close archive")
		}
	}()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}
	zr, err := zip.NewReader(src, info.Size())
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	tmpPath := path + ".tmp"
	tmp, err := fs.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := fs.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn().Err(rmErr).Str("path", tmpPath).Msg("failed to remove temp archive")
			}
		}
	}()

	zw := zip.NewWriter(tmp)
	stripped := 0
	for _, f := range zr.File {
		if isShot(f.Name) {
			stripped++
			continue
		}
		if err := zw.Copy(f); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}

	for _, shot := range shots {
		if err := addFile(fs, zw, shot); err != nil {
			_ = tmp.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp archive: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace archive: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("stripped", stripped).
		Int("added", len(shots)).
		Msg("updated companion archive")
	return nil
}

func addFile(fs afero.Fs, zw *zip.Writer, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", path, err)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// MoveProcessed moves shots into the processed subdirectory of dir.
func MoveProcessed(fs afero.Fs, dir string, shots []string) error {
	dest := filepath.Join(dir, ProcessedDir)
	if err := fs.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	var errs []error
	for _, shot := range shots {
		target := filepath.Join(dest, filepath.Base(shot))
		if err := fs.Rename(shot, target); err != nil {
			errs = append(errs, fmt.Errorf("failed to move %s: %w", shot, err))
		}
	}
	return errors.Join(errs...)
}
