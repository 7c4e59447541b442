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

package games

import (
	"context"
	"crypto/md5" //nolint:gosec // identifies known binaries, not a security check
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

type Scanner struct {
	fs afero.Fs
}

func NewScanner(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs}
}

// Fingerprint returns the hex MD5 of the whole file.
func (s *Scanner) Fingerprint(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close file")
		}
	}()

	h := md5.New() //nolint:gosec // see import
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type candidate struct {
	path  string
	exe   executable
	order int
}

// Scan returns a descriptor for every recognised executable in dir, ordered
// by the executable table. Unreadable files are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]Descriptor, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read install dir: %w", err)
	}

	var candidates []candidate
	seen := make(map[int]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		order, exe, ok := lookupExecutable(entry.Name())
		if !ok || seen[order] {
			continue
		}
		seen[order] = true
		candidates = append(candidates, candidate{
			path:  filepath.Join(dir, entry.Name()),
			exe:   exe,
			order: order,
		})
	}

	sort.Slice(candidates, func(a, b int) bool { return candidates[a].order < candidates[b].order })

	results := make([]*Descriptor, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // context error
			}
			sum, err := s.Fingerprint(c.path)
			if err != nil {
				log.Warn().Err(err).Str("path", c.path).Msg("skipping unreadable executable")
				return nil
			}
			d := classify(c.path, c.exe, sum)
			results[i] = &d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	descs := make([]Descriptor, 0, len(results))
	for _, r := range results {
		if r != nil {
			descs = append(descs, *r)
		}
	}

	log.Info().Int("found", len(descs)).Str("dir", dir).Msg("scanned for games")
	return descs, nil
}

// FindVariant returns the first descriptor with the given variant.
func FindVariant(descs []Descriptor, v Variant) (Descriptor, bool) {
	for _, d := range descs {
		if d.Variant == v {
			return d, true
		}
	}
	return Descriptor{}, false
}
