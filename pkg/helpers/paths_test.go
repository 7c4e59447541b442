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

package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	realDir := filepath.Join(dir, "install")
	require.NoError(t, os.MkdirAll(realDir, 0o750))
	realBin := filepath.Join(realDir, "codlinux")
	require.NoError(t, os.WriteFile(realBin, []byte("bin"), 0o755)) //nolint:gosec // test binary
	link := filepath.Join(dir, "codlinux-link")
	require.NoError(t, os.Symlink(realBin, link))

	t.Run("follows_symlink", func(t *testing.T) {
		t.Parallel()

		got, err := ResolveExePath(link)
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(realBin)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing_file_errors", func(t *testing.T) {
		t.Parallel()

		_, err := ResolveExePath(filepath.Join(dir, "missing"))
		require.Error(t, err)
	})
}
