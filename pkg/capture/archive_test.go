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
	"bytes"
	"io"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archiveDir = "/home/player/MOSS"

func writeZip(t *testing.T, fs afero.Fs, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func readZip(t *testing.T, fs afero.Fs, path string) map[string]string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func TestLatestArchive(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		wantErr error
		mtimes  map[string]time.Time
		name    string
		want    string
	}{
		{
			name: "newest wins",
			mtimes: map[string]time.Time{
				"a.zip": t0,
				"b.ZIP": t0.Add(time.Minute),
				"c.zip": t0.Add(-time.Hour),
				"d.txt": t0.Add(time.Hour),
			},
			want: filepath.Join(archiveDir, "b.ZIP"),
		},
		{
			name:    "no archives",
			mtimes:  map[string]time.Time{"notes.txt": t0},
			wantErr: ErrNoArchive,
		},
		{
			name:    "tie on newest",
			mtimes:  map[string]time.Time{"a.zip": t0, "b.zip": t0, "c.zip": t0.Add(-time.Hour)},
			wantErr: ErrAmbiguousArchive,
		},
		{
			name:   "tie below newest is fine",
			mtimes: map[string]time.Time{"a.zip": t0, "b.zip": t0, "c.zip": t0.Add(time.Hour)},
			want:   filepath.Join(archiveDir, "c.zip"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll(archiveDir, 0o755))
			for name, mt := range tt.mtimes {
				p := filepath.Join(archiveDir, name)
				require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
				require.NoError(t, fs.Chtimes(p, mt, mt))
			}

			got, err := LatestArchive(fs, archiveDir)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatestArchive_MissingDir(t *testing.T) {
	t.Parallel()
	_, err := LatestArchive(afero.NewMemMapFs(), "/nowhere")
	require.ErrorIs(t, err, ErrNoArchive)
}

func TestRewriteArchive_ReplacesScreenshots(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	archive := filepath.Join(archiveDir, "match.zip")
	writeZip(t, fs, archive, map[string]string{
		"report.txt":    "moss report",
		"001.JPG":       "stale",
		"shots/old.jpg": "stale",
		"processes.log": "log",
	})
	require.NoError(t, afero.WriteFile(fs, "/tmp/ss/001.JPG", []byte("fresh1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/tmp/ss/002.JPG", []byte("fresh2"), 0o644))

	err := RewriteArchive(fs, archive, []string{"/tmp/ss/001.JPG", "/tmp/ss/002.JPG"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"report.txt":    "moss report",
		"processes.log": "log",
		"001.JPG":       "fresh1",
		"002.JPG":       "fresh2",
	}, readZip(t, fs, archive))

	exists, err := afero.Exists(fs, archive+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRewriteArchive_FailureLeavesOriginal(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	archive := filepath.Join(archiveDir, "match.zip")
	writeZip(t, fs, archive, map[string]string{"001.JPG": "stale", "report.txt": "r"})
	before, err := afero.ReadFile(fs, archive)
	require.NoError(t, err)

	err = RewriteArchive(fs, archive, []string{"/tmp/ss/missing.JPG"})
	require.Error(t, err)

	after, err := afero.ReadFile(fs, archive)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	exists, err := afero.Exists(fs, archive+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRewriteArchive_NotAZip(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	archive := filepath.Join(archiveDir, "broken.zip")
	require.NoError(t, afero.WriteFile(fs, archive, []byte("not a zip"), 0o644))

	require.Error(t, RewriteArchive(fs, archive, nil))
}

func TestMoveProcessed(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	shots := []string{"/tmp/ss/001.JPG", "/tmp/ss/002.JPG"}
	for _, s := range shots {
		require.NoError(t, afero.WriteFile(fs, s, []byte("x"), 0o644))
	}

	require.NoError(t, MoveProcessed(fs, "/tmp/ss", shots))

	entries, err := afero.ReadDir(fs, "/tmp/ss/old")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"001.JPG", "002.JPG"}, names)

	require.Error(t, MoveProcessed(fs, "/tmp/ss", []string{"/tmp/ss/404.JPG"}))
}
