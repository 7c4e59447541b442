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

package installer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/coyoteclan/codlinux/pkg/testing/helpers"
	"github.com/coyoteclan/codlinux/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	appsDir = "/home/user/.local/share/applications"
	exePath = "/games/cod/codlinux"
)

func descs(variants ...games.Variant) []games.Descriptor {
	out := make([]games.Descriptor, 0, len(variants))
	for _, v := range variants {
		out = append(out, games.Descriptor{Variant: v})
	}
	return out
}

func TestPlanEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fileName string
		schemes  []string
		descs    []games.Descriptor
		wantOK   bool
	}{
		{
			name:     "base only",
			descs:    descs(games.VariantBase),
			fileName: "CoDLinux.desktop",
			wantOK:   true,
		},
		{
			name:     "base with iw1x",
			descs:    descs(games.VariantBase, games.VariantIW1X),
			fileName: "CoDLinux.desktop",
			schemes:  []string{"iw1x"},
			wantOK:   true,
		},
		{
			name:     "expansion with t1x",
			descs:    descs(games.VariantBase, games.VariantExpansion, games.VariantIW1X, games.VariantT1X),
			fileName: "CoDLinux_(uo).desktop",
			schemes:  []string{"t1x"},
			wantOK:   true,
		},
		{
			name:     "expansion without t1x",
			descs:    descs(games.VariantExpansion, games.VariantIW1X),
			fileName: "CoDLinux_(uo).desktop",
			wantOK:   true,
		},
		{
			name:  "clients only",
			descs: descs(games.VariantIW1X, games.VariantT1X),
		},
		{
			name: "nothing detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, ok := PlanEntry(tt.descs)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.fileName, e.FileName)
			assert.Equal(t, tt.schemes, e.Schemes)
		})
	}
}

func TestDesktopFile(t *testing.T) {
	t.Parallel()

	e, ok := PlanEntry(descs(games.VariantExpansion))
	require.True(t, ok)
	content := DesktopFile(e, exePath)
	assert.Contains(t, content, "Name=CoDLinux (uo)\n")
	assert.Contains(t, content, "Exec=/games/cod/codlinux %u\n")
	assert.Contains(t, content, "Path=/games/cod\n")
	assert.Contains(t, content, "MimeType=x-scheme-handler/iw1x;x-scheme-handler/t1x;\n")
}

func TestInstall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setupMock     func(*mocks.MockCommandExecutor)
		name          string
		errorContains string
		descs         []games.Descriptor
		expectError   bool
	}{
		{
			name:  "registers t1x",
			descs: descs(games.VariantExpansion, games.VariantT1X),
			setupMock: func(cmd *mocks.MockCommandExecutor) {
				cmd.ExpectedCalls = nil
				cmd.On("Run", mock.Anything, "xdg-mime",
					[]string{"default", "CoDLinux_(uo).desktop", "x-scheme-handler/t1x"}).
					Return(nil).Once()
			},
		},
		{
			name:  "no schemes to register",
			descs: descs(games.VariantBase),
			setupMock: func(cmd *mocks.MockCommandExecutor) {
				cmd.ExpectedCalls = nil
			},
		},
		{
			name:  "xdg-mime failure is reported",
			descs: descs(games.VariantBase, games.VariantIW1X),
			setupMock: func(cmd *mocks.MockCommandExecutor) {
				cmd.ExpectedCalls = nil
				cmd.On("Run", mock.Anything, "xdg-mime", mock.Anything).
					Return(errors.New("command not found"))
			},
			expectError:   true,
			errorContains: "iw1x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			cmd := helpers.NewMockCommandExecutor()
			if tt.setupMock != nil {
				tt.setupMock(cmd)
			}

			inst := NewInstaller(fs, cmd, WithApplicationsDir(appsDir))
			e, err := inst.Install(context.Background(), exePath, tt.descs)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}

			// the desktop file is written even when registration fails
			data, readErr := afero.ReadFile(fs, filepath.Join(appsDir, e.FileName))
			require.NoError(t, readErr)
			assert.Contains(t, string(data), "Exec=/games/cod/codlinux %u")

			cmd.AssertExpectations(t)
		})
	}
}

func TestInstall_SkipsWithoutBaseOrExpansion(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cmd := helpers.NewMockCommandExecutor()
	inst := NewInstaller(fs, cmd, WithApplicationsDir(appsDir))

	e, err := inst.Install(context.Background(), exePath, descs(games.VariantIW1X))
	require.NoError(t, err)
	assert.Empty(t, e.FileName)

	exists, err := afero.DirExists(fs, appsDir)
	require.NoError(t, err)
	assert.False(t, exists)
	cmd.AssertNotCalled(t, "Run", mock.Anything, "xdg-mime", mock.Anything)
}

func TestInstall_ReadOnlyFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	cmd := helpers.NewMockCommandExecutor()
	inst := NewInstaller(fs, cmd, WithApplicationsDir(appsDir))

	_, err := inst.Install(context.Background(), exePath, descs(games.VariantBase, games.VariantIW1X))
	require.Error(t, err)
	cmd.AssertNotCalled(t, "Run", mock.Anything, "xdg-mime", mock.Anything)
}
