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

package state

import (
	"sync"
	"testing"

	"github.com/coyoteclan/codlinux/pkg/updater"
	"github.com/stretchr/testify/assert"
)

func TestNew_AllFlagsFalse(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Snapshot{}, New().Snapshot())
}

func TestConsumeUpdateAvailable_ClearsOnce(t *testing.T) {
	t.Parallel()
	st := New()

	_, ok := st.ConsumeUpdateAvailable()
	assert.False(t, ok)

	st.SetUpdateAvailable("* fixes")
	assert.True(t, st.Snapshot().UpdateAvailable)

	changelog, ok := st.ConsumeUpdateAvailable()
	assert.True(t, ok)
	assert.Equal(t, "* fixes", changelog)

	_, ok = st.ConsumeUpdateAvailable()
	assert.False(t, ok)
	assert.False(t, st.Snapshot().UpdateAvailable)
}

func TestDownloadLifecycle(t *testing.T) {
	t.Parallel()
	st := New()

	st.StartDownload()
	st.SetProgress(updater.Progress{Written: 10, Total: 100})
	st.SetProgress(updater.Progress{Written: 5, Total: 100})
	assert.Equal(t, int64(10), st.Snapshot().Progress.Written)

	st.FailDownload("Download failed: timeout")
	snap := st.Snapshot()
	assert.True(t, snap.DownloadStarted)
	assert.Equal(t, "Download failed: timeout", snap.DownloadError)

	st.StartDownload()
	snap = st.Snapshot()
	assert.Empty(t, snap.DownloadError)
	assert.Equal(t, updater.Progress{}, snap.Progress)

	st.SetProgress(updater.Progress{Written: 100, Total: 100})
	st.FinishDownload()
	snap = st.Snapshot()
	assert.True(t, snap.DownloadFinished)
	assert.InDelta(t, 1.0, snap.Progress.Fraction(), 0)
}

func TestGameRunningAndCapture(t *testing.T) {
	t.Parallel()
	st := New()

	st.SetGameRunning(true)
	st.EnableCapture()
	assert.True(t, st.GameRunning())
	assert.True(t, st.CaptureEnabled())

	st.SetGameRunning(false)
	assert.False(t, st.GameRunning())
	assert.True(t, st.CaptureEnabled())
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	t.Parallel()
	st := New()
	st.StartDownload()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(0); i <= 1000; i++ {
			st.SetProgress(updater.Progress{Written: i, Total: 1000})
		}
		st.FinishDownload()
	}()
	go func() {
		defer wg.Done()
		var last float64
		for range 1000 {
			snap := st.Snapshot()
			f := snap.Progress.Fraction()
			assert.GreaterOrEqual(t, f, last)
			last = f
			if snap.DownloadFinished {
				assert.InDelta(t, 1.0, f, 0)
			}
		}
	}()
	wg.Wait()
}
