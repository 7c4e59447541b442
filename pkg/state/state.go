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

// Package state holds the flags shared between the UI loop and background
// tasks. Every flag lives behind one lock so readers always see a consistent
// combination.
package state

import (
	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	"github.com/coyoteclan/codlinux/pkg/updater"
)

// Snapshot is a point-in-time copy of the shared flags.
type Snapshot struct {
	Changelog        string
	DownloadError    string
	Progress         updater.Progress
	GameRunning      bool
	CaptureEnabled   bool
	UpdateAvailable  bool
	DownloadStarted  bool
	DownloadFinished bool
}

type State struct {
	s  Snapshot
	mu syncutil.RWMutex
}

func New() *State {
	return &State{}
}

func (st *State) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Launch task.

func (st *State) SetGameRunning(running bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.GameRunning = running
}

func (st *State) GameRunning() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.GameRunning
}

// EnableCapture is set once by the launch task when assist is on.
func (st *State) EnableCapture() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CaptureEnabled = true
}

func (st *State) CaptureEnabled() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.CaptureEnabled
}

// Check task.

func (st *State) SetUpdateAvailable(changelog string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.UpdateAvailable = true
	st.s.Changelog = changelog
}

// ConsumeUpdateAvailable reports whether an update was flagged and clears
// the flag, so the UI reacts once.
func (st *State) ConsumeUpdateAvailable() (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.s.UpdateAvailable {
		return "", false
	}
	st.s.UpdateAvailable = false
	return st.s.Changelog, true
}

// Download task.

// StartDownload marks a download as started and resets progress.
func (st *State) StartDownload() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.DownloadStarted = true
	st.s.DownloadError = ""
	st.s.Progress = updater.Progress{}
}

// SetProgress records p unless it would move progress backwards.
func (st *State) SetProgress(p updater.Progress) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p.Total == st.s.Progress.Total && p.Written < st.s.Progress.Written {
		return
	}
	st.s.Progress = p
}

func (st *State) FinishDownload() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.DownloadFinished = true
}

// FailDownload records a user-facing error. A new StartDownload clears it.
func (st *State) FailDownload(msg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.DownloadError = msg
}
