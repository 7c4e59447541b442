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

package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/require"
)

// testScreen wraps a SimulationScreen with text helpers.
type testScreen struct {
	tcell.SimulationScreen
}

func newTestScreen(t *testing.T, width, height int) *testScreen {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	require.NotNil(t, sim, "failed to create simulation screen")
	require.NoError(t, sim.Init(), "failed to initialize simulation screen")
	sim.SetSize(width, height)
	return &testScreen{SimulationScreen: sim}
}

// text returns all screen content, one line per row.
func (s *testScreen) text() string {
	cells, width, height := s.GetContents()
	var sb strings.Builder
	for y := range height {
		for x := range width {
			cell := cells[y*width+x]
			if len(cell.Runes) > 0 {
				sb.WriteRune(cell.Runes[0])
			} else {
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

// appRunner runs a tview application on a simulation screen.
type appRunner struct {
	runErr  error
	app     *tview.Application
	screen  *testScreen
	done    chan struct{}
	stopMu  syncutil.Mutex
	stopped bool
}

func newAppRunner(t *testing.T, app *tview.Application, width, height int) *appRunner {
	t.Helper()
	screen := newTestScreen(t, width, height)
	app.SetScreen(screen.SimulationScreen)
	return &appRunner{app: app, screen: screen, done: make(chan struct{})}
}

func (r *appRunner) start(run func() error) {
	go func() {
		defer close(r.done)
		r.runErr = run()
		r.stopMu.Lock()
		r.stopped = true
		r.stopMu.Unlock()
	}()
	// let the app draw once
	time.Sleep(20 * time.Millisecond)
}

func (r *appRunner) stop() {
	r.stopMu.Lock()
	already := r.stopped
	r.stopped = true
	r.stopMu.Unlock()
	if !already {
		r.app.Stop()
	}
	<-r.done
}

func (r *appRunner) isStopped() bool {
	r.stopMu.Lock()
	defer r.stopMu.Unlock()
	return r.stopped
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
