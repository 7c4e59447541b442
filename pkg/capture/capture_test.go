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
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/notify"
	"github.com/coyoteclan/codlinux/pkg/procs"
	"github.com/coyoteclan/codlinux/pkg/state"
	"github.com/coyoteclan/codlinux/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scratchDir = "/tmp/codlinux_ss"

type toggleLister struct {
	mu      sync.Mutex
	running bool
}

func (l *toggleLister) set(running bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = running
}

func (l *toggleLister) List(context.Context) ([]procs.ProcessInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return []procs.ProcessInfo{{PID: 1, Comm: "systemd"}}, nil
	}
	return []procs.ProcessInfo{{PID: 1, Comm: "systemd"}, {PID: 42, Comm: "MOSS"}}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg.Body)
	return nil
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

type harness struct {
	fs       afero.Fs
	clock    *clockwork.FakeClock
	lister   *toggleLister
	state    *state.State
	notifier *recordingNotifier
	cmd      *mocks.MockCommandExecutor
	coord    *Coordinator
	exited   chan int

	mu        sync.Mutex
	shotTimes []time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fs:       afero.NewMemMapFs(),
		clock:    clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)),
		lister:   &toggleLister{},
		state:    state.New(),
		notifier: &recordingNotifier{},
		cmd:      &mocks.MockCommandExecutor{},
		exited:   make(chan int, 1),
	}

	h.cmd.On("Run", mock.Anything, "scrot", mock.Anything).Run(func(args mock.Arguments) {
		argv, ok := args.Get(2).([]string)
		if !assert.True(t, ok) || !assert.Len(t, argv, 4) {
			return
		}
		assert.Equal(t, []string{"-z", "-o", "-u"}, argv[:3])
		assert.NoError(t, afero.WriteFile(h.fs, argv[3], []byte("jpeg "+filepath.Base(argv[3])), 0o644))
		h.mu.Lock()
		h.shotTimes = append(h.shotTimes, h.clock.Now())
		h.mu.Unlock()
	}).Return(nil)

	opts := DefaultOptions()
	opts.ArchiveDir = archiveDir
	opts.ScratchDir = scratchDir

	h.coord = NewCoordinator(h.fs, h.cmd, procs.NewFinder(h.lister), h.state, h.notifier, opts,
		WithClock(h.clock),
		WithExit(func(code int) { h.exited <- code }),
	)
	return h
}

func (h *harness) shots() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.shotTimes...)
}

// drive advances the fake clock until cond holds.
func (h *harness) drive(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out in phase %s", h.coord.Phase())
		}
		h.clock.Advance(500 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) start(ctx context.Context, t *testing.T) chan error {
	t.Helper()
	require.NoError(t, h.coord.Prepare())
	done := make(chan error, 1)
	go func() {
		done <- h.coord.Run(ctx)
	}()
	return done
}

func TestPrepare_ClearsScratchDir(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, filepath.Join(scratchDir, "old", "009.JPG"), []byte("x"), 0o644))

	require.NoError(t, h.coord.Prepare())

	entries, err := afero.ReadDir(h.fs, scratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_FullSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	writeZip(t, h.fs, filepath.Join(archiveDir, "match.zip"), map[string]string{
		"report.txt": "r",
		"007.JPG":    "previous run",
	})

	done := h.start(context.Background(), t)

	h.drive(t, func() bool { return h.coord.Phase() == WaitingForSignal })
	h.state.EnableCapture()
	h.drive(t, func() bool { return h.coord.Phase() == WaitingForCompanion })
	h.drive(t, func() bool {
		for _, m := range h.notifier.messages() {
			if m == "Open moss!" {
				return true
			}
		}
		return false
	})

	h.lister.set(true)
	h.drive(t, func() bool { return h.coord.Phase() == WaitingForGame })

	h.state.SetGameRunning(true)
	h.drive(t, func() bool { return len(h.shots()) >= 3 })

	h.state.SetGameRunning(false)
	h.drive(t, func() bool { return h.coord.Phase() == Finalizing })
	h.lister.set(false)

	var code int
	h.drive(t, func() bool {
		select {
		case code = <-h.exited:
			return true
		default:
			return false
		}
	})
	assert.Equal(t, 0, code)
	require.NoError(t, <-done)
	assert.Equal(t, Done, h.coord.Phase())

	times := h.shots()
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), 10*time.Second, "shot %d too soon", i)
	}

	entries := readZip(t, h.fs, filepath.Join(archiveDir, "match.zip"))
	assert.Equal(t, "r", entries["report.txt"])
	assert.NotContains(t, entries, "007.JPG")
	assert.Equal(t, "jpeg 001.JPG", entries["001.JPG"])
	assert.Len(t, entries, len(times)+1)

	moved, err := afero.ReadDir(h.fs, filepath.Join(scratchDir, ProcessedDir))
	require.NoError(t, err)
	assert.Len(t, moved, len(times))

	msgs := h.notifier.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Restart CoDLinux for capturing again.", msgs[len(msgs)-1])
}

func TestRun_NoArchiveStillExits(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.state.EnableCapture()
	h.state.SetGameRunning(true)
	h.lister.set(true)

	done := h.start(context.Background(), t)
	h.drive(t, func() bool { return len(h.shots()) >= 1 })
	h.state.SetGameRunning(false)
	h.lister.set(false)

	h.drive(t, func() bool { return len(h.exited) > 0 })
	assert.Equal(t, 0, <-h.exited)
	require.NoError(t, <-done)

	var reported bool
	for _, m := range h.notifier.messages() {
		if strings.HasPrefix(m, "Screenshots not added") {
			reported = true
		}
	}
	assert.True(t, reported)

	// Shots stay in the scratch dir when they could not be archived.
	ok, err := afero.Exists(h.fs, filepath.Join(scratchDir, "001.JPG"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := h.start(ctx, t)
	h.drive(t, func() bool { return h.coord.Phase() == WaitingForSignal })
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, h.exited)
	h.cmd.AssertNotCalled(t, "Run", mock.Anything, "scrot", mock.Anything)
}

func TestCompanionMatcher(t *testing.T) {
	t.Parallel()
	m := companionMatcher("moss")

	assert.True(t, m.Match(procs.ProcessInfo{Comm: "MOSS"}))
	assert.True(t, m.Match(procs.ProcessInfo{
		Comm:    "wine-preloader",
		Cmdline: `Z:\home\player\MOSS\MOSS.exe`,
	}))
	assert.False(t, m.Match(procs.ProcessInfo{
		Comm:    "wine-preloader",
		Cmdline: `C:\games\cod\CoDMP.exe +set r_ignorehwgamma 1`,
	}))
}

func TestPhaseString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "capturing", Capturing.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestOptionsFrom(t *testing.T) {
	t.Parallel()

	def := DefaultOptions()
	assert.Equal(t, def, OptionsFrom(config.Capture{}))

	o := OptionsFrom(config.Capture{
		Companion:  "obs",
		ArchiveDir: "/archives",
		Interval:   config.Duration{Duration: 30 * time.Second},
	})
	assert.Equal(t, "obs", o.Companion)
	assert.Equal(t, "/archives", o.ArchiveDir)
	assert.Equal(t, 30*time.Second, o.Interval)
	assert.Equal(t, def.ScratchDir, o.ScratchDir)
	assert.Equal(t, def.PollDelay, o.PollDelay)
	assert.Equal(t, def.Tool, o.Tool)
}
