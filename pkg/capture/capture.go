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

// Package capture takes periodic screenshots while a game runs under the
// screenshot companion and folds them into the companion's last archive.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/helpers/command"
	"github.com/coyoteclan/codlinux/pkg/notify"
	"github.com/coyoteclan/codlinux/pkg/procs"
	"github.com/coyoteclan/codlinux/pkg/state"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

type Phase int32

const (
	WaitingForSignal Phase = iota
	WaitingForCompanion
	WaitingForGame
	Capturing
	Finalizing
	Done
)

func (p Phase) String() string {
	switch p {
	case WaitingForSignal:
		return "waiting for signal"
	case WaitingForCompanion:
		return "waiting for companion"
	case WaitingForGame:
		return "waiting for game"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

type Options struct {
	Companion   string
	ArchiveDir  string
	ScratchDir  string
	Tool        string
	Interval    time.Duration
	PollDelay   time.Duration
	SignalPoll  time.Duration
	WarmUp      time.Duration
	NotifyEvery time.Duration
}

func DefaultOptions() Options {
	return Options{
		Companion:   "moss",
		ArchiveDir:  filepath.Join(xdg.Home, "MOSS"),
		ScratchDir:  filepath.Join(os.TempDir(), "codlinux_ss"),
		Tool:        "scrot",
		Interval:    10 * time.Second,
		PollDelay:   3 * time.Second,
		SignalPoll:  2 * time.Second,
		WarmUp:      3 * time.Second,
		NotifyEvery: 9 * time.Second,
	}
}

// OptionsFrom overlays the configured capture values on DefaultOptions.
// Empty or zero values keep the default.
func OptionsFrom(c config.Capture) Options {
	o := DefaultOptions()
	if c.Companion != "" {
		o.Companion = c.Companion
	}
	if c.ArchiveDir != "" {
		o.ArchiveDir = c.ArchiveDir
	}
	if c.ScratchDir != "" {
		o.ScratchDir = c.ScratchDir
	}
	if c.Tool != "" {
		o.Tool = c.Tool
	}
	if c.Interval.Duration > 0 {
		o.Interval = c.Interval.Duration
	}
	if c.PollDelay.Duration > 0 {
		o.PollDelay = c.PollDelay.Duration
	}
	return o
}

type Coordinator struct {
	fs       afero.Fs
	cmd      command.Executor
	finder   *procs.Finder
	matcher  procs.Matcher
	state    *state.State
	notifier notify.Notifier
	clock    clockwork.Clock
	exit     func(int)
	opts     Options
	phase    atomic.Int32
}

type Option func(*Coordinator)

func WithClock(c clockwork.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithExit replaces os.Exit as the terminal step.
func WithExit(fn func(int)) Option {
	return func(co *Coordinator) {
		co.exit = fn
	}
}

// companionMatcher finds the companion by process name, or by its .exe in
// the command line when it runs under wine.
func companionMatcher(name string) procs.Matcher {
	return procs.NewOrMatcher(
		procs.NewCommMatcher(name),
		procs.NewCmdlineContainsMatcher(name+".exe"),
	)
}

func NewCoordinator(
	fs afero.Fs,
	cmd command.Executor,
	finder *procs.Finder,
	st *state.State,
	notifier notify.Notifier,
	opts Options,
	options ...Option,
) *Coordinator {
	c := &Coordinator{
		fs:       fs,
		cmd:      cmd,
		finder:   finder,
		matcher:  companionMatcher(opts.Companion),
		state:    st,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		exit:     os.Exit,
		opts:     opts,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Coordinator) setPhase(p Phase) {
	c.phase.Store(int32(p))
	log.Debug().Str("phase", p.String()).Msg("capture phase")
}

// Prepare empties the scratch directory. It runs before the background
// task so leftovers from an earlier session are never archived.
func (c *Coordinator) Prepare() error {
	if err := c.fs.RemoveAll(c.opts.ScratchDir); err != nil {
		return fmt.Errorf("failed to clear scratch dir: %w", err)
	}
	if err := c.fs.MkdirAll(c.opts.ScratchDir, 0o750); err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return nil
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context error
	case <-c.clock.After(d):
		return nil
	}
}

func (c *Coordinator) companionRunning(ctx context.Context) bool {
	ok, err := c.finder.Running(ctx, c.matcher)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check companion process")
		return false
	}
	return ok
}

// waitFor polls cond every delay, reminding the user with msg at most once
// per NotifyEvery while it stays false.
func (c *Coordinator) waitFor(
	ctx context.Context,
	delay time.Duration,
	msg string,
	cond func() bool,
) error {
	var limiter *rate.Limiter
	if msg != "" {
		limiter = rate.NewLimiter(rate.Every(c.opts.NotifyEvery), 1)
	}
	for !cond() {
		if limiter != nil && limiter.AllowN(c.clock.Now(), 1) {
			notify.Send(ctx, c.notifier, msg, 3*time.Second, true)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the capture state machine. On completion it notifies the user
// and calls the exit function; a restart is needed to capture again.
func (c *Coordinator) Run(ctx context.Context) error {
	c.setPhase(WaitingForSignal)
	if err := c.waitFor(ctx, c.opts.SignalPoll, "", c.state.CaptureEnabled); err != nil {
		return err
	}

	c.setPhase(WaitingForCompanion)
	companion := func() bool { return c.companionRunning(ctx) }
	if err := c.waitFor(ctx, c.opts.PollDelay, "Open "+c.opts.Companion+"!", companion); err != nil {
		return err
	}

	c.setPhase(WaitingForGame)
	if err := c.waitFor(ctx, c.opts.PollDelay, "Game not running", c.state.GameRunning); err != nil {
		return err
	}

	c.setPhase(Capturing)
	shots, err := c.captureLoop(ctx)
	if err != nil {
		return err
	}

	c.setPhase(Finalizing)
	notCompanion := func() bool { return !c.companionRunning(ctx) }
	if err := c.waitFor(ctx, c.opts.PollDelay, "Close "+c.opts.Companion+"!", notCompanion); err != nil {
		return err
	}
	c.finalize(ctx, shots)

	c.setPhase(Done)
	notify.Send(ctx, c.notifier, "Restart CoDLinux for capturing again.", 5*time.Second, false)
	c.exit(0)
	return nil
}

func (c *Coordinator) captureLoop(ctx context.Context) ([]string, error) {
	if err := c.fs.MkdirAll(c.opts.ScratchDir, 0o750); err != nil {
		log.Error().Err(err).Msg("failed to create scratch dir")
	}

	// Let the game window come up first.
	if err := c.sleep(ctx, c.opts.WarmUp); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(c.opts.Interval), 1)
	var shots []string
	count := 1
	for c.state.GameRunning() {
		if limiter.AllowN(c.clock.Now(), 1) {
			path := filepath.Join(c.opts.ScratchDir, fmt.Sprintf("%03d.JPG", count))
			count++
			if err := c.cmd.Run(ctx, c.opts.Tool, "-z", "-o", "-u", path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("screenshot failed")
			} else if ok, _ := afero.Exists(c.fs, path); ok {
				shots = append(shots, path)
			}
		}
		if err := c.sleep(ctx, c.opts.PollDelay); err != nil {
			return nil, err
		}
	}

	log.Info().Int("shots", len(shots)).Msg("game exited, finishing capture")
	return shots, nil
}

// finalize folds the shots into the latest archive. Errors are reported to
// the user but do not stop the exit.
func (c *Coordinator) finalize(ctx context.Context, shots []string) {
	archive, err := LatestArchive(c.fs, c.opts.ArchiveDir)
	if err != nil {
		log.Error().Err(err).Msg("cannot pick archive")
		notify.Send(ctx, c.notifier, "Screenshots not added: "+err.Error(), 5*time.Second, false)
		return
	}

	if err := RewriteArchive(c.fs, archive, shots); err != nil {
		log.Error().Err(err).Str("archive", archive).Msg("archive update failed")
		notify.Send(ctx, c.notifier, "Failed to update "+filepath.Base(archive), 5*time.Second, false)
		return
	}

	if err := MoveProcessed(c.fs, c.opts.ScratchDir, shots); err != nil {
		log.Warn().Err(err).Msg("failed to move processed screenshots")
	}
}
