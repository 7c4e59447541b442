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

// Package service ties the launcher together: it owns the display snapshot,
// the shared state and the task registry, and starts launches, update
// checks, downloads and capture sessions on behalf of the CLI and the UI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coyoteclan/codlinux/pkg/capture"
	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/display"
	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	"github.com/coyoteclan/codlinux/pkg/launcher"
	"github.com/coyoteclan/codlinux/pkg/notify"
	"github.com/coyoteclan/codlinux/pkg/settings"
	"github.com/coyoteclan/codlinux/pkg/shared/httpclient"
	"github.com/coyoteclan/codlinux/pkg/state"
	"github.com/coyoteclan/codlinux/pkg/tasks"
	"github.com/coyoteclan/codlinux/pkg/updater"
	"github.com/rs/zerolog/log"
)

var ErrNoRelease = errors.New("no release to download")

// CaptureRunner is the part of capture.Coordinator the service drives.
type CaptureRunner interface {
	Prepare() error
	Run(ctx context.Context) error
	Phase() capture.Phase
}

// Deps are the collaborators an Orchestrator is built from.
type Deps struct {
	Config     *config.Instance
	Settings   *settings.Store
	Scanner    *games.Scanner
	Guard      *display.Guard
	Snapshot   *display.Snapshot
	State      *state.State
	Tasks      *tasks.Registry
	Supervisor *launcher.Supervisor
	Checker    *updater.Checker
	Installer  *updater.Installer
	Notifier   notify.Notifier
	NewCapture func() CaptureRunner
}

// LaunchRequest is one game start. Interactive requests also persist the
// picker's options before launching.
type LaunchRequest struct {
	Prefix      string
	Extra       []string
	Game        games.Descriptor
	Remember    bool
	Assist      bool
	Interactive bool
}

type Orchestrator struct {
	cfg           *config.Instance
	settings      *settings.Store
	scanner       *games.Scanner
	guard         *display.Guard
	snapshot      *display.Snapshot
	state         *state.State
	tasks         *tasks.Registry
	supervisor    *launcher.Supervisor
	checker       *updater.Checker
	installer     *updater.Installer
	notifier      notify.Notifier
	newCapture    func() CaptureRunner
	capture       CaptureRunner
	cancelCapture context.CancelFunc
	release       *updater.Release
	mu            syncutil.Mutex
	launchMu      syncutil.Mutex
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		cfg:        d.Config,
		settings:   d.Settings,
		scanner:    d.Scanner,
		guard:      d.Guard,
		snapshot:   d.Snapshot,
		state:      d.State,
		tasks:      d.Tasks,
		supervisor: d.Supervisor,
		checker:    d.Checker,
		installer:  d.Installer,
		notifier:   d.Notifier,
		newCapture: d.NewCapture,
	}
}

func (o *Orchestrator) State() *state.State {
	return o.state
}

// CaptureDisplay records the display mode to restore after games. Only the
// first successful capture is kept.
func (o *Orchestrator) CaptureDisplay(ctx context.Context) *display.Mode {
	return o.snapshot.Capture(ctx, o.guard)
}

// Scan finds the games in dir and applies each one's saved overrides.
func (o *Orchestrator) Scan(ctx context.Context, dir string) ([]games.Descriptor, error) {
	descs, err := o.scanner.Scan(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	for i := range descs {
		vals, err := o.settings.Load(descs[i].Key())
		if err != nil {
			log.Warn().Err(err).Str("game", descs[i].Key()).Msg("failed to load game settings")
			continue
		}
		descs[i].Overrides = games.Overrides{
			WinePrefix: vals[settings.KeyGamePrefix],
			Env:        vals[settings.KeyGameEnvars],
			Args:       vals[settings.KeyGameArgs],
		}
	}
	return descs, nil
}

func (o *Orchestrator) global(key string) string {
	v, err := o.settings.Get(settings.Global, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read setting")
	}
	return v
}

// Defaults reads the launch fallbacks from the global settings.
func (o *Orchestrator) Defaults() launcher.Defaults {
	return launcher.Defaults{
		SessionPrefix: o.global(settings.KeyWinePrefix),
		WinePrefix:    o.global(settings.KeyDefaultWinePrefix),
		Env:           o.global(settings.KeyDefaultEnvars),
	}
}

// Decide picks the startup path for args and the scanned games.
func (o *Orchestrator) Decide(args []string, descs []games.Descriptor) Decision {
	return Decide(args, descs, o.global(settings.KeyRememberedGame))
}

func (o *Orchestrator) AssistEnabled() bool {
	return o.settings.Bool(settings.Global, settings.KeyAssistCapture)
}

// Forget clears the remembered game.
func (o *Orchestrator) Forget() error {
	if err := o.settings.Delete(settings.Global, settings.KeyRememberedGame); err != nil {
		return fmt.Errorf("failed to forget game: %w", err)
	}
	return nil
}

func (o *Orchestrator) persist(req LaunchRequest) {
	if req.Remember {
		log.Info().Str("game", req.Game.Label).Msg("remembering choice")
		if err := o.settings.Set(settings.Global, settings.KeyRememberedGame, req.Game.Path); err != nil {
			log.Error().Err(err).Msg("failed to remember game")
		}
	}
	if err := o.settings.SetBool(settings.Global, settings.KeyAssistCapture, req.Assist); err != nil {
		log.Error().Err(err).Msg("failed to save capture option")
	}
	if err := o.settings.Set(settings.Global, settings.KeyWinePrefix, req.Prefix); err != nil {
		log.Error().Err(err).Msg("failed to save wine prefix")
	}
}

// StartLaunch starts the game in the background. Capture is only set up
// when assist is on; its scratch directory is not touched otherwise. A
// request made while a game is running is rejected before anything is
// persisted or prepared.
func (o *Orchestrator) StartLaunch(ctx context.Context, req LaunchRequest) (*tasks.Handle, error) {
	o.launchMu.Lock()
	defer o.launchMu.Unlock()

	if o.tasks.Running(tasks.Launch) || o.supervisor.Active() {
		return nil, fmt.Errorf("failed to start launch: %w", &tasks.AlreadyRunningError{Category: tasks.Launch})
	}

	if req.Interactive {
		o.persist(req)
	}

	if req.Assist {
		if err := o.startCapture(ctx); err != nil {
			log.Error().Err(err).Msg("failed to start capture")
		}
	}

	defaults := o.Defaults()
	mode := o.snapshot.Mode()
	h, err := o.tasks.Start(tasks.Launch, func() error {
		_, err := o.supervisor.Launch(ctx, req.Game, defaults, req.Extra, mode)
		if err != nil {
			notify.Send(ctx, o.notifier, "Failed to launch "+req.Game.Label, 5*time.Second, false)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start launch: %w", err)
	}
	return h, nil
}

func (o *Orchestrator) startCapture(ctx context.Context) error {
	if o.newCapture == nil {
		return nil
	}
	c := o.newCapture()
	if err := c.Prepare(); err != nil {
		return err //nolint:wrapcheck // already describes the step
	}

	capCtx, cancel := context.WithCancel(ctx)
	_, err := o.tasks.Start(tasks.Capture, func() error {
		return c.Run(capCtx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start capture task: %w", err)
	}

	o.mu.Lock()
	o.capture = c
	o.cancelCapture = cancel
	o.mu.Unlock()

	o.state.EnableCapture()
	return nil
}

// WaitLaunch blocks until the current game exits. A capture session that
// never got as far as taking screenshots is stopped, since the game it was
// waiting for is gone.
func (o *Orchestrator) WaitLaunch() error {
	err := o.tasks.Wait(tasks.Launch)

	o.mu.Lock()
	c, cancel := o.capture, o.cancelCapture
	o.mu.Unlock()
	if c != nil && c.Phase() < capture.Capturing {
		log.Info().Str("phase", c.Phase().String()).Msg("game exited before capture began, stopping capture")
		cancel()
	}
	return err //nolint:wrapcheck // task error
}

// Wait joins every background task.
func (o *Orchestrator) Wait() error {
	err := o.tasks.JoinAll()
	if errors.Is(err, context.Canceled) {
		// a stopped capture is expected
		return nil
	}
	return err //nolint:wrapcheck // task errors
}

// CheckErrorMessage is the short user-facing text for a failed check.
func CheckErrorMessage(err error) string {
	var status *httpclient.StatusError
	switch {
	case errors.Is(err, httpclient.ErrTimeout):
		return "Update check timed out"
	case errors.As(err, &status):
		return fmt.Sprintf("Update server returned %d", status.Code)
	case errors.Is(err, updater.ErrNoPublishTime):
		return "Release has no publish time"
	default:
		return "Update check failed"
	}
}

// CheckNow checks for an update and waits for the answer. An available
// update is flagged in the shared state for the UI.
func (o *Orchestrator) CheckNow(ctx context.Context) (updater.CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Updates().CheckTimeout.Duration)
	defer cancel()

	res, err := o.checker.Check(ctx)
	if err != nil {
		return res, fmt.Errorf("update check failed: %w", err)
	}
	if res.Available {
		o.mu.Lock()
		o.release = res.Release
		o.mu.Unlock()
		o.state.SetUpdateAvailable(res.Changelog)
	}
	return res, nil
}

// StartCheck runs CheckNow in the background, telling the user how it went.
// Quiet suppresses the "no update" and progress notices for startup checks.
func (o *Orchestrator) StartCheck(ctx context.Context, quiet bool) error {
	_, err := o.tasks.Start(tasks.Check, func() error {
		if !quiet {
			notify.Send(ctx, o.notifier, "Checking for updates...", 3*time.Second, true)
		}
		res, err := o.CheckNow(ctx)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("update check failed")
			notify.Send(ctx, o.notifier, CheckErrorMessage(err), 5*time.Second, false)
			return err
		case res.Available:
			notify.Send(ctx, o.notifier, "Update available!", 3*time.Second, true)
		case !quiet:
			notify.Send(ctx, o.notifier, "No update available!", 3*time.Second, true)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to start update check: %w", err)
	}
	return nil
}

// DownloadNow installs the release found by the last check, fetching the
// release metadata first if there wasn't one. Progress goes to the shared
// state.
func (o *Orchestrator) DownloadNow(ctx context.Context) error {
	o.state.StartDownload()
	return o.download(ctx)
}

func (o *Orchestrator) download(ctx context.Context) error {
	o.mu.Lock()
	rel := o.release
	o.mu.Unlock()

	if rel == nil {
		res, err := o.CheckNow(ctx)
		if err != nil {
			o.state.FailDownload(CheckErrorMessage(err))
			return err
		}
		if !res.Available {
			o.state.FailDownload("No update available")
			return ErrNoRelease
		}
		rel = res.Release
	}

	err := o.installer.DownloadAndInstall(ctx, rel, o.state.SetProgress)
	if err != nil {
		o.state.FailDownload(err.Error())
		return fmt.Errorf("update install failed: %w", err)
	}

	o.state.FinishDownload()
	log.Info().Str("release", rel.TagName).Msg("update installed")
	return nil
}

// StartDownload runs DownloadNow in the background. The shared state is
// reset before returning so a poller never sees the previous attempt.
func (o *Orchestrator) StartDownload(ctx context.Context) error {
	if o.tasks.Running(tasks.Download) {
		return &tasks.AlreadyRunningError{Category: tasks.Download}
	}
	o.state.StartDownload()
	_, err := o.tasks.Start(tasks.Download, func() error {
		return o.download(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}
	return nil
}
