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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/coyoteclan/codlinux/internal/telemetry"
	"github.com/coyoteclan/codlinux/pkg/capture"
	"github.com/coyoteclan/codlinux/pkg/cli"
	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/display"
	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/coyoteclan/codlinux/pkg/helpers"
	"github.com/coyoteclan/codlinux/pkg/helpers/command"
	"github.com/coyoteclan/codlinux/pkg/launcher"
	"github.com/coyoteclan/codlinux/pkg/notify"
	"github.com/coyoteclan/codlinux/pkg/platforms/linux/installer"
	"github.com/coyoteclan/codlinux/pkg/procs"
	"github.com/coyoteclan/codlinux/pkg/service"
	"github.com/coyoteclan/codlinux/pkg/settings"
	"github.com/coyoteclan/codlinux/pkg/shared/httpclient"
	"github.com/coyoteclan/codlinux/pkg/state"
	"github.com/coyoteclan/codlinux/pkg/tasks"
	"github.com/coyoteclan/codlinux/pkg/ui/tui"
	"github.com/coyoteclan/codlinux/pkg/updater"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Flush()
		os.Exit(1)
	}
}

// exit flushes error reports before leaving. Background tasks that end the
// process use it instead of os.Exit.
func exit(code int) {
	telemetry.Close()
	os.Exit(code)
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if err := flags.Pre(os.Args[1:], os.Stdout); err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	if os.Geteuid() == 0 {
		return errors.New("codlinux cannot be run as root")
	}

	cfg, err := config.NewConfig(filepath.Join(xdg.ConfigHome, config.AppName), config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	var logWriters []io.Writer
	if *flags.Debug {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}
	logDir := filepath.Join(xdg.StateHome, config.AppName)
	if err := helpers.InitLogging(logDir, *flags.Debug || cfg.DebugLogging(), logWriters); err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}
	log.Info().Str("version", config.AppVersion).Msg("starting " + config.AppName)

	reporting := cfg.ErrorReporting()
	if err := telemetry.Init(reporting.Enabled, reporting.DSN, config.AppVersion); err != nil {
		log.Warn().Err(err).Msg("error reporting not started")
	}
	defer telemetry.Close()

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Error().Interface("panic", r).Msg("launcher panicked")
			telemetry.Flush()
			os.Exit(1)
		}
	}()

	exePath, err := helpers.ExePath()
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	exeDir := filepath.Dir(exePath)

	buildTime, err := config.ParseBuildTime(config.BuildTime, exePath)
	if err != nil {
		log.Warn().Err(err).Msg("unknown build time, update checks will always offer the latest release")
	}

	var markup updater.Markup = tui.Markup{}
	if flags.Headless() {
		markup = updater.PlainMarkup{}
	}

	fs := afero.NewOsFs()
	cmd := &command.RealExecutor{}
	st := state.New()
	notifier := notify.New(cmd)
	guard := display.NewGuard(cmd, cfg.DisplayTool())
	updates := cfg.Updates()

	orch := service.New(service.Deps{
		Config:     cfg,
		Settings:   settings.NewStore(fs, filepath.Join(exeDir, config.SettingsDir)),
		Scanner:    games.NewScanner(fs),
		Guard:      guard,
		Snapshot:   &display.Snapshot{},
		State:      st,
		Tasks:      tasks.NewRegistry(tasks.WithPanicHandler(telemetry.ReportPanic)),
		Supervisor: launcher.NewSupervisor(cmd, guard, st, cfg.WineBinary(), launcher.WithGameLog(logDir)),
		Checker: updater.NewChecker(
			httpclient.NewClientWithTimeout(updates.CheckTimeout.Duration),
			cfg.ReleasesURL(),
			buildTime,
			updates.Skew.Duration,
			updater.WithMarkup(markup),
		),
		Installer: updater.NewInstaller(
			fs,
			httpclient.NewClientWithTimeout(updates.DownloadTimeout.Duration),
			exePath,
		),
		Notifier: notifier,
		NewCapture: func() service.CaptureRunner {
			return capture.NewCoordinator(
				fs, cmd, procs.NewFinder(nil), st, notifier,
				capture.OptionsFrom(cfg.Capture()),
				capture.WithExit(exit),
			)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *flags.Forget {
		if err := orch.Forget(); err != nil {
			log.Error().Err(err).Msg("failed to forget remembered game")
		}
	}

	if flags.Headless() {
		return runHeadless(ctx, orch, *flags.Update)
	}

	descs, err := orch.Scan(ctx, exeDir)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	if len(descs) == 0 {
		notify.Send(ctx, notifier, "No game executables found next to "+config.DisplayName, 5*time.Second, false)
		return fmt.Errorf("none of %s found in %s", strings.Join(games.ExecutableNames(), ", "), exeDir)
	}

	if mode := orch.CaptureDisplay(ctx); mode == nil {
		log.Warn().Msg("display mode unknown, it won't be restored after the game")
	}

	desktop := installer.NewInstaller(fs, cmd)
	if _, err := desktop.Install(ctx, exePath, descs); err != nil {
		log.Warn().Err(err).Msg("desktop integration incomplete")
	}

	dec := orch.Decide(flags.Args(), descs)
	log.Info().Str("mode", dec.Mode.String()).Msg("startup decision")

	switch dec.Mode {
	case service.Direct, service.Remembered:
		if dec.Target != nil {
			msg := fmt.Sprintf("Launching %s...", dec.Target.Variant)
			notify.Send(ctx, notifier, msg, 2*time.Second, true)
		}
		_, err := orch.StartLaunch(ctx, service.LaunchRequest{
			Game:   dec.Game,
			Extra:  dec.Extra,
			Assist: orch.AssistEnabled(),
		})
		if err != nil {
			return err //nolint:wrapcheck // already wrapped
		}
	case service.Interactive:
		if err := runPicker(ctx, cfg, orch, notifier, descs, dec.Extra); err != nil {
			return err
		}
	}

	if err := orch.WaitLaunch(); err != nil {
		// the user has already been notified
		log.Error().Err(err).Msg("game session ended with an error")
	}
	if err := orch.Wait(); err != nil {
		log.Error().Err(err).Msg("background task failed")
	}

	log.Info().Msg("exiting " + config.AppName)
	return nil
}

func runPicker(
	ctx context.Context,
	cfg *config.Instance,
	orch *service.Orchestrator,
	notifier notify.Notifier,
	descs []games.Descriptor,
	extra []string,
) error {
	if cfg.CheckOnStartup() {
		if err := orch.StartCheck(ctx, true); err != nil {
			log.Warn().Err(err).Msg("startup update check not started")
		}
	}

	defaults := orch.Defaults()
	prefix := defaults.SessionPrefix
	if prefix == "" {
		prefix = defaults.WinePrefix
	}
	if prefix == "" {
		prefix = os.ExpandEnv(launcher.FallbackPrefix)
	}

	tui.ApplyTheme(&tui.ThemeDefault)
	picker := tui.NewPicker(ctx, tview.NewApplication(), orch, tui.Options{
		Games:    descs,
		Extra:    extra,
		Prefix:   prefix,
		Assist:   orch.AssistEnabled(),
		Notifier: notifier,
		Exit:     exit,
	})
	if err := picker.Run(); err != nil {
		return fmt.Errorf("error running UI: %w", err)
	}
	if !picker.Launched() {
		log.Info().Msg("picker closed without a launch")
	}
	return nil
}

func runHeadless(ctx context.Context, orch *service.Orchestrator, install bool) error {
	res, err := orch.CheckNow(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", service.CheckErrorMessage(err), err)
	}
	if !res.Available {
		_, _ = fmt.Println("No update available.")
		return nil
	}

	_, _ = fmt.Printf("Update available: %s\n\n%s\n", res.Release.TagName, res.Changelog)
	if !install {
		return nil
	}

	_, _ = fmt.Println("Downloading...")
	if err := orch.DownloadNow(ctx); err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	_, _ = fmt.Printf("Update installed (%s). Restart %s to use it.\n",
		orch.State().Snapshot().Progress.Human(), config.DisplayName)
	return nil
}
