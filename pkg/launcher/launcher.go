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

// Package launcher runs a game under wine and puts the display back the way
// it was when the game exits.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/coyoteclan/codlinux/pkg/display"
	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/coyoteclan/codlinux/pkg/helpers"
	"github.com/coyoteclan/codlinux/pkg/helpers/command"
	"github.com/coyoteclan/codlinux/pkg/state"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var ErrSessionActive = errors.New("a game session is already active")

// Session is one run of a game.
type Session struct {
	StartedAt time.Time
	EndedAt   time.Time
	Mode      *display.Mode
	Game      games.Descriptor
	Plan      Plan
	ID        uuid.UUID
}

func (s *Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

type Supervisor struct {
	cmd    command.Executor
	guard  *display.Guard
	state  *state.State
	clock  clockwork.Clock
	wine   string
	logDir string
	active atomic.Bool
}

type Option func(*Supervisor)

func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithGameLog sends game output to a rotating log in dir.
func WithGameLog(dir string) Option {
	return func(s *Supervisor) {
		s.logDir = dir
	}
}

func NewSupervisor(
	cmd command.Executor,
	guard *display.Guard,
	st *state.State,
	wineBinary string,
	opts ...Option,
) *Supervisor {
	s := &Supervisor{
		cmd:   cmd,
		guard: guard,
		state: st,
		wine:  wineBinary,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports whether a game is currently being run.
func (s *Supervisor) Active() bool {
	return s.active.Load()
}

// Launch runs d and blocks until it exits. The display is restored to mode
// on every path out, and panics are returned as errors. Only one launch may
// be in progress; a second returns ErrSessionActive.
func (s *Supervisor) Launch(
	ctx context.Context,
	d games.Descriptor,
	defaults Defaults,
	extra []string,
	mode *display.Mode,
) (sess *Session, err error) {
	if !s.active.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}
	defer s.active.Store(false)

	sess = &Session{
		ID:        uuid.New(),
		Game:      d,
		Mode:      mode,
		Plan:      Resolve(d, defaults, s.wine, extra),
		StartedAt: s.clock.Now(),
	}
	logger := log.With().Str("session", sess.ID.String()).Str("game", d.Label).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("launch panicked")
			err = fmt.Errorf("launch of %s panicked: %v", d.Label, r)
		}
		sess.EndedAt = s.clock.Now()
	}()

	logger.Info().
		Str("prefix", sess.Plan.Prefix).
		Strs("args", sess.Plan.Args).
		Msg("launching game")

	err = s.guard.Hold(ctx, mode, func() error {
		return s.run(ctx, sess.Plan)
	})
	sess.EndedAt = s.clock.Now()
	if err != nil {
		logger.Error().Err(err).Dur("duration", sess.Duration()).Msg("game exited with error")
		return sess, fmt.Errorf("failed to run %s: %w", d.Label, err)
	}

	logger.Info().Dur("duration", sess.Duration()).Msg("game exited")
	return sess, nil
}

func (s *Supervisor) run(ctx context.Context, p Plan) error {
	opts := command.RunOptions{Dir: p.Dir, Env: p.Env}
	if s.logDir != "" {
		w := helpers.GameLogWriter(s.logDir)
		defer func(c io.Closer) {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close game log")
			}
		}(w)
		opts.Stdout = w
		opts.Stderr = w
	}

	s.state.SetGameRunning(true)
	defer s.state.SetGameRunning(false)

	//nolint:wrapcheck // wrapped by Launch
	return s.cmd.RunWith(ctx, opts, p.Binary, p.Args...)
}
