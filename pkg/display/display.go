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

// Package display saves the active X output mode before a game is launched
// and restores it afterwards.
package display

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/coyoteclan/codlinux/pkg/helpers/command"
	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const DefaultTool = "xrandr"

type Mode struct {
	Output string
	Width  int
	Height int
	Rate   float64
}

func (m Mode) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

func (m Mode) RateString() string {
	return strconv.FormatFloat(m.Rate, 'f', 2, 64)
}

func (m Mode) String() string {
	return fmt.Sprintf("%s %s@%s", m.Output, m.Resolution(), m.RateString())
}

// ParseQuery reads `xrandr --current` output and returns the current mode of
// the first connected output that has one.
func ParseQuery(out []byte) (Mode, bool) {
	var output string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if len(fields) >= 2 && !isIndented(line) {
			if fields[1] == "connected" {
				output = fields[0]
			} else {
				output = ""
			}
			continue
		}

		if output == "" || !isIndented(line) {
			continue
		}

		for _, tok := range fields[1:] {
			if !strings.Contains(tok, "*") {
				continue
			}
			w, h, ok := parseResolution(fields[0])
			if !ok {
				break
			}
			rate, err := strconv.ParseFloat(strings.Trim(tok, "*+"), 64)
			if err != nil {
				break
			}
			return Mode{Output: output, Width: w, Height: h, Rate: rate}, true
		}
	}
	return Mode{}, false
}

func isIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

func parseResolution(s string) (width, height int, ok bool) {
	// Interlaced modes are listed as e.g. 1920x1080i.
	s = strings.TrimRight(s, "i")
	ws, hs, found := strings.Cut(s, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// Guard queries and reapplies display modes through the display tool.
type Guard struct {
	cmd  command.Executor
	tool string
}

func NewGuard(cmd command.Executor, tool string) *Guard {
	if tool == "" {
		tool = DefaultTool
	}
	return &Guard{cmd: cmd, tool: tool}
}

// Capture returns the active mode, or nil if no output reports one.
func (g *Guard) Capture(ctx context.Context) (*Mode, error) {
	out, err := g.cmd.Output(ctx, g.tool, "--current")
	if err != nil {
		return nil, fmt.Errorf("failed to query display: %w", err)
	}
	m, ok := ParseQuery(out)
	if !ok {
		log.Warn().Msg("no connected output with an active mode")
		return nil, nil
	}
	log.Info().Str("mode", m.String()).Msg("captured display mode")
	return &m, nil
}

// Restore reapplies m to its output. A nil mode is a no-op.
func (g *Guard) Restore(ctx context.Context, m *Mode) error {
	if m == nil {
		log.Debug().Msg("no display mode captured, skipping restore")
		return nil
	}
	err := g.cmd.Run(ctx, g.tool,
		"--output", m.Output,
		"--mode", m.Resolution(),
		"--rate", m.RateString(),
	)
	if err != nil {
		return fmt.Errorf("failed to restore display mode %s: %w", m, err)
	}
	log.Info().Str("mode", m.String()).Msg("restored display mode")
	return nil
}

// Hold runs fn and restores m afterwards, including when fn panics. Restore
// errors are logged; fn's error is returned.
func (g *Guard) Hold(ctx context.Context, m *Mode, fn func() error) error {
	defer func() {
		// Restore even if ctx was cancelled while fn ran.
		if err := g.Restore(context.WithoutCancel(ctx), m); err != nil {
			log.Error().Err(err).Msg("display restore failed")
		}
	}()
	return fn()
}

// Snapshot keeps the first successfully captured mode for the lifetime of
// the process.
type Snapshot struct {
	mode *Mode
	mu   syncutil.RWMutex
}

// Capture queries the display unless a mode is already held, and returns
// the held mode.
func (s *Snapshot) Capture(ctx context.Context, g *Guard) *Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != nil {
		return s.mode
	}
	m, err := g.Capture(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("display capture failed")
		return nil
	}
	s.mode = m
	return s.mode
}

func (s *Snapshot) Mode() *Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}
