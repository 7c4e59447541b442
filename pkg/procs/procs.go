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

// Package procs looks up running processes, used to follow the screenshot
// companion's lifecycle.
package procs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

type ProcessInfo struct {
	Comm    string
	Cmdline string
	PID     int32
}

// Lister returns a snapshot of running processes.
type Lister interface {
	List(ctx context.Context) ([]ProcessInfo, error)
}

// SystemLister reads the process table through gopsutil.
type SystemLister struct{}

func (SystemLister) List(ctx context.Context) ([]ProcessInfo, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(ps))
	for _, p := range ps {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Processes exit while being listed.
			if !errors.Is(err, process.ErrorProcessNotRunning) {
				log.Trace().Err(err).Int32("pid", p.Pid).Msg("skipping process")
			}
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil {
			cmdline = ""
		}
		infos = append(infos, ProcessInfo{PID: p.Pid, Comm: name, Cmdline: cmdline})
	}
	return infos, nil
}

// Finder answers "is a matching process running".
type Finder struct {
	lister Lister
}

func NewFinder(lister Lister) *Finder {
	if lister == nil {
		lister = SystemLister{}
	}
	return &Finder{lister: lister}
}

// Find returns every running process m matches.
func (f *Finder) Find(ctx context.Context, m Matcher) ([]ProcessInfo, error) {
	all, err := f.lister.List(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by lister
	}
	var found []ProcessInfo
	for _, p := range all {
		if m.Match(p) {
			found = append(found, p)
		}
	}
	return found, nil
}

func (f *Finder) Running(ctx context.Context, m Matcher) (bool, error) {
	found, err := f.Find(ctx, m)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
