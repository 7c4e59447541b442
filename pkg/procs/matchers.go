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

package procs

import "strings"

// Matcher decides whether a process is the one being looked for.
type Matcher interface {
	Match(proc ProcessInfo) bool
}

// CommMatcher matches process names case-insensitively.
type CommMatcher struct {
	names map[string]bool
}

func NewCommMatcher(names ...string) *CommMatcher {
	m := &CommMatcher{
		names: make(map[string]bool, len(names)),
	}
	for _, name := range names {
		m.names[strings.ToLower(name)] = true
	}
	return m
}

func (m *CommMatcher) Match(proc ProcessInfo) bool {
	return m.names[strings.ToLower(proc.Comm)]
}

// CmdlineContainsMatcher matches a substring of the full command line. Wine
// games show up as wine-preloader with the .exe in their arguments.
type CmdlineContainsMatcher struct {
	substring string
}

func NewCmdlineContainsMatcher(substring string) *CmdlineContainsMatcher {
	return &CmdlineContainsMatcher{substring: strings.ToLower(substring)}
}

func (m *CmdlineContainsMatcher) Match(proc ProcessInfo) bool {
	return strings.Contains(strings.ToLower(proc.Cmdline), m.substring)
}

type OrMatcher struct {
	matchers []Matcher
}

func NewOrMatcher(matchers ...Matcher) *OrMatcher {
	return &OrMatcher{matchers: matchers}
}

func (m *OrMatcher) Match(proc ProcessInfo) bool {
	for _, matcher := range m.matchers {
		if matcher.Match(proc) {
			return true
		}
	}
	return false
}
