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

package updater

import "strings"

const codeDelim = "``"

// Markup renders the styled parts of a changelog.
type Markup interface {
	Header(text string) string
	Bullet(text string) string
	Code(text string) string
}

type PlainMarkup struct{}

func (PlainMarkup) Header(text string) string { return text }
func (PlainMarkup) Bullet(text string) string { return "• " + text }
func (PlainMarkup) Code(text string) string   { return text }

// FormatChangelog converts release notes line by line. The first line is
// the title and is dropped. "#" lines become headers, "- " and "* " lines
// become bullets and ``code`` spans are rendered as code.
func FormatChangelog(body string, m Markup) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	if len(lines) <= 1 {
		return ""
	}

	out := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out = append(out, "")
		case strings.HasPrefix(trimmed, "#"):
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, m.Header(renderCode(text, m)))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			out = append(out, m.Bullet(renderCode(strings.TrimSpace(trimmed[2:]), m)))
		default:
			out = append(out, renderCode(line, m))
		}
	}
	return strings.Join(out, "\n")
}

// renderCode replaces closed ``code`` spans. An unclosed delimiter is kept.
func renderCode(line string, m Markup) string {
	var b strings.Builder
	for {
		start := strings.Index(line, codeDelim)
		if start < 0 {
			break
		}
		end := strings.Index(line[start+len(codeDelim):], codeDelim)
		if end < 0 {
			break
		}
		end += start + len(codeDelim)
		b.WriteString(line[:start])
		b.WriteString(m.Code(line[start+len(codeDelim) : end]))
		line = line[end+len(codeDelim):]
	}
	b.WriteString(line)
	return b.String()
}
