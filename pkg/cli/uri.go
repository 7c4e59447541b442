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

package cli

import (
	"net"
	"strconv"
	"strings"

	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/rs/zerolog/log"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = "28960"
)

var schemes = map[string]games.Variant{
	"iw1x": games.VariantIW1X,
	"t1x":  games.VariantT1X,
}

// ConnectTarget is a server picked through a scheme://host[:port] link.
type ConnectTarget struct {
	Host    string
	Port    string
	Variant games.Variant
}

func (c ConnectTarget) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Args are the game arguments that join the server.
func (c ConnectTarget) Args() []string {
	return []string{"+connect", c.Address()}
}

// ParseConnectURI recognises iw1x:// and t1x:// links. Host and port fall
// back to the local default server.
func ParseConnectURI(arg string) (ConnectTarget, bool) {
	scheme, rest, ok := strings.Cut(arg, "://")
	if !ok {
		return ConnectTarget{}, false
	}
	variant, ok := schemes[strings.ToLower(scheme)]
	if !ok {
		return ConnectTarget{}, false
	}

	// Browsers may append a trailing slash or path.
	rest, _, _ = strings.Cut(rest, "/")
	host, port := splitAuthority(strings.TrimSpace(rest))

	return ConnectTarget{Variant: variant, Host: host, Port: port}, true
}

// splitAuthority separates host and port, accepting bracketed IPv6 hosts.
// A missing or invalid part is replaced by its default.
func splitAuthority(authority string) (host, port string) {
	host, port, err := net.SplitHostPort(authority)
	if err != nil {
		// No port, or a bare IPv6 address.
		host = strings.TrimSuffix(strings.TrimPrefix(authority, "["), "]")
		port = ""
	}

	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	if port == "" {
		return host, DefaultPort
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		log.Warn().Str("port", port).Msg("invalid port in connect link, using default")
		return host, DefaultPort
	}
	return host, port
}

// SplitConnect pulls a connect link off the front of args. The remaining
// arguments are returned unchanged.
func SplitConnect(args []string) (*ConnectTarget, []string) {
	if len(args) == 0 {
		return nil, args
	}
	target, ok := ParseConnectURI(args[0])
	if !ok {
		return nil, args
	}
	return &target, args[1:]
}
