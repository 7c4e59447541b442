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

// Package notify shows desktop notifications, over D-Bus when a session bus
// is available and through notify-send otherwise.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/helpers/command"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"
)

const (
	busName    = "org.freedesktop.Notifications"
	busPath    = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyCall = busName + ".Notify"
	iconName   = config.AppName
)

type Message struct {
	Body      string
	Expire    time.Duration
	Transient bool
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// caller is the part of dbus.BusObject used here.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

type DBusNotifier struct {
	obj caller
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier() (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBusNotifier{obj: conn.Object(busName, busPath)}, nil
}

func (n *DBusNotifier) Notify(ctx context.Context, msg Message) error {
	hints := map[string]dbus.Variant{}
	if msg.Transient {
		hints["transient"] = dbus.MakeVariant(true)
	}

	call := n.obj.CallWithContext(ctx, notifyCall, 0,
		config.DisplayName,
		uint32(0),
		iconName,
		config.DisplayName,
		msg.Body,
		[]string{},
		hints,
		int32(msg.Expire.Milliseconds()), //nolint:gosec // expiry is seconds at most
	)
	if call.Err != nil {
		return fmt.Errorf("notification call failed: %w", call.Err)
	}
	return nil
}

type CommandNotifier struct {
	cmd command.Executor
}

func NewCommandNotifier(cmd command.Executor) *CommandNotifier {
	return &CommandNotifier{cmd: cmd}
}

func (n *CommandNotifier) Notify(ctx context.Context, msg Message) error {
	args := []string{"--app-name=" + config.DisplayName, "--icon=" + iconName}
	if msg.Transient {
		args = append(args, "--transient")
	}
	args = append(args,
		"--expire-time="+strconv.FormatInt(msg.Expire.Milliseconds(), 10),
		config.DisplayName,
		msg.Body,
	)
	if err := n.cmd.Run(ctx, "notify-send", args...); err != nil {
		return fmt.Errorf("notify-send failed: %w", err)
	}
	return nil
}

// Fallback tries each notifier in order until one succeeds.
type Fallback []Notifier

func (f Fallback) Notify(ctx context.Context, msg Message) error {
	var err error
	for _, n := range f {
		if err = n.Notify(ctx, msg); err == nil {
			return nil
		}
		log.Debug().Err(err).Msg("notifier failed, trying next")
	}
	return err
}

// New prefers D-Bus and falls back to notify-send.
func New(cmd command.Executor) Notifier {
	cmdNotifier := NewCommandNotifier(cmd)
	dbusNotifier, err := NewDBusNotifier()
	if err != nil {
		log.Debug().Err(err).Msg("no session bus, using notify-send")
		return cmdNotifier
	}
	return Fallback{dbusNotifier, cmdNotifier}
}

// Send logs instead of failing; notifications are never critical.
func Send(ctx context.Context, n Notifier, body string, expire time.Duration, transient bool) {
	if n == nil {
		return
	}
	err := n.Notify(ctx, Message{Body: body, Expire: expire, Transient: transient})
	if err != nil {
		log.Warn().Err(err).Str("body", body).Msg("failed to show notification")
	}
}
