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

package tui

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/coyoteclan/codlinux/pkg/config"
	"github.com/coyoteclan/codlinux/pkg/games"
	"github.com/coyoteclan/codlinux/pkg/notify"
	"github.com/coyoteclan/codlinux/pkg/service"
	"github.com/coyoteclan/codlinux/pkg/state"
	"github.com/coyoteclan/codlinux/pkg/tasks"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	PageMain   = "main"
	PageUpdate = "update"
	PageError  = "error"

	// DefaultTick is how often the picker polls the shared state.
	DefaultTick = 200 * time.Millisecond
)

// Backend is what the picker needs from the orchestrator.
type Backend interface {
	StartLaunch(ctx context.Context, req service.LaunchRequest) (*tasks.Handle, error)
	StartCheck(ctx context.Context, quiet bool) error
	StartDownload(ctx context.Context) error
	State() *state.State
}

type Options struct {
	Notifier  notify.Notifier
	Exit      func(int)
	Prefix    string
	Games     []games.Descriptor
	Extra     []string
	TickEvery time.Duration
	Assist    bool
}

// Picker is the game selection screen.
type Picker struct {
	ctx         context.Context
	app         *tview.Application
	pages       *tview.Pages
	list        *tview.List
	form        *tview.Form
	modal       *tview.Modal
	backend     Backend
	modalText   string
	opts        Options
	prefix      string
	remember    bool
	assist      bool
	downloading bool
	exited      bool
	launched    atomic.Bool
}

func NewPicker(ctx context.Context, app *tview.Application, backend Backend, opts Options) *Picker {
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.TickEvery <= 0 {
		opts.TickEvery = DefaultTick
	}

	p := &Picker{
		ctx:     ctx,
		app:     app,
		backend: backend,
		opts:    opts,
		prefix:  opts.Prefix,
		assist:  opts.Assist,
		pages:   tview.NewPages(),
		modal:   tview.NewModal(),
	}
	p.build()
	return p
}

func (p *Picker) build() {
	p.list = tview.NewList()
	p.list.SetBorder(true).SetTitle("Choose a Game")
	for i, g := range p.opts.Games {
		shortcut := rune(0)
		if i < 9 {
			shortcut = rune('1' + i)
		}
		p.list.AddItem(g.Label, g.Path, shortcut, func() {
			p.SelectGame(i)
		})
	}

	p.form = tview.NewForm().
		AddCheckbox("Remember my choice", false, func(checked bool) {
			p.remember = checked
		}).
		AddCheckbox("Assist capture", p.assist, func(checked bool) {
			p.assist = checked
		}).
		AddInputField("Wine prefix", p.prefix, 40, nil, func(text string) {
			p.prefix = text
		}).
		AddButton("Check For Updates", p.checkUpdates)
	p.form.SetCancelFunc(func() {
		p.app.SetFocus(p.list)
	})

	p.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() { //nolint:exhaustive
		case tcell.KeyTab:
			p.app.SetFocus(p.form)
			return nil
		case tcell.KeyEscape:
			p.app.Stop()
			return nil
		}
		return event
	})

	footer := tview.NewTextView().
		SetTextAlign(tview.AlignRight).
		SetText("v" + config.AppVersion)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.list, 0, 1, true).
		AddItem(p.form, 9, 0, false).
		AddItem(footer, 1, 0, false)
	main.SetBorder(true).
		SetTitle(config.DisplayName).
		SetTitleAlign(tview.AlignCenter)

	p.pages.AddPage(PageMain, main, true, true)
	p.pages.AddPage(PageUpdate, p.modal, true, false)
}

// Root is the primitive to run the picker in.
func (p *Picker) Root() tview.Primitive {
	return p.pages
}

// Launched reports whether a game was started from the picker.
func (p *Picker) Launched() bool {
	return p.launched.Load()
}

// SelectGame launches game i and closes the picker. Only the first
// selection counts.
func (p *Picker) SelectGame(i int) {
	if i < 0 || i >= len(p.opts.Games) {
		return
	}
	if !p.launched.CompareAndSwap(false, true) {
		return
	}

	req := service.LaunchRequest{
		Game:        p.opts.Games[i],
		Extra:       p.opts.Extra,
		Prefix:      p.prefix,
		Remember:    p.remember,
		Assist:      p.assist,
		Interactive: true,
	}
	if _, err := p.backend.StartLaunch(p.ctx, req); err != nil {
		log.Error().Err(err).Msg("failed to start game")
		p.launched.Store(false)
		p.showError("Failed to start " + req.Game.Label)
		return
	}
	p.app.Stop()
}

func (p *Picker) checkUpdates() {
	if err := p.backend.StartCheck(p.ctx, false); err != nil {
		log.Warn().Err(err).Msg("update check not started")
	}
}

func (p *Picker) showError(msg string) {
	p.setModalText(msg)
	p.modal.ClearButtons().
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(int, string) {
			p.closeModal()
		})
	p.pages.ShowPage(PageUpdate)
	p.app.SetFocus(p.modal)
}

func (p *Picker) setModalText(text string) {
	p.modalText = text
	p.modal.SetText(text)
}

func (p *Picker) closeModal() {
	p.downloading = false
	p.pages.HidePage(PageUpdate)
	p.app.SetFocus(p.list)
}

func (p *Picker) showUpdate(changelog string) {
	text := "A new version of " + config.DisplayName + " available!"
	if changelog != "" {
		text += "\n\n" + changelog
	}
	p.setModalText(text)
	p.modal.ClearButtons().
		AddButtons([]string{"Download", "Close"}).
		SetDoneFunc(func(_ int, label string) {
			if label == "Download" {
				p.startDownload()
				return
			}
			p.closeModal()
		})
	p.pages.ShowPage(PageUpdate)
	p.app.SetFocus(p.modal)
}

func (p *Picker) startDownload() {
	if err := p.backend.StartDownload(p.ctx); err != nil {
		log.Error().Err(err).Msg("failed to start download")
		p.showError("Download failed to start")
		return
	}
	p.downloading = true
	p.modal.ClearButtons()
	p.setModalText(downloadText(p.backend.State().Snapshot().Progress))
}

// Tick applies the shared state to the screen. It runs on the UI goroutine
// and never blocks.
func (p *Picker) Tick() {
	st := p.backend.State()
	if changelog, ok := st.ConsumeUpdateAvailable(); ok && !p.downloading {
		p.showUpdate(changelog)
	}

	snap := st.Snapshot()
	if snap.DownloadFinished {
		if !p.exited {
			p.exited = true
			notify.Send(p.ctx, p.opts.Notifier, "Download Complete!", 10*time.Second, false)
			p.opts.Exit(0)
		}
		return
	}
	if !p.downloading {
		return
	}
	if snap.DownloadError != "" {
		p.downloading = false
		p.showError("Error: " + snap.DownloadError)
		return
	}
	p.setModalText(downloadText(snap.Progress))
}

func (p *Picker) poll(ctx context.Context) {
	ticker := time.NewTicker(p.opts.TickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.app.QueueUpdateDraw(p.Tick)
		}
	}
}

// Run shows the picker until a game is chosen or the user quits.
func (p *Picker) Run() error {
	ctx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	go p.poll(ctx)

	p.app.SetRoot(p.pages, true).SetFocus(p.list)
	if err := p.app.Run(); err != nil {
		return fmt.Errorf("failed to run picker: %w", err)
	}
	return nil
}
