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

// Package tasks runs the launcher's background operations, one per category
// at a time, and turns panics inside them into errors.
package tasks

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/coyoteclan/codlinux/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type Category string

const (
	Launch   Category = "launch"
	Check    Category = "check"
	Download Category = "download"
	Capture  Category = "capture"
)

var ErrAlreadyRunning = errors.New("task already running")

type AlreadyRunningError struct {
	Category Category
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("%s task already running", e.Category)
}

func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// PanicError is the result of a task that panicked.
type PanicError struct {
	Value    any
	Category Category
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s task panicked: %v", e.Category, e.Value)
}

// Handle tracks one running task.
type Handle struct {
	err      error
	done     chan struct{}
	category Category
}

// Done is closed when the task returns.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task returns and gives its result.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

type Option func(*Registry)

// WithPanicHandler is called with every recovered task panic.
func WithPanicHandler(fn func(*PanicError)) Option {
	return func(r *Registry) {
		r.onPanic = fn
	}
}

// Registry holds at most one handle per category.
type Registry struct {
	handles map[Category]*Handle
	onPanic func(*PanicError)
	mu      syncutil.Mutex
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{handles: make(map[Category]*Handle)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs fn in the background. If a task of the same category is still
// running it returns an *AlreadyRunningError; a finished one is joined and
// replaced.
func (r *Registry) Start(c Category, fn func() error) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.handles[c]; ok {
		if !prev.finished() {
			return nil, &AlreadyRunningError{Category: c}
		}
		if err := prev.err; err != nil {
			log.Debug().Err(err).Str("task", string(c)).Msg("joined failed task")
		}
	}

	h := &Handle{category: c, done: make(chan struct{})}
	r.handles[c] = h

	go r.run(h, fn)
	return h, nil
}

func (r *Registry) run(h *Handle, fn func() error) {
	defer close(h.done)
	defer func() {
		if v := recover(); v != nil {
			perr := &PanicError{Category: h.category, Value: v, Stack: debug.Stack()}
			log.Error().
				Str("task", string(h.category)).
				Interface("panic", v).
				Bytes("stack", perr.Stack).
				Msg("recovered task panic")
			h.err = perr
			if r.onPanic != nil {
				r.onPanic(perr)
			}
		}
	}()

	h.err = fn()
	if h.err != nil {
		log.Warn().Err(h.err).Str("task", string(h.category)).Msg("task failed")
	}
}

// Running reports whether a task of category c is in progress.
func (r *Registry) Running(c Category) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[c]
	return ok && !h.finished()
}

// Wait joins the current task of category c, if any.
func (r *Registry) Wait(c Category) error {
	r.mu.Lock()
	h, ok := r.handles[c]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return h.Wait()
}

// JoinAll waits for every task and returns their errors joined.
func (r *Registry) JoinAll() error {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	errs := make([]error, 0, len(handles))
	for _, h := range handles {
		errs = append(errs, h.Wait())
	}
	return errors.Join(errs...)
}
