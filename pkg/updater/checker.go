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

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coyoteclan/codlinux/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

const acceptHeader = "application/vnd.github+json"

var ErrNoPublishTime = errors.New("release has no publish time")

type CheckResult struct {
	Release   *Release
	Changelog string
	Available bool
}

type Checker struct {
	client    *httpclient.Client
	markup    Markup
	buildTime time.Time
	url       string
	skew      time.Duration
}

type CheckerOption func(*Checker)

// WithMarkup sets how the changelog is rendered. Plain text by default.
func WithMarkup(m Markup) CheckerOption {
	return func(c *Checker) {
		c.markup = m
	}
}

func NewChecker(
	client *httpclient.Client,
	url string,
	buildTime time.Time,
	skew time.Duration,
	opts ...CheckerOption,
) *Checker {
	c := &Checker{
		client:    client,
		url:       url,
		buildTime: buildTime,
		skew:      skew,
		markup:    PlainMarkup{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsNewer reports whether a release published at published is more than
// skew ahead of build. Exactly skew ahead is not newer.
func IsNewer(published, build time.Time, skew time.Duration) bool {
	return published.Sub(build) > skew
}

// Latest fetches the latest release metadata.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	var rel Release
	err := c.client.GetJSON(ctx, c.url, map[string]string{"Accept": acceptHeader}, &rel)
	if err != nil {
		return nil, fmt.Errorf("release fetch failed: %w", err)
	}
	if rel.PublishedAt.IsZero() {
		return nil, ErrNoPublishTime
	}
	return &rel, nil
}

// Check fetches the latest release and compares it with the running build.
// Network failures are returned as errors, never as "no update".
func (c *Checker) Check(ctx context.Context) (CheckResult, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{
		Release:   rel,
		Available: IsNewer(rel.PublishedAt, c.buildTime, c.skew),
	}
	if res.Available {
		res.Changelog = FormatChangelog(rel.Body, c.markup)
	}

	log.Info().
		Time("published", rel.PublishedAt).
		Time("build", c.buildTime).
		Bool("available", res.Available).
		Msg("checked for update")
	return res, nil
}
