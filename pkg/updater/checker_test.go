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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coyoteclan/codlinux/pkg/shared/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var buildTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const skew = 5 * time.Minute

func releaseServer(t *testing.T, published time.Time, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"published_at": published.Format(time.RFC3339Nano),
			"tag_name":     "nightly",
			"body":         body,
			"assets": []map[string]any{{
				"name":                 "codlinux",
				"browser_download_url": "https://example.invalid/codlinux",
				"size":                 1234,
			}},
		})
		assert.NoError(t, err)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIsNewer_Boundary(t *testing.T) {
	t.Parallel()
	eps := time.Second

	assert.False(t, IsNewer(buildTime.Add(skew-eps), buildTime, skew))
	assert.False(t, IsNewer(buildTime.Add(skew), buildTime, skew))
	assert.True(t, IsNewer(buildTime.Add(skew+eps), buildTime, skew))
	assert.False(t, IsNewer(buildTime, buildTime, skew))
	assert.False(t, IsNewer(buildTime.Add(-time.Hour), buildTime, skew))
}

func TestIsNewer_Property(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		offset := time.Duration(rapid.Int64Range(-int64(48*time.Hour), int64(48*time.Hour)).Draw(t, "offset"))
		got := IsNewer(buildTime.Add(offset), buildTime, skew)
		if got != (offset > skew) {
			t.Fatalf("offset %s: got %v", offset, got)
		}
	})
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		published time.Time
		available bool
	}{
		{name: "just under threshold", published: buildTime.Add(skew - time.Millisecond), available: false},
		{name: "exactly at threshold", published: buildTime.Add(skew), available: false},
		{name: "just over threshold", published: buildTime.Add(skew + time.Millisecond), available: true},
		{name: "older release", published: buildTime.Add(-24 * time.Hour), available: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := releaseServer(t, tt.published, "Title\n- fixed ``wine`` lookup")
			c := NewChecker(httpclient.NewClient(), srv.URL, buildTime, skew)

			res, err := c.Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.available, res.Available)
			require.NotNil(t, res.Release)
			assert.True(t, tt.published.Equal(res.Release.PublishedAt))
			if tt.available {
				assert.Equal(t, "• fixed wine lookup", res.Changelog)
			} else {
				assert.Empty(t, res.Changelog)
			}
		})
	}
}

func TestCheck_NetworkErrorsAreNotNoUpdate(t *testing.T) {
	t.Parallel()

	t.Run("status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewChecker(httpclient.NewClient(), srv.URL, buildTime, skew).Check(context.Background())
		var statusErr *httpclient.StatusError
		require.ErrorAs(t, err, &statusErr)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		client := httpclient.NewClientWithTimeout(50 * time.Millisecond)
		_, err := NewChecker(client, srv.URL, buildTime, skew).Check(context.Background())
		require.ErrorIs(t, err, httpclient.ErrTimeout)
	})

	t.Run("missing publish time", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"body":"x","assets":[]}`))
		}))
		defer srv.Close()

		_, err := NewChecker(httpclient.NewClient(), srv.URL, buildTime, skew).Check(context.Background())
		require.ErrorIs(t, err, ErrNoPublishTime)
	})
}
