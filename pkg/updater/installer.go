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
	"io"
	"os"
	"path/filepath"

	"github.com/coyoteclan/codlinux/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// TempName is the staged binary, written next to the installed one.
const TempName = "codlinux_new"

const chunkSize = 32 * 1024

// Install steps, used as the user-facing error prefix.
const (
	StepAssets     = "No downloadable assets in release"
	StepRequest    = "Download failed"
	StepTimeout    = "Download timed out"
	StepCreate     = "Cannot create file"
	StepStream     = "Network chunk error"
	StepWrite      = "Write failed"
	StepIncomplete = "Incomplete download"
	StepRemove     = "Failed to remove old file"
	StepRename     = "Failed to install new binary"
	StepChmod      = "Failed to set executable permission"
)

var ErrIncomplete = errors.New("download ended early")

type InstallError struct {
	Err  error
	Step string
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

type Installer struct {
	fs      afero.Fs
	client  *httpclient.Client
	exePath string
}

// NewInstaller replaces exePath, the resolved path of the running binary.
func NewInstaller(fs afero.Fs, client *httpclient.Client, exePath string) *Installer {
	return &Installer{fs: fs, client: client, exePath: exePath}
}

func (in *Installer) tempPath() string {
	return filepath.Join(filepath.Dir(in.exePath), TempName)
}

// DownloadAndInstall streams the release's first asset next to the running
// binary and swaps it in. The old binary is only removed once the new one
// is fully staged. On success the caller should exit.
func (in *Installer) DownloadAndInstall(ctx context.Context, rel *Release, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	asset, err := rel.Asset()
	if err != nil {
		return &InstallError{Step: StepAssets, Err: err}
	}

	resp, err := in.client.Get(ctx, asset.URL, nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrTimeout) {
			return &InstallError{Step: StepTimeout, Err: err}
		}
		return &InstallError{Step: StepRequest, Err: err}
	}
	defer httpclient.CloseBody(resp)

	total := asset.Size
	if total <= 0 {
		total = max(resp.ContentLength, 0)
	}

	tmp := in.tempPath()
	if err := in.stage(resp.Body, tmp, total, onProgress); err != nil {
		if rmErr := in.fs.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn().Err(rmErr).Str("path", tmp).Msg("failed to remove partial download")
		}
		return err
	}

	return in.swap(tmp)
}

func (in *Installer) stage(body io.Reader, tmp string, total int64, onProgress ProgressFunc) error {
	f, err := in.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return &InstallError{Step: StepCreate, Err: err}
	}

	written, err := copyWithProgress(f, body, total, onProgress)
	closeErr := f.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return &InstallError{Step: StepWrite, Err: closeErr}
	}

	if total > 0 && written < total {
		return &InstallError{
			Step: StepIncomplete,
			Err:  fmt.Errorf("%w: got %d of %d bytes", ErrIncomplete, written, total),
		}
	}

	log.Info().Int64("bytes", written).Str("path", tmp).Msg("staged update")
	return nil
}

// copyWithProgress streams src into dst. An unknown total (0) stays 0 while
// streaming so the fraction cannot reach 1 early; the real size is reported
// once at EOF.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, onProgress ProgressFunc) (int64, error) {
	var written int64
	known := total > 0
	onProgress(Progress{Written: 0, Total: total})

	buf := make([]byte, chunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, &InstallError{Step: StepWrite, Err: err}
			}
			written += int64(n)
			if known && written > total {
				total = written
			}
			onProgress(Progress{Written: written, Total: total})
		}
		if errors.Is(readErr, io.EOF) {
			if !known {
				onProgress(Progress{Written: written, Total: written})
			}
			return written, nil
		}
		if readErr != nil {
			err := httpclient.Classify(readErr)
			if errors.Is(err, httpclient.ErrTimeout) {
				return written, &InstallError{Step: StepTimeout, Err: err}
			}
			return written, &InstallError{Step: StepStream, Err: err}
		}
	}
}

// swap removes the installed binary, renames the staged one into its place
// and marks it executable. A crash between remove and rename leaves no
// binary; this is the only such window.
func (in *Installer) swap(tmp string) error {
	if err := in.fs.Remove(in.exePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &InstallError{Step: StepRemove, Err: err}
	}

	if err := in.fs.Rename(tmp, in.exePath); err != nil {
		return &InstallError{Step: StepRename, Err: err}
	}

	info, err := in.fs.Stat(in.exePath)
	if err != nil {
		return &InstallError{Step: StepChmod, Err: err}
	}
	if err := in.fs.Chmod(in.exePath, info.Mode().Perm()|0o111); err != nil {
		return &InstallError{Step: StepChmod, Err: err}
	}

	log.Info().Str("path", in.exePath).Msg("installed update")
	return nil
}
