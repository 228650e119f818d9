/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/models"
)

// pipelineProc wraps one ffmpeg transcoding subprocess that reads the
// source file(s) and emits a continuous MP3 byte stream on stdout.
type pipelineProc struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	cancel   context.CancelFunc
	stderr   *bytes.Buffer
	listFile string // concat reference list; removed when the process exits
	logger   zerolog.Logger
}

// startPipeline spawns ffmpeg over the items. A single item is read
// directly; two or more items are joined gaplessly through the concat
// demuxer over a temporary reference list scoped to the pipeline's
// lifetime.
func startPipeline(ctx context.Context, bin string, bitrate int, items []*models.AudioItem, logger zerolog.Logger) (*pipelineProc, error) {
	var inputArgs []string
	listFile := ""

	if len(items) == 1 {
		inputArgs = []string{"-i", items[0].Path}
	} else {
		path, err := writeConcatList(items)
		if err != nil {
			return nil, fmt.Errorf("write concat list: %w", err)
		}
		listFile = path
		inputArgs = []string{"-f", "concat", "-safe", "0", "-i", path}
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, inputArgs...)
	args = append(args,
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrate),
		"-f", "mp3",
		"pipe:1",
	)

	cmdCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cmdCtx, bin, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		removeListFile(listFile)
		return nil, fmt.Errorf("pipeline stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		removeListFile(listFile)
		return nil, fmt.Errorf("start pipeline: %w", err)
	}

	logger.Debug().
		Int("pid", cmd.Process.Pid).
		Int("inputs", len(items)).
		Msg("transcoding pipeline started")

	return &pipelineProc{
		cmd:      cmd,
		stdout:   stdout,
		cancel:   cancel,
		stderr:   &stderrBuf,
		listFile: listFile,
		logger:   logger,
	}, nil
}

// wait blocks until the process exits and releases the concat list on any
// outcome.
func (p *pipelineProc) wait() error {
	err := p.cmd.Wait()
	removeListFile(p.listFile)
	return err
}

// kill terminates the process immediately. The concat list is released by
// the wait goroutine.
func (p *pipelineProc) kill() {
	p.cancel()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// stderrOutput returns accumulated diagnostic output.
func (p *pipelineProc) stderrOutput() string {
	return strings.TrimSpace(p.stderr.String())
}

// writeConcatList builds the ordered reference list for a gapless segment
// in ffmpeg concat demuxer format.
func writeConcatList(items []*models.AudioItem) (string, error) {
	file, err := os.CreateTemp("", "skald-segment-*.txt")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range items {
		escaped := strings.ReplaceAll(item.Path, "'", `'\''`)
		fmt.Fprintf(&sb, "file '%s'\n", escaped)
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func removeListFile(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
