// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	// maxFrameBytes bounds a single MJPEG frame read from the capture command.
	maxFrameBytes = 8 * 1024 * 1024

	// DefaultDevice is the default V4L2 device node.
	DefaultDevice = "/dev/video0"

	// DefaultOpenTimeout bounds the wait for a camera's first frame.
	DefaultOpenTimeout = 10 * time.Second

	// devicePlaceholder is replaced with the configured device in the command.
	devicePlaceholder = "{device}"
)

// DefaultCommand captures MJPEG frames from a V4L2 device with ffmpeg.
var DefaultCommand = []string{
	"ffmpeg", "-loglevel", "error",
	"-f", "v4l2", "-i", devicePlaceholder,
	"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-",
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// CommandCamera runs an external capture command that writes concatenated
// JPEG frames (MJPEG) to stdout.
type CommandCamera struct {
	argv []string
}

// NewCommandCamera builds a command camera. An empty argv uses
// DefaultCommand; "{device}" in argv is replaced with device.
func NewCommandCamera(argv []string, device string) *CommandCamera {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if device == "" {
		device = DefaultDevice
	}
	resolved := make([]string, len(argv))
	for i, a := range argv {
		resolved[i] = strings.ReplaceAll(a, devicePlaceholder, device)
	}
	return &CommandCamera{argv: resolved}
}

// Argv returns the resolved command line.
func (c *CommandCamera) Argv() []string {
	out := make([]string, len(c.argv))
	copy(out, c.argv)
	return out
}

// OpenCamera starts the command and waits for the first decodable frame.
// A command that exits (or never produces a frame before ctx ends) counts as
// an unavailable device.
func (c *CommandCamera) OpenCamera(ctx context.Context) (Stream, error) {
	cmd := exec.Command(c.argv[0], c.argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture command: %w", err)
	}

	s := newPipeStream(cmd, stdout)
	select {
	case <-s.ready:
		return s, nil
	case <-s.done:
		// A short-lived command may finish right after its first frame.
		select {
		case <-s.ready:
			return s, nil
		default:
		}
		_ = s.Stop()
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "capture command exited before producing a frame"
		}
		return nil, errors.New(msg)
	case <-ctx.Done():
		_ = s.Stop()
		return nil, ctx.Err()
	}
}

// pipeStream decodes frames from a running capture command.
type pipeStream struct {
	cmd   *exec.Cmd
	ready chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	latest  image.Image
	readErr error
	stopped bool

	readyOnce sync.Once
	stopOnce  sync.Once
}

func newPipeStream(cmd *exec.Cmd, r io.Reader) *pipeStream {
	s := &pipeStream{
		cmd:   cmd,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.readLoop(r)
	return s
}

func (s *pipeStream) readLoop(r io.Reader) {
	defer close(s.done)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), maxFrameBytes)
	sc.Split(SplitJPEG)

	for sc.Scan() {
		img, err := jpeg.Decode(bytes.NewReader(sc.Bytes()))
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.latest = img
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}

	s.mu.Lock()
	s.readErr = sc.Err()
	s.mu.Unlock()
}

// Frame returns the most recently decoded frame.
func (s *pipeStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrNoActiveStream
	}
	if s.latest == nil {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, errors.New("no frame received yet")
	}
	return s.latest, nil
}

// Stop kills the capture command and waits for it to exit.
func (s *pipeStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
		}
		if waitErr := s.cmd.Wait(); waitErr != nil {
			var exitErr *exec.ExitError
			if !errors.As(waitErr, &exitErr) {
				err = waitErr
			}
		}
	})
	return err
}

// SplitJPEG is a bufio.SplitFunc that yields complete JPEG images from a
// concatenated MJPEG byte stream. Bytes before a start-of-image marker are
// skipped.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF in case it begins the next marker.
		if n := len(data); n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Drop junk before the marker and ask for more data.
		return start, nil, nil
	}

	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
