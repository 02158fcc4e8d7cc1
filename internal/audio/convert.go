// Package audio converts voice message containers into the raw formats the
// speech providers accept.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"voxrelay/pkg/logger"

	"go.uber.org/zap"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// Converter decodes an audio file into provider formats.
type Converter interface {
	// PCM16k returns signed 16-bit little-endian mono samples at 16 kHz.
	PCM16k(ctx context.Context, path string) ([]byte, error)
	// OggOpus16k returns a mono 16 kHz Ogg/Opus stream.
	OggOpus16k(ctx context.Context, path string) ([]byte, error)
}

// FFmpeg is a Converter backed by an ffmpeg binary.
type FFmpeg struct {
	bin string
}

func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin}
}

func (f *FFmpeg) PCM16k(ctx context.Context, path string) ([]byte, error) {
	return f.run(ctx, path,
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "s16le",
	)
}

func (f *FFmpeg) OggOpus16k(ctx context.Context, path string) ([]byte, error) {
	return f.run(ctx, path,
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-c:a", "libopus",
		"-b:a", "16k",
		"-f", "ogg",
	)
}

func (f *FFmpeg) run(ctx context.Context, path string, outArgs ...string) ([]byte, error) {
	args := append([]string{"-nostdin", "-loglevel", "error", "-i", path}, outArgs...)
	args = append(args, "pipe:1")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	logger.Debug("Audio converted",
		zap.String("path", path),
		zap.Strings("args", outArgs),
		zap.Int("size", stdout.Len()))

	return stdout.Bytes(), nil
}
