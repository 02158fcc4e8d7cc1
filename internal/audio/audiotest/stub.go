// Package audiotest provides a Converter stub for engine tests.
package audiotest

import (
	"context"
	"sync"
)

// Stub returns fixed bytes instead of decoding the file.
type Stub struct {
	PCM []byte
	Ogg []byte
	Err error

	mu    sync.Mutex
	paths []string
}

func (s *Stub) PCM16k(_ context.Context, path string) ([]byte, error) {
	s.record(path)
	return s.PCM, s.Err
}

func (s *Stub) OggOpus16k(_ context.Context, path string) ([]byte, error) {
	s.record(path)
	return s.Ogg, s.Err
}

// Paths lists the files the stub was asked to convert.
func (s *Stub) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *Stub) record(path string) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
}
