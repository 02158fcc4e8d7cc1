package recog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"voxrelay/internal/relay"

	"github.com/stretchr/testify/mock"
)

// fakeEngine is a scripted Engine.
type fakeEngine struct {
	name        string
	defaultLang string
	unsupported bool

	delay      time.Duration
	ignoreCtx  bool
	block      <-chan struct{}
	candidates []string
	err        error
	panicMsg   string

	calls atomic.Int32

	mu    sync.Mutex
	audio []byte
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) ResolveLanguage(hint string) (string, error) {
	if f.unsupported {
		return "", ErrUnsupportedLanguage
	}
	if hint == "" {
		return f.defaultLang, nil
	}
	return hint, nil
}

func (f *fakeEngine) Recognize(ctx context.Context, audioPath, _ string) ([]string, error) {
	f.calls.Add(1)

	if data, err := os.ReadFile(audioPath); err == nil {
		f.mu.Lock()
		f.audio = data
		f.mu.Unlock()
	}

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return f.candidates, f.err
}

func (f *fakeEngine) seenAudio() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio
}

// MockPublisher records published messages.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg *relay.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockPublisher) published(i int) *relay.Message {
	return m.Calls[i].Arguments.Get(1).(*relay.Message)
}

// brokenStream seeks like a real stream but fails every read.
type brokenStream struct {
	r *bytes.Reader
}

func (b brokenStream) Seek(offset int64, whence int) (int64, error) {
	return b.r.Seek(offset, whence)
}

func (brokenStream) Read([]byte) (int, error) {
	return 0, errors.New("stream closed by host")
}

func mustRegistry(engines ...Engine) *Registry {
	r, err := NewRegistry(engines...)
	if err != nil {
		panic(err)
	}
	return r
}

func voiceMessage(uid string, audio []byte) *relay.Message {
	return &relay.Message{
		UID:    uid,
		Type:   relay.MsgTypeVoice,
		File:   bytes.NewReader(audio),
		Mime:   "audio/ogg",
		Chat:   &relay.Chat{ID: 100, Title: "contacts"},
		Author: &relay.Author{ID: 7, Name: "contact"},
	}
}
