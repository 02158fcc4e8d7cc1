package telegram

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"voxrelay/internal/config"
	"voxrelay/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// MockContext mocks the handler side of tele.Context
type MockContext struct {
	mock.Mock
	sender *tele.User
	chat   *tele.Chat
	msg    *tele.Message
}

func (m *MockContext) Sender() *tele.User { return m.sender }
func (m *MockContext) Chat() *tele.Chat { return m.chat }
func (m *MockContext) Message() *tele.Message { return m.msg }

func (m *MockContext) Reply(what interface{}, _ ...interface{}) error {
	args := m.Called(what)
	return args.Error(0)
}

func (m *MockContext) Delete() error {
	args := m.Called()
	return args.Error(0)
}

type MockHook struct {
	mock.Mock
}

func (m *MockHook) Process(ctx context.Context, event *relay.Message) (*relay.Message, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*relay.Message), args.Error(1)
}

const operatorID = 42

func testConfig(auto bool) *config.Config {
	cfg := &config.Config{Auto: &auto}
	cfg.Telegram.Operators = []int64{operatorID}
	return cfg
}

func newTestBot(cfg *config.Config, hook Hook, c *MockCache) *Bot {
	b := &Bot{
		cfg:  cfg,
		hook: hook,
		conv: converter{
			prefix:     "recog`",
			isOperator: cfg.IsOperator,
			download: func(*tele.File) (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader([]byte("OggS"))), nil
			},
		},
	}
	// A typed nil would defeat the nil-cache check.
	if c != nil {
		b.cache = c
	}
	return b
}

func TestBot_Toggle(t *testing.T) {
	tests := []struct {
		name     string
		senderID int64
		start    bool
		noCache  bool
		setup    func(*MockCache, *MockContext)
	}{
		{
			name:     "non-operator stop is ignored",
			senderID: 7,
			setup:    func(*MockCache, *MockContext) {},
		},
		{
			name:     "operator stop disables the chat",
			senderID: operatorID,
			setup: func(mc *MockCache, ctx *MockContext) {
				mc.On("SetWithTTL", mock.Anything, "chat:auto:-100", false, autoTTL).Return(nil)
				ctx.On("Reply", "Automatic transcription disabled.\nSend /start to resume.").Return(nil)
			},
		},
		{
			name:     "operator start enables the chat",
			senderID: operatorID,
			start:    true,
			setup: func(mc *MockCache, ctx *MockContext) {
				mc.On("SetWithTTL", mock.Anything, "chat:auto:-100", true, autoTTL).Return(nil)
				ctx.On("Reply", "Automatic transcription enabled.").Return(nil)
			},
		},
		{
			name:     "start without cache",
			senderID: operatorID,
			start:    true,
			noCache:  true,
			setup: func(_ *MockCache, ctx *MockContext) {
				ctx.On("Reply", noCacheReply).Return(nil)
			},
		},
		{
			name:     "cache failure is reported",
			senderID: operatorID,
			setup: func(mc *MockCache, ctx *MockContext) {
				mc.On("SetWithTTL", mock.Anything, "chat:auto:-100", false, autoTTL).Return(errors.New("connection refused"))
				ctx.On("Reply", saveFailedReply).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := new(MockCache)
			ctx := &MockContext{sender: &tele.User{ID: tt.senderID}, chat: &tele.Chat{ID: -100}}
			tt.setup(mockCache, ctx)

			var b *Bot
			if tt.noCache {
				b = newTestBot(testConfig(true), nil, nil)
			} else {
				b = newTestBot(testConfig(true), nil, mockCache)
			}

			var err error
			if tt.start {
				err = b.handleStart(ctx)
			} else {
				err = b.handleStop(ctx)
			}

			require.NoError(t, err)
			mockCache.AssertExpectations(t)
			ctx.AssertExpectations(t)
			if tt.senderID != operatorID {
				mockCache.AssertNotCalled(t, "SetWithTTL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				ctx.AssertNotCalled(t, "Reply", mock.Anything)
			}
		})
	}
}

func TestBot_Reset(t *testing.T) {
	tests := []struct {
		name     string
		senderID int64
		auto     bool
		setup    func(*MockCache, *MockContext)
	}{
		{
			name:     "non-operator reset is ignored",
			senderID: 7,
			setup:    func(*MockCache, *MockContext) {},
		},
		{
			name:     "reset to enabled default",
			senderID: operatorID,
			auto:     true,
			setup: func(mc *MockCache, ctx *MockContext) {
				mc.On("Delete", mock.Anything, "chat:auto:-100").Return(nil)
				ctx.On("Reply", "Automatic transcription follows the default: enabled.").Return(nil)
			},
		},
		{
			name:     "reset to disabled default",
			senderID: operatorID,
			auto:     false,
			setup: func(mc *MockCache, ctx *MockContext) {
				mc.On("Delete", mock.Anything, "chat:auto:-100").Return(nil)
				ctx.On("Reply", "Automatic transcription follows the default: disabled.").Return(nil)
			},
		},
		{
			name:     "cache failure is reported",
			senderID: operatorID,
			setup: func(mc *MockCache, ctx *MockContext) {
				mc.On("Delete", mock.Anything, "chat:auto:-100").Return(errors.New("connection refused"))
				ctx.On("Reply", saveFailedReply).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := new(MockCache)
			ctx := &MockContext{sender: &tele.User{ID: tt.senderID}, chat: &tele.Chat{ID: -100}}
			tt.setup(mockCache, ctx)

			b := newTestBot(testConfig(tt.auto), nil, mockCache)

			require.NoError(t, b.handleReset(ctx))
			mockCache.AssertExpectations(t)
			ctx.AssertExpectations(t)
			if tt.senderID != operatorID {
				mockCache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestBot_HandleMessage(t *testing.T) {
	command := &tele.Message{
		ID:     11,
		Chat:   &tele.Chat{ID: 5},
		Sender: &tele.User{ID: operatorID},
		Text:   "recog`",
		ReplyTo: &tele.Message{
			ID:     9,
			Chat:   &tele.Chat{ID: 5},
			Sender: &tele.User{ID: 8},
			Voice:  &tele.Voice{File: tele.File{FileID: "v1"}},
		},
	}
	chatter := &tele.Message{
		ID:     12,
		Chat:   &tele.Chat{ID: 5},
		Sender: &tele.User{ID: 8},
		Text:   "hello",
	}

	tests := []struct {
		name       string
		msg        *tele.Message
		setup      func(*MockHook, *MockContext)
		wantDelete bool
	}{
		{
			name: "suppressed command is deleted",
			msg:  command,
			setup: func(h *MockHook, ctx *MockContext) {
				h.On("Process", mock.Anything, mock.MatchedBy(func(e *relay.Message) bool {
					return e.UID == "11" && e.Target != nil && e.Target.File != nil
				})).Return(nil, nil)
				ctx.On("Delete").Return(nil)
			},
			wantDelete: true,
		},
		{
			name: "delivered message is kept",
			msg:  chatter,
			setup: func(h *MockHook, _ *MockContext) {
				h.On("Process", mock.Anything, mock.Anything).Return(&relay.Message{UID: "12"}, nil)
			},
		},
		{
			name: "hook error keeps the message",
			msg:  command,
			setup: func(h *MockHook, _ *MockContext) {
				h.On("Process", mock.Anything, mock.Anything).Return(nil, errors.New("malformed event"))
			},
		},
		{
			name: "delete failure is not fatal",
			msg:  command,
			setup: func(h *MockHook, ctx *MockContext) {
				h.On("Process", mock.Anything, mock.Anything).Return(nil, nil)
				ctx.On("Delete").Return(errors.New("message can't be deleted"))
			},
			wantDelete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook := new(MockHook)
			ctx := &MockContext{msg: tt.msg, chat: tt.msg.Chat, sender: tt.msg.Sender}
			tt.setup(hook, ctx)

			b := newTestBot(testConfig(true), hook, nil)

			require.NoError(t, b.handleMessage(ctx))
			hook.AssertExpectations(t)
			ctx.AssertExpectations(t)
			if !tt.wantDelete {
				ctx.AssertNotCalled(t, "Delete")
			}
		})
	}
}

func TestBot_HandleMessageWithoutMessage(t *testing.T) {
	hook := new(MockHook)
	b := newTestBot(testConfig(true), hook, nil)

	require.NoError(t, b.handleMessage(&MockContext{}))
	hook.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestCommandPrefix(t *testing.T) {
	assert.Equal(t, "recog`", commandPrefix(&config.Config{}))
	assert.Equal(t, "stt:", commandPrefix(&config.Config{CommandPrefix: "stt:"}))
}
