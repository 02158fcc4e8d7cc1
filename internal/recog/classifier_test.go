package recog

import (
	"bytes"
	"context"
	"testing"
	"voxrelay/internal/relay"

	"github.com/stretchr/testify/assert"
)

type chatPolicy map[int64]bool

func (p chatPolicy) AutoEnabled(_ context.Context, chat *relay.Chat) bool {
	return chat != nil && p[chat.ID]
}

func TestClassifier_Classify(t *testing.T) {
	voice := func() *relay.Message { return voiceMessage("1", []byte("ogg-data")) }
	text := &relay.Message{UID: "2", Type: relay.MsgTypeText, Text: "hi", Chat: &relay.Chat{ID: 100}}

	tests := []struct {
		name     string
		auto     AutoPolicy
		event    func() *relay.Message
		kind     TriggerKind
		suppress bool
	}{
		{
			name:  "contact voice with auto enabled",
			auto:  StaticAuto(true),
			event: voice,
			kind:  TriggerAuto,
		},
		{
			name:  "contact voice with auto disabled",
			auto:  StaticAuto(false),
			event: voice,
			kind:  TriggerNone,
		},
		{
			name:  "contact text message",
			auto:  StaticAuto(true),
			event: func() *relay.Message { return text },
			kind:  TriggerNone,
		},
		{
			name: "operator voice is never automatic",
			auto: StaticAuto(true),
			event: func() *relay.Message {
				m := voice()
				m.FromOperator = true
				return m
			},
			kind: TriggerNone,
		},
		{
			name: "operator command replying to voice",
			auto: StaticAuto(false),
			event: func() *relay.Message {
				return &relay.Message{Text: "recog`", FromOperator: true, Target: voice(), Chat: &relay.Chat{ID: 100}}
			},
			kind:     TriggerCommand,
			suppress: true,
		},
		{
			name: "operator command with trailing text",
			auto: StaticAuto(false),
			event: func() *relay.Message {
				return &relay.Message{Text: "recog` please", FromOperator: true, Target: voice(), Chat: &relay.Chat{ID: 100}}
			},
			kind:     TriggerCommand,
			suppress: true,
		},
		{
			name: "operator command replying to text",
			auto: StaticAuto(true),
			event: func() *relay.Message {
				return &relay.Message{Text: "recog`", FromOperator: true, Target: text, Chat: &relay.Chat{ID: 100}}
			},
			kind: TriggerNone,
		},
		{
			name: "operator command without reply",
			auto: StaticAuto(true),
			event: func() *relay.Message {
				return &relay.Message{Text: "recog`", FromOperator: true, Chat: &relay.Chat{ID: 100}}
			},
			kind: TriggerNone,
		},
		{
			name: "command prefix from a contact",
			auto: StaticAuto(false),
			event: func() *relay.Message {
				return &relay.Message{Text: "recog`", Target: voice(), Chat: &relay.Chat{ID: 100}}
			},
			kind: TriggerNone,
		},
		{
			name: "text-only edit of a voice message",
			auto: StaticAuto(true),
			event: func() *relay.Message {
				m := voice()
				m.Edit = true
				return m
			},
			kind: TriggerNone,
		},
		{
			name: "media edit of a voice message",
			auto: StaticAuto(true),
			event: func() *relay.Message {
				m := voice()
				m.Edit = true
				m.EditMedia = true
				return m
			},
			kind: TriggerAuto,
		},
		{
			name: "voice without audio",
			auto: StaticAuto(true),
			event: func() *relay.Message {
				m := voice()
				m.File = bytes.NewReader(nil)
				return m
			},
			kind: TriggerNone,
		},
		{
			name:  "per chat policy enabled",
			auto:  chatPolicy{100: true},
			event: voice,
			kind:  TriggerAuto,
		},
		{
			name:  "per chat policy for another chat",
			auto:  chatPolicy{200: true},
			event: voice,
			kind:  TriggerNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier("", tt.auto)
			event := tt.event()

			trig := c.Classify(context.Background(), event)

			assert.Equal(t, tt.kind, trig.Kind)
			assert.Equal(t, tt.suppress, trig.SuppressOriginal)
			switch tt.kind {
			case TriggerAuto:
				assert.Same(t, event, trig.Target)
			case TriggerCommand:
				assert.Same(t, event.Target, trig.Target)
			default:
				assert.Nil(t, trig.Target)
			}
		})
	}
}

func TestClassifier_CustomPrefix(t *testing.T) {
	c := NewClassifier("/stt", StaticAuto(false))
	event := &relay.Message{Text: "/stt", FromOperator: true, Target: voiceMessage("1", []byte("x"))}

	assert.Equal(t, TriggerCommand, c.Classify(context.Background(), event).Kind)
}

func TestClassifier_LeavesStreamOffset(t *testing.T) {
	event := voiceMessage("1", []byte("0123456789"))
	_, _ = event.File.Seek(4, 0)

	NewClassifier("", StaticAuto(true)).Classify(context.Background(), event)

	pos, err := event.File.Seek(0, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), pos)
}

func TestTriggerKind_String(t *testing.T) {
	assert.Equal(t, "none", TriggerNone.String())
	assert.Equal(t, "auto", TriggerAuto.String())
	assert.Equal(t, "command", TriggerCommand.String())
}
