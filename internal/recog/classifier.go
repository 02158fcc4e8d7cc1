package recog

import (
	"context"
	"io"
	"strings"
	"voxrelay/internal/relay"
)

// DefaultCommandPrefix starts an operator reply that asks for a transcription.
const DefaultCommandPrefix = "recog`"

type TriggerKind int

const (
	TriggerNone TriggerKind = iota
	TriggerAuto
	TriggerCommand
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerAuto:
		return "auto"
	case TriggerCommand:
		return "command"
	default:
		return "none"
	}
}

// Trigger is the classification of an inbound event.
type Trigger struct {
	Kind TriggerKind
	// Target is the voice message to transcribe.
	Target *relay.Message
	// SuppressOriginal asks the host not to deliver the triggering event.
	SuppressOriginal bool
}

// AutoPolicy decides whether voice messages in a chat are transcribed
// without an explicit command.
type AutoPolicy interface {
	AutoEnabled(ctx context.Context, chat *relay.Chat) bool
}

// StaticAuto is an AutoPolicy with the same answer for every chat.
type StaticAuto bool

func (s StaticAuto) AutoEnabled(context.Context, *relay.Chat) bool { return bool(s) }

// Classifier maps inbound events to triggers.
type Classifier struct {
	prefix string
	auto   AutoPolicy
}

func NewClassifier(prefix string, auto AutoPolicy) *Classifier {
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}
	if auto == nil {
		auto = StaticAuto(true)
	}
	return &Classifier{prefix: prefix, auto: auto}
}

// Classify applies, in order: an operator command replying to a voice
// message, an automatic transcription of a contact's voice message, nothing.
func (c *Classifier) Classify(ctx context.Context, msg *relay.Message) Trigger {
	if msg == nil {
		return Trigger{Kind: TriggerNone}
	}

	if msg.FromOperator {
		if msg.Target != nil && strings.HasPrefix(msg.Text, c.prefix) && transcribable(msg.Target) {
			return Trigger{Kind: TriggerCommand, Target: msg.Target, SuppressOriginal: true}
		}
		return Trigger{Kind: TriggerNone}
	}

	if transcribable(msg) && c.auto.AutoEnabled(ctx, msg.Chat) {
		return Trigger{Kind: TriggerAuto, Target: msg}
	}
	return Trigger{Kind: TriggerNone}
}

// transcribable reports whether m is a voice message with audio that has
// not already been annotated by a text-only edit.
func transcribable(m *relay.Message) bool {
	if !m.IsVoice() || m.IsNoMediaEdit() || m.File == nil {
		return false
	}
	return streamSize(m.File) > 0
}

// streamSize returns the total length of s and leaves its offset unchanged.
func streamSize(s io.Seeker) int64 {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	end, err := s.Seek(0, io.SeekEnd)
	if _, rerr := s.Seek(cur, io.SeekStart); rerr != nil || err != nil {
		return 0
	}
	return end
}
