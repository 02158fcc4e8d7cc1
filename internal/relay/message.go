// Package relay holds the message model shared between the chat host and the
// transcription hook.
package relay

import (
	"context"
	"io"
)

// MsgType is the content type of a relayed message.
type MsgType string

const (
	MsgTypeText  MsgType = "text"
	MsgTypeVoice MsgType = "voice"
	MsgTypeOther MsgType = "other"
)

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    int64
	Title string
}

// Author identifies who wrote a message.
type Author struct {
	ID       int64
	Username string
	Name     string
}

func (c *Chat) clone() *Chat {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (a *Author) clone() *Author {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// Message is a relayed chat message.
type Message struct {
	UID  string
	Type MsgType
	Text string

	// File is the attached media stream, nil for text messages.
	File io.ReadSeeker
	Mime string

	// Edit marks the message as an edit of an already delivered message.
	// EditMedia additionally marks the media as changed.
	Edit      bool
	EditMedia bool

	// Target is the message this one replies to.
	Target *Message

	Chat   *Chat
	Author *Author

	// FromOperator is set by the host when the message was written by the
	// relay operator rather than a remote contact.
	FromOperator bool
}

// IsVoice reports whether the message carries voice content.
func (m *Message) IsVoice() bool {
	return m != nil && m.Type == MsgTypeVoice
}

// IsNoMediaEdit reports whether m is an edit that left its media untouched.
func (m *Message) IsNoMediaEdit() bool {
	return m.Edit && !m.EditMedia
}

// WorkingCopy returns a copy of m that a background job may mutate.
//
// Scalar fields are copied. File and Target are shared read-only references.
// Chat and Author are not taken from m: the caller passes the identities from
// the triggering event and they are cloned, so the copy never aliases the
// host's identity objects.
func (m *Message) WorkingCopy(chat *Chat, author *Author) *Message {
	return &Message{
		UID:          m.UID,
		Type:         m.Type,
		Text:         m.Text,
		File:         m.File,
		Mime:         m.Mime,
		Edit:         m.Edit,
		EditMedia:    m.EditMedia,
		Target:       m.Target,
		Chat:         chat.clone(),
		Author:       author.clone(),
		FromOperator: m.FromOperator,
	}
}

// Publisher delivers a message through the host. For a message with Edit set
// the host treats it as an edit of the message with the same UID.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, msg *Message) error

func (f PublisherFunc) Publish(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}
