package telegram

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"voxrelay/internal/relay"

	tele "gopkg.in/telebot.v4"
)

// MaxVoiceBytes is the largest file the Bot API lets a bot download.
const MaxVoiceBytes = 20 << 20

type converter struct {
	// prefix marks operator commands. Only a command reply needs the
	// target's audio.
	prefix     string
	isOperator func(id int64) bool
	download   func(file *tele.File) (io.ReadCloser, error)
}

// message converts an update. The replied-to message becomes the target.
// Operators' own voice messages are never transcribed automatically, and a
// target is only transcribed on an operator command, so audio is fetched for
// one side at most.
func (cv converter) message(m *tele.Message) (*relay.Message, error) {
	fromOperator := m.Sender != nil && cv.isOperator(m.Sender.ID)

	event, err := cv.convert(m, !fromOperator)
	if err != nil {
		return nil, err
	}

	if m.ReplyTo != nil {
		command := fromOperator && strings.HasPrefix(m.Text, cv.prefix)
		target, err := cv.convert(m.ReplyTo, command)
		if err != nil {
			return nil, fmt.Errorf("failed to convert reply target: %w", err)
		}
		event.Target = target
	}

	return event, nil
}

func (cv converter) convert(m *tele.Message, fetchVoice bool) (*relay.Message, error) {
	msg := &relay.Message{
		UID:  strconv.Itoa(m.ID),
		Type: relay.MsgTypeOther,
		Text: m.Text,
	}
	if m.Chat != nil {
		msg.Chat = &relay.Chat{ID: m.Chat.ID, Title: chatTitle(m.Chat)}
	}
	if m.Sender != nil {
		msg.Author = &relay.Author{
			ID:       m.Sender.ID,
			Username: m.Sender.Username,
			Name:     fullName(m.Sender),
		}
		msg.FromOperator = cv.isOperator(m.Sender.ID)
	}

	switch {
	case m.Voice != nil:
		msg.Type = relay.MsgTypeVoice
		msg.Text = m.Caption
		msg.Mime = m.Voice.MIME
		if fetchVoice {
			data, err := cv.fetch(&m.Voice.File)
			if err != nil {
				return nil, err
			}
			msg.File = bytes.NewReader(data)
		}
	case m.Text != "":
		msg.Type = relay.MsgTypeText
	}

	return msg, nil
}

func (cv converter) fetch(file *tele.File) ([]byte, error) {
	rc, err := cv.download(file)
	if err != nil {
		return nil, fmt.Errorf("failed to download voice: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxVoiceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read voice: %w", err)
	}
	return data, nil
}

func chatTitle(c *tele.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return c.Username
	}
	return c.FirstName
}

func fullName(u *tele.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
