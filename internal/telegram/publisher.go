package telegram

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"voxrelay/internal/recog"
	"voxrelay/internal/relay"
	"voxrelay/pkg/resilience"

	tele "gopkg.in/telebot.v4"
)

// MaxCaptionRunes is the Bot API limit for media captions.
const MaxCaptionRunes = 1024

// Sender is the part of *tele.Bot the publisher uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Publisher delivers annotated messages as replies to the original voice
// message. Bots cannot edit other users' messages, so a reply stands in for
// the edit.
type Publisher struct {
	sender  Sender
	limiter *resilience.RateLimiter
}

func NewPublisher(sender Sender, limiter *resilience.RateLimiter) *Publisher {
	return &Publisher{sender: sender, limiter: limiter}
}

func (p *Publisher) Publish(ctx context.Context, msg *relay.Message) error {
	if msg.Chat == nil {
		return fmt.Errorf("message %s has no chat", msg.UID)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	chat := &tele.Chat{ID: msg.Chat.ID}
	opts := &tele.SendOptions{}
	if id, err := strconv.Atoi(msg.UID); err == nil {
		opts.ReplyTo = &tele.Message{ID: id, Chat: chat}
	}

	var what interface{} = msg.Text
	if msg.File != nil {
		if _, err := msg.File.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind voice: %w", err)
		}
		what = &tele.Voice{
			File:    tele.FromReader(msg.File),
			Caption: recog.Truncate(msg.Text, MaxCaptionRunes),
			MIME:    msg.Mime,
		}
	}

	if _, err := p.sender.Send(chat, what, opts); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
