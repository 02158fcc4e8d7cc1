// Package recog turns voice messages into transcription annotations by
// fanning the audio out to every configured speech engine.
package recog

import (
	"context"
	"errors"
)

// ErrUnsupportedLanguage is returned by Engine.ResolveLanguage when the
// requested language is not served by the provider.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Engine is a speech recognition provider adapter.
type Engine interface {
	// Name is the display name used in report lines, e.g. "Baidu".
	Name() string

	// ResolveLanguage maps a language hint to the provider's language code.
	// An empty hint selects the engine's configured default.
	ResolveLanguage(hint string) (string, error)

	// Recognize transcribes the audio file at audioPath and returns the
	// candidate transcripts, best first. lang is a value previously returned
	// by ResolveLanguage.
	Recognize(ctx context.Context, audioPath string, lang string) ([]string, error)
}
