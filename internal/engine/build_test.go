package engine

import (
	"context"
	"errors"
	"testing"
	"voxrelay/internal/audio/audiotest"
	"voxrelay/internal/config"
	"voxrelay/internal/recog"

	"github.com/stretchr/testify/assert"
)

type namedEngine string

func (n namedEngine) Name() string { return string(n) }

func (n namedEngine) ResolveLanguage(string) (string, error) { return "", nil }

func (n namedEngine) Recognize(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func TestBuild_EmptyConfig(t *testing.T) {
	registry := Build(context.Background(), config.SpeechAPI{}, &audiotest.Stub{})

	assert.True(t, registry.Empty())
}

func TestBuild_SkipsBrokenProviders(t *testing.T) {
	api := config.SpeechAPI{
		// Missing endpoint fails construction.
		Azure:   config.AzureConfig{Key1: "k"},
		Tencent: config.TencentConfig{SecretID: "id", SecretKey: "key"},
		IFlyTek: config.IFlyTekConfig{AppID: "app", APIKey: "key", APISecret: "secret", Lang: "klingon"},
	}

	registry := Build(context.Background(), api, &audiotest.Stub{})

	assert.Equal(t, []string{"Tencent"}, registry.Names())
}

func TestBuild_KeepsOrder(t *testing.T) {
	registry := build([]constructor{
		{name: "A", enabled: true, build: func() (recog.Engine, error) { return namedEngine("A"), nil }},
		{name: "B", enabled: false, build: func() (recog.Engine, error) { return namedEngine("B"), nil }},
		{name: "C", enabled: true, build: func() (recog.Engine, error) { return nil, errors.New("bad key") }},
		{name: "D", enabled: true, build: func() (recog.Engine, error) { return namedEngine("D"), nil }},
	})

	assert.Equal(t, []string{"A", "D"}, registry.Names())
}

func TestBuild_DuplicateNamesYieldEmptyRegistry(t *testing.T) {
	registry := build([]constructor{
		{name: "A", enabled: true, build: func() (recog.Engine, error) { return namedEngine("A"), nil }},
		{name: "A", enabled: true, build: func() (recog.Engine, error) { return namedEngine("A"), nil }},
	})

	assert.True(t, registry.Empty())
}
