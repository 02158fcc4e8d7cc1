// Package engine builds the speech engine registry from configuration.
package engine

import (
	"context"
	"voxrelay/internal/audio"
	"voxrelay/internal/config"
	"voxrelay/internal/engine/azure"
	"voxrelay/internal/engine/baidu"
	"voxrelay/internal/engine/iflytek"
	"voxrelay/internal/engine/tencent"
	"voxrelay/internal/recog"
	"voxrelay/pkg/logger"

	"go.uber.org/zap"
)

type constructor struct {
	name    string
	enabled bool
	build   func() (recog.Engine, error)
}

// Build constructs every provider whose credentials are present. A provider
// that fails to construct is logged and left out; Build itself never fails.
func Build(ctx context.Context, api config.SpeechAPI, converter audio.Converter) *recog.Registry {
	constructors := []constructor{
		{
			name:    baidu.EngineName,
			enabled: api.Baidu.Enabled(),
			build: func() (recog.Engine, error) {
				return baidu.New(ctx, baidu.Config{
					APIKey:    api.Baidu.APIKey,
					SecretKey: api.Baidu.SecretKey,
					Lang:      api.Baidu.Lang,
				}, converter)
			},
		},
		{
			name:    azure.EngineName,
			enabled: api.Azure.Enabled(),
			build: func() (recog.Engine, error) {
				return azure.New(azure.Config{
					Key1:     api.Azure.Key1,
					Endpoint: api.Azure.Endpoint,
					Lang:     api.Azure.Lang,
				}, converter)
			},
		},
		{
			name:    tencent.EngineName,
			enabled: api.Tencent.Enabled(),
			build: func() (recog.Engine, error) {
				return tencent.New(tencent.Config{
					SecretID:  api.Tencent.SecretID,
					SecretKey: api.Tencent.SecretKey,
					Region:    api.Tencent.Region,
					Lang:      api.Tencent.Lang,
				}, converter)
			},
		},
		{
			name:    iflytek.EngineName,
			enabled: api.IFlyTek.Enabled(),
			build: func() (recog.Engine, error) {
				return iflytek.New(iflytek.Config{
					AppID:     api.IFlyTek.AppID,
					APIKey:    api.IFlyTek.APIKey,
					APISecret: api.IFlyTek.APISecret,
					Lang:      api.IFlyTek.Lang,
				}, converter)
			},
		},
	}

	return build(constructors)
}

func build(constructors []constructor) *recog.Registry {
	var engines []recog.Engine
	for _, c := range constructors {
		if !c.enabled {
			continue
		}
		e, err := c.build()
		if err != nil {
			logger.Error("Failed to initialize speech engine, skipping",
				zap.String("engine", c.name),
				zap.Error(err))
			continue
		}
		engines = append(engines, e)
	}

	registry, err := recog.NewRegistry(engines...)
	if err != nil {
		logger.Error("Failed to build engine registry", zap.Error(err))
		registry, _ = recog.NewRegistry()
	}

	logger.Info("Speech engines ready",
		zap.Strings("engines", registry.Names()),
		zap.Int("count", registry.Len()))
	return registry
}
