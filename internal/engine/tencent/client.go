// Package tencent implements the Tencent Cloud sentence recognition engine.
package tencent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"voxrelay/internal/audio"
	"voxrelay/internal/recog"
	"voxrelay/pkg/logger"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/asr/v20190614"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	"go.uber.org/zap"
)

const (
	EngineName    = "Tencent"
	Endpoint      = "asr.tencentcloudapi.com"
	DefaultRegion = "ap-shanghai"
	DefaultLang   = "zh"

	usrAudioKey = "voxrelay.voice_recog"
)

// engineTypes maps language codes to EngSerViceType values.
var engineTypes = map[string]string{
	"zh": "16k_zh",
	"en": "16k_en",
	"ca": "16k_ca",
}

type Config struct {
	SecretID  string
	SecretKey string
	Region    string
	Lang      string
}

// sentenceRecognizer is the subset of the ASR client the engine calls.
type sentenceRecognizer interface {
	SentenceRecognitionWithContext(ctx context.Context, request *v20190614.SentenceRecognitionRequest) (*v20190614.SentenceRecognitionResponse, error)
}

type Engine struct {
	client    sentenceRecognizer
	lang      string
	converter audio.Converter
}

func New(cfg Config, converter audio.Converter) (*Engine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, errors.New("tencent: secret_id and secret_key are required")
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if _, ok := engineTypes[cfg.Lang]; !ok {
		return nil, fmt.Errorf("tencent: %w: %s", recog.ErrUnsupportedLanguage, cfg.Lang)
	}

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = Endpoint
	cpf.SignMethod = "TC3-HMAC-SHA256"

	client, err := v20190614.NewClient(common.NewCredential(cfg.SecretID, cfg.SecretKey), cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("tencent: failed to create client: %w", err)
	}

	logger.Named("tencent").Info("Tencent speech engine initialized",
		zap.String("region", cfg.Region),
		zap.String("lang", cfg.Lang))
	return newEngine(client, cfg.Lang, converter), nil
}

func newEngine(client sentenceRecognizer, lang string, converter audio.Converter) *Engine {
	return &Engine{client: client, lang: lang, converter: converter}
}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) ResolveLanguage(hint string) (string, error) {
	if hint == "" {
		return e.lang, nil
	}
	lang := strings.ToLower(hint)
	if _, ok := engineTypes[lang]; !ok {
		return "", recog.ErrUnsupportedLanguage
	}
	return lang, nil
}

func (e *Engine) Recognize(ctx context.Context, audioPath, lang string) ([]string, error) {
	engineType, ok := engineTypes[lang]
	if !ok {
		return nil, recog.ErrUnsupportedLanguage
	}

	pcm, err := e.converter.PCM16k(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	wav, err := audio.PCMToWAV(pcm, audio.SampleRate, audio.Channels)
	if err != nil {
		return nil, err
	}

	req := v20190614.NewSentenceRecognitionRequest()
	req.SubServiceType = common.Uint64Ptr(2)
	req.EngSerViceType = common.StringPtr(engineType)
	req.SourceType = common.Uint64Ptr(1)
	req.VoiceFormat = common.StringPtr("wav")
	req.UsrAudioKey = common.StringPtr(usrAudioKey)
	req.Data = common.StringPtr(base64.StdEncoding.EncodeToString(wav))
	req.DataLen = common.Int64Ptr(int64(len(wav)))

	resp, err := e.client.SentenceRecognitionWithContext(ctx, req)
	if err != nil {
		var sdkErr *tcerr.TencentCloudSDKError
		if errors.As(err, &sdkErr) {
			return nil, fmt.Errorf("%s: %s", sdkErr.GetCode(), sdkErr.GetMessage())
		}
		return nil, fmt.Errorf("sentence recognition failed: %w", err)
	}

	if resp.Response == nil || resp.Response.Result == nil {
		return nil, nil
	}
	return []string{*resp.Response.Result}, nil
}
