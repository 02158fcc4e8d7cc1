// Package azure implements the Azure Speech short audio recognition engine.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"voxrelay/internal/audio"
	"voxrelay/internal/recog"
	"voxrelay/pkg/logger"

	"go.uber.org/zap"
)

const (
	EngineName  = "Azure"
	DefaultLang = "zh-CN"

	issueTokenSuffix = ".api.cognitive.microsoft.com/sts/v1.0/issuetoken"
	recognizeSuffix  = ".stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1"
)

// Languages lists the supported locales. Lookup falls back to the first
// locale with the same primary subtag.
var Languages = []string{
	"ar-EG", "ar-SA", "ar-AE", "ar-KW", "ar-QA", "ca-ES", "da-DK", "de-DE",
	"en-AU", "en-CA", "en-GB", "en-IN", "en-NZ", "en-US", "es-ES", "es-MX",
	"fi-FI", "fr-CA", "fr-FR", "gu-IN", "hi-IN", "it-IT", "ja-JP", "ko-KR",
	"mr-IN", "nb-NO", "nl-NL", "pl-PL", "pt-BR", "pt-PT", "ru-RU", "sv-SE",
	"ta-IN", "te-IN", "zh-CN", "zh-HK", "zh-TW", "th-TH", "tr-TR",
}

type Config struct {
	Key1 string
	// Endpoint is either the token issuing endpoint shown in the Azure
	// portal or the recognition endpoint itself.
	Endpoint string
	Lang     string
}

type Engine struct {
	key       string
	endpoint  string
	lang      string
	converter audio.Converter
	client    *http.Client
}

func New(cfg Config, converter audio.Converter) (*Engine, error) {
	if cfg.Key1 == "" || cfg.Endpoint == "" {
		return nil, errors.New("azure: key1 and endpoint are required")
	}

	e := &Engine{
		key:       cfg.Key1,
		endpoint:  strings.Replace(cfg.Endpoint, issueTokenSuffix, recognizeSuffix, 1),
		converter: converter,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	lang, ok := lookup(cfg.Lang)
	if !ok {
		return nil, fmt.Errorf("azure: %w: %s", recog.ErrUnsupportedLanguage, cfg.Lang)
	}
	e.lang = lang

	logger.Named("azure").Info("Azure speech engine initialized",
		zap.String("endpoint", e.endpoint),
		zap.String("lang", e.lang))
	return e, nil
}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) ResolveLanguage(hint string) (string, error) {
	if hint == "" {
		return e.lang, nil
	}
	lang, ok := lookup(hint)
	if !ok {
		return "", recog.ErrUnsupportedLanguage
	}
	return lang, nil
}

func lookup(hint string) (string, bool) {
	for _, l := range Languages {
		if strings.EqualFold(l, hint) {
			return l, true
		}
	}
	primary, _, _ := strings.Cut(hint, "-")
	for _, l := range Languages {
		p, _, _ := strings.Cut(l, "-")
		if strings.EqualFold(p, primary) {
			return l, true
		}
	}
	return "", false
}

func (e *Engine) Recognize(ctx context.Context, audioPath, lang string) ([]string, error) {
	ogg, err := e.converter.OggOpus16k(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("language", lang)
	params.Set("format", "detailed")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"?"+params.Encode(), bytes.NewReader(ogg))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.key)
	req.Header.Set("Content-Type", "audio/ogg; codecs=opus")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result recognitionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if result.RecognitionStatus != "Success" {
		return nil, fmt.Errorf("recognition status: %s", result.RecognitionStatus)
	}

	candidates := make([]string, 0, len(result.NBest))
	for _, alt := range result.NBest {
		if alt.Display != "" {
			candidates = append(candidates, alt.Display)
		}
	}
	if len(candidates) == 0 && result.DisplayText != "" {
		candidates = append(candidates, result.DisplayText)
	}

	return candidates, nil
}
