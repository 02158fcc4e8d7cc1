// Package baidu implements the Baidu short speech recognition engine.
package baidu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"voxrelay/internal/audio"
	"voxrelay/internal/recog"
	"voxrelay/pkg/logger"
	"voxrelay/pkg/resilience"

	"go.uber.org/zap"
)

const (
	EngineName   = "Baidu"
	TokenURL     = "https://openapi.baidu.com/oauth/2.0/token"
	RecognizeURL = "http://vop.baidu.com/server_api"
	DefaultLang  = "zh"

	cuid = "voxrelay"

	// tokenRefreshMargin is how long before expiry a token is replaced.
	tokenRefreshMargin = 24 * time.Hour
	// defaultTokenTTL applies when the token response carries no expires_in.
	defaultTokenTTL = 30 * 24 * time.Hour
)

// devPIDs maps language codes to Baidu model ids.
var devPIDs = map[string]int{
	"zh":            1537,
	"zh-x-en":       1536,
	"en":            1737,
	"ct":            1637,
	"zh-yue":        1637,
	"zh-x-sichuan":  1837,
	"zh-x-farfield": 1936,
}

type Config struct {
	APIKey    string
	SecretKey string
	Lang      string

	// TokenURL and RecognizeURL override the public endpoints.
	TokenURL     string
	RecognizeURL string
	Retry        *resilience.RetryConfig
}

type Engine struct {
	cfg       Config
	converter audio.Converter
	client    *http.Client
	log       *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// New exchanges the API key pair for an access token and returns a ready
// engine.
func New(ctx context.Context, cfg Config, converter audio.Converter) (*Engine, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("baidu: api_key and secret_key are required")
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if _, ok := devPIDs[strings.ToLower(cfg.Lang)]; !ok {
		return nil, fmt.Errorf("baidu: %w: %s", recog.ErrUnsupportedLanguage, cfg.Lang)
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = TokenURL
	}
	if cfg.RecognizeURL == "" {
		cfg.RecognizeURL = RecognizeURL
	}
	if cfg.Retry == nil {
		cfg.Retry = resilience.DefaultRetryConfig()
	}

	e := &Engine{
		cfg:       cfg,
		converter: converter,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logger.Named("baidu"),
		now: time.Now,
	}

	err := resilience.RetryWithExponentialBackoff(ctx, cfg.Retry, func() error {
		token, ttl, err := e.fetchToken(ctx)
		if err != nil {
			e.log.Warn("Baidu token request failed", zap.Error(err))
			return err
		}
		e.setToken(token, ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("baidu: failed to get access token: %w", err)
	}

	e.log.Info("Baidu speech engine initialized",
		zap.String("lang", cfg.Lang),
		zap.Time("token_expires_at", e.expiresAt))
	return e, nil
}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) ResolveLanguage(hint string) (string, error) {
	if hint == "" {
		hint = e.cfg.Lang
	}
	lang := strings.ToLower(hint)
	if _, ok := devPIDs[lang]; !ok {
		return "", recog.ErrUnsupportedLanguage
	}
	return lang, nil
}

func (e *Engine) Recognize(ctx context.Context, audioPath, lang string) ([]string, error) {
	pid, ok := devPIDs[lang]
	if !ok {
		return nil, recog.ErrUnsupportedLanguage
	}

	pcm, err := e.converter.PCM16k(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	token, err := e.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("cuid", cuid)
	params.Set("token", token)
	params.Set("dev_pid", strconv.Itoa(pid))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.RecognizeURL+"?"+params.Encode(), bytes.NewReader(pcm))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/pcm;rate=%d", audio.SampleRate))

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

	if result.ErrNo != 0 {
		return nil, fmt.Errorf("%s (code: %d)", result.ErrMsg, result.ErrNo)
	}

	return result.Result, nil
}

// token returns the cached access token, exchanging the key pair for a new
// one when the cached token is within tokenRefreshMargin of expiry. A failed
// refresh falls back to the cached token while it is still valid.
func (e *Engine) token(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.accessToken != "" && now.Add(tokenRefreshMargin).Before(e.expiresAt) {
		return e.accessToken, nil
	}

	token, ttl, err := e.fetchToken(ctx)
	if err != nil {
		if e.accessToken != "" && now.Before(e.expiresAt) {
			e.log.Warn("Baidu token refresh failed, using current token",
				zap.Time("expires_at", e.expiresAt),
				zap.Error(err))
			return e.accessToken, nil
		}
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	e.setToken(token, ttl)
	e.log.Info("Baidu access token refreshed", zap.Time("expires_at", e.expiresAt))
	return token, nil
}

// setToken must be called with mu held or before the engine is shared.
func (e *Engine) setToken(token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	e.accessToken = token
	e.expiresAt = e.now().Add(ttl)
}

func (e *Engine) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", e.cfg.APIKey)
	form.Set("client_secret", e.cfg.SecretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", 0, fmt.Errorf("failed to unmarshal token: status=%d: %w", resp.StatusCode, err)
	}

	if token.AccessToken == "" {
		return "", 0, fmt.Errorf("token request rejected: %s: %s", token.Error, token.ErrorDescription)
	}

	return token.AccessToken, time.Duration(token.ExpiresIn) * time.Second, nil
}
