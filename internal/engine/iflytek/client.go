// Package iflytek implements the IFlyTek streaming dictation engine over a
// signed websocket.
package iflytek

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"voxrelay/internal/audio"
	"voxrelay/internal/recog"
	"voxrelay/pkg/logger"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const (
	EngineName  = "IFlyTek"
	HostURL     = "wss://ws-api.xfyun.cn/v2/iat"
	DefaultLang = "zh_cn"

	FrameSize     = 8000
	FrameInterval = 40 * time.Millisecond

	audioFormat = "audio/L16;rate=16000"
	vadEOS      = 10000
)

// languages maps accepted codes to dictation language codes.
var languages = map[string]string{
	"zh_cn": "zh_cn",
	"en_us": "en_us",
	"zh":    "zh_cn",
	"en":    "en_us",
}

type Config struct {
	AppID     string
	APIKey    string
	APISecret string
	Lang      string

	// URL overrides HostURL.
	URL string
	// Interval overrides FrameInterval. Negative disables pacing.
	Interval time.Duration
}

type Engine struct {
	cfg       Config
	converter audio.Converter
	now       func() time.Time
}

func New(cfg Config, converter audio.Converter) (*Engine, error) {
	if cfg.AppID == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("iflytek: app_id, api_key and api_secret are required")
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if _, ok := languages[strings.ToLower(cfg.Lang)]; !ok {
		return nil, fmt.Errorf("iflytek: %w: %s", recog.ErrUnsupportedLanguage, cfg.Lang)
	}
	if cfg.URL == "" {
		cfg.URL = HostURL
	}
	if cfg.Interval == 0 {
		cfg.Interval = FrameInterval
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("iflytek: invalid url: %w", err)
	}

	logger.Named("iflytek").Info("IFlyTek speech engine initialized", zap.String("lang", cfg.Lang))
	return &Engine{cfg: cfg, converter: converter, now: time.Now}, nil
}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) ResolveLanguage(hint string) (string, error) {
	if hint == "" {
		hint = e.cfg.Lang
	}
	lang, ok := languages[strings.ToLower(hint)]
	if !ok {
		return "", recog.ErrUnsupportedLanguage
	}
	return lang, nil
}

func (e *Engine) Recognize(ctx context.Context, audioPath, lang string) ([]string, error) {
	pcm, err := e.converter.PCM16k(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	signed, err := e.signURL(e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign url: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, signed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.CloseNow()

	sendCtx, cancelSend := context.WithCancel(ctx)
	defer cancelSend()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- e.sendFrames(sendCtx, conn, pcm, lang)
	}()

	var text strings.Builder
	for {
		var msg resultMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			select {
			case serr := <-sendErr:
				if serr != nil {
					return nil, fmt.Errorf("failed to send audio: %w", serr)
				}
			default:
			}
			return nil, fmt.Errorf("failed to read result: %w", err)
		}
		if msg.Code != 0 {
			return nil, fmt.Errorf("%s (code: %d)", msg.Message, msg.Code)
		}
		text.WriteString(msg.words())
		if msg.final() {
			break
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")

	if text.Len() == 0 {
		return nil, nil
	}
	return []string{text.String()}, nil
}

// sendFrames streams pcm in fixed-size frames. The first frame carries the
// session arguments and an empty frame marks the end of audio.
func (e *Engine) sendFrames(ctx context.Context, conn *websocket.Conn, pcm []byte, lang string) error {
	status := statusFirstFrame
	for off := 0; ; off += FrameSize {
		end := min(off+FrameSize, len(pcm))
		var chunk []byte
		if off < len(pcm) {
			chunk = pcm[off:end]
		}
		if len(chunk) == 0 && status != statusFirstFrame {
			status = statusLastFrame
		}

		f := frame{Data: frameData{
			Status:   status,
			Format:   audioFormat,
			Audio:    base64.StdEncoding.EncodeToString(chunk),
			Encoding: "raw",
		}}
		if status == statusFirstFrame {
			f.Common = &commonArgs{AppID: e.cfg.AppID}
			f.Business = businessFor(lang)
		}

		if err := wsjson.Write(ctx, conn, f); err != nil {
			return err
		}
		if status == statusLastFrame {
			return nil
		}
		status = statusContinueFrame

		if e.cfg.Interval > 0 {
			timer := time.NewTimer(e.cfg.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

func businessFor(lang string) *businessArgs {
	args := &businessArgs{Domain: "iat", Language: lang, VADEOS: vadEOS}
	if lang == "zh_cn" || lang == "en_us" {
		args.Accent = "mandarin"
	}
	return args
}

// signURL appends the HMAC-SHA256 request signature to the endpoint.
func (e *Engine) signURL(now time.Time) (string, error) {
	u, err := url.Parse(e.cfg.URL)
	if err != nil {
		return "", err
	}

	date := now.UTC().Format(http.TimeFormat)
	origin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", u.Host, date, u.Path)

	mac := hmac.New(sha256.New, []byte(e.cfg.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf(`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		e.cfg.APIKey, signature)

	q := url.Values{}
	q.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorization)))
	q.Set("date", date)
	q.Set("host", u.Host)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
