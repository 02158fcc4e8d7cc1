package config

import (
	"os"
	"time"
	"voxrelay/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	// Language is the hint passed to every engine. Empty selects each
	// engine's own default.
	Language string `yaml:"language" env:"VOXRELAY_LANGUAGE"`
	// Auto has no env override. A nil value means enabled.
	Auto          *bool  `yaml:"auto"`
	CommandPrefix string `yaml:"command_prefix" env:"VOXRELAY_COMMAND_PREFIX"`
	KeepMedia     bool   `yaml:"keep_media" env:"VOXRELAY_KEEP_MEDIA" env-default:"false"`

	Dispatch struct {
		Concurrency     int           `yaml:"concurrency" env:"DISPATCH_CONCURRENCY" env-default:"5"`
		Timeout         time.Duration `yaml:"timeout" env:"DISPATCH_TIMEOUT" env-default:"30s"`
		BreakerFailures uint32        `yaml:"breaker_failures" env:"DISPATCH_BREAKER_FAILURES" env-default:"3"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown" env:"DISPATCH_BREAKER_COOLDOWN" env-default:"1m"`
	} `yaml:"dispatch"`

	SpeechAPI SpeechAPI `yaml:"speech_api"`

	Telegram struct {
		Token     string  `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
		Operators []int64 `yaml:"operators" env:"TELEGRAM_OPERATORS" env-separator:","`
	} `yaml:"telegram"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`

	Audio struct {
		FFmpeg string `yaml:"ffmpeg" env:"FFMPEG_PATH" env-default:"ffmpeg"`
	} `yaml:"audio"`
}

// SpeechAPI holds provider credentials. A provider is enabled when any of
// its credential fields is set.
type SpeechAPI struct {
	Baidu   BaiduConfig   `yaml:"baidu"`
	Azure   AzureConfig   `yaml:"azure"`
	Tencent TencentConfig `yaml:"tencent"`
	IFlyTek IFlyTekConfig `yaml:"iflytek"`
}

type BaiduConfig struct {
	APIKey    string `yaml:"api_key" env:"BAIDU_API_KEY"`
	SecretKey string `yaml:"secret_key" env:"BAIDU_SECRET_KEY"`
	Lang      string `yaml:"lang" env:"BAIDU_LANG"`
}

func (c BaiduConfig) Enabled() bool { return c.APIKey != "" || c.SecretKey != "" }

type AzureConfig struct {
	Key1     string `yaml:"key1" env:"AZURE_SPEECH_KEY"`
	Endpoint string `yaml:"endpoint" env:"AZURE_SPEECH_ENDPOINT"`
	Lang     string `yaml:"lang" env:"AZURE_SPEECH_LANG"`
}

func (c AzureConfig) Enabled() bool { return c.Key1 != "" || c.Endpoint != "" }

type TencentConfig struct {
	SecretID  string `yaml:"secret_id" env:"TENCENT_SECRET_ID"`
	SecretKey string `yaml:"secret_key" env:"TENCENT_SECRET_KEY"`
	Region    string `yaml:"region" env:"TENCENT_REGION"`
	Lang      string `yaml:"lang" env:"TENCENT_LANG"`
}

func (c TencentConfig) Enabled() bool { return c.SecretID != "" || c.SecretKey != "" }

type IFlyTekConfig struct {
	AppID     string `yaml:"app_id" env:"IFLYTEK_APP_ID"`
	APIKey    string `yaml:"api_key" env:"IFLYTEK_API_KEY"`
	APISecret string `yaml:"api_secret" env:"IFLYTEK_API_SECRET"`
	Lang      string `yaml:"lang" env:"IFLYTEK_LANG"`
}

func (c IFlyTekConfig) Enabled() bool {
	return c.AppID != "" || c.APIKey != "" || c.APISecret != ""
}

// AutoEnabled reports the default automatic transcription mode.
func (c *Config) AutoEnabled() bool {
	return c.Auto == nil || *c.Auto
}

// IsOperator reports whether id is listed in telegram.operators.
func (c *Config) IsOperator(id int64) bool {
	for _, op := range c.Telegram.Operators {
		if op == id {
			return true
		}
	}
	return false
}

// LoadConfig reads the yaml file at path, then applies environment overrides.
// An empty path falls back to VOXRELAY_CONFIG and then DefaultPath.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("VOXRELAY_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	logger.Info("Config loaded successfully")
	return &cfg, nil
}
