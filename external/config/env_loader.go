package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/siuteam/speaklab/internal/config"
)

type envConfig struct {
	Env                   string        `env:"ENV" envDefault:"production"`
	ListenAddr            string        `env:"LISTEN_ADDR" envDefault:":8080"`
	SpeechEngineBaseURL   string        `env:"SPEECH_ENGINE_BASE_URL,required"`
	SpeechFileTimeout     time.Duration `env:"SPEECH_FILE_TIMEOUT" envDefault:"5m"`
	SpeechChunkTimeout    time.Duration `env:"SPEECH_CHUNK_TIMEOUT" envDefault:"10s"`
	SpeechPhoneticTimeout time.Duration `env:"SPEECH_PHONETIC_TIMEOUT" envDefault:"10s"`
	SpeechHealthTimeout   time.Duration `env:"SPEECH_HEALTH_TIMEOUT" envDefault:"5s"`
	MaxActiveSessions     int           `env:"MAX_ACTIVE_SESSIONS" envDefault:"256"`
	MaxChunkBytes         int           `env:"MAX_CHUNK_BYTES" envDefault:"1048576"`
	FeedbackWebhookURL    string        `env:"FEEDBACK_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                   raw.Env,
		ListenAddr:            raw.ListenAddr,
		SpeechEngineBaseURL:   raw.SpeechEngineBaseURL,
		SpeechFileTimeout:     raw.SpeechFileTimeout,
		SpeechChunkTimeout:    raw.SpeechChunkTimeout,
		SpeechPhoneticTimeout: raw.SpeechPhoneticTimeout,
		SpeechHealthTimeout:   raw.SpeechHealthTimeout,
		MaxActiveSessions:     raw.MaxActiveSessions,
		MaxChunkBytes:         raw.MaxChunkBytes,
		FeedbackWebhookURL:    raw.FeedbackWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
