package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Env                   string
	ListenAddr            string
	SpeechEngineBaseURL   string
	SpeechFileTimeout     time.Duration
	SpeechChunkTimeout    time.Duration
	SpeechPhoneticTimeout time.Duration
	SpeechHealthTimeout   time.Duration
	MaxActiveSessions     int
	MaxChunkBytes         int
	FeedbackWebhookURL    string
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	if c.SpeechEngineBaseURL == "" {
		return fmt.Errorf("SPEECH_ENGINE_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.SpeechEngineBaseURL); err != nil {
		return fmt.Errorf("SPEECH_ENGINE_BASE_URL is invalid: %w", err)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{name: "SPEECH_FILE_TIMEOUT", value: c.SpeechFileTimeout},
		{name: "SPEECH_CHUNK_TIMEOUT", value: c.SpeechChunkTimeout},
		{name: "SPEECH_PHONETIC_TIMEOUT", value: c.SpeechPhoneticTimeout},
		{name: "SPEECH_HEALTH_TIMEOUT", value: c.SpeechHealthTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.MaxActiveSessions <= 0 {
		return fmt.Errorf("MAX_ACTIVE_SESSIONS must be positive, got %d", c.MaxActiveSessions)
	}
	if c.MaxChunkBytes <= 0 {
		return fmt.Errorf("MAX_CHUNK_BYTES must be positive, got %d", c.MaxChunkBytes)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
