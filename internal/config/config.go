package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice line service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service (e.g. https://xxx.onrender.com).
	// Twilio posts webhooks to <this-host>/voice/incoming and, for the
	// streaming transport, connects to wss://<this-host>/streams/twilio.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Sarvam speech/LLM provider configuration
	SarvamAPIKey  string `envconfig:"SARVAM_API_KEY" required:"true"`
	SarvamBaseURL string `envconfig:"SARVAM_BASE_URL" default:"https://api.sarvam.ai"`
	SarvamTimeout int    `envconfig:"SARVAM_TIMEOUT" default:"10"` // seconds, per external call

	// LLM and TTS model configuration
	ChatModel  string `envconfig:"CHAT_MODEL" default:"sarvam-m"`
	TTSModel   string `envconfig:"TTS_MODEL" default:"bulbul:v2"`
	TTSSpeaker string `envconfig:"TTS_SPEAKER" default:"anushka"`

	// Twilio telephony configuration
	TwilioAccountSID  string `envconfig:"TWILIO_ACCOUNT_SID" required:"true"`
	TwilioAuthToken   string `envconfig:"TWILIO_AUTH_TOKEN" required:"true"`
	TwilioPhoneNumber string `envconfig:"TWILIO_PHONE_NUMBER" default:""`

	// Call flow configuration
	RecordMaxLength int `envconfig:"RECORD_MAX_LENGTH" default:"30"` // seconds of caller speech per utterance
	GatherTimeout   int `envconfig:"GATHER_TIMEOUT" default:"5"`     // seconds to wait for a digit

	// Media Streams transport configuration
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for speech
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"25"`      // Silence frames closing an utterance (25 * 20ms = 500ms)
	MaxUtteranceBytes  int     `envconfig:"MAX_UTTERANCE_BYTES" default:"480000"` // Cap on buffered utterance audio (~30s of 8kHz PCM16)

	// Circuit breaker guarding the provider
	BreakerMaxFailures  int `envconfig:"BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	BreakerResetTimeout int `envconfig:"BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate required fields. A service missing credentials must refuse
	// to start rather than fail per-call.
	if cfg.SarvamAPIKey == "" {
		return nil, fmt.Errorf("SARVAM_API_KEY is required")
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if cfg.SarvamTimeout <= 0 {
		return nil, fmt.Errorf("SARVAM_TIMEOUT must be positive")
	}

	return &cfg, nil
}

// ProviderTimeout returns the per-call timeout for the speech/LLM provider
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.SarvamTimeout) * time.Second
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
