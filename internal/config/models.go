package config

import (
	"fmt"
	"time"
)

// EstimatorsConfig selects estimator implementations and their model files.
type EstimatorsConfig struct {
	StatisticalProvider string
	NgramModelPath      string
	FeatureModelPath    string
	MaxTextSize         int
}

// ModerationConfig carries the default tenant policy knobs.
type ModerationConfig struct {
	DefaultMode     string
	DeleteThreshold float64
	KickThreshold   float64
}

// RateLimitConfig carries the flood detector thresholds.
type RateLimitConfig struct {
	PerBurst      int
	PerWindow     int
	BurstWindow   time.Duration
	Window        time.Duration
	SweepInterval time.Duration
}

// NotificationsConfig carries the alert batching knobs.
type NotificationsConfig struct {
	BatchThreshold     int
	IndividualInterval time.Duration
}

// PairingConfig carries the handshake token lifetime.
type PairingConfig struct {
	TokenTTL time.Duration
}

// IntakeConfig sizes the message worker pool.
type IntakeConfig struct {
	Workers int
}

// StatsConfig selects the counter sink backend.
type StatsConfig struct {
	Backend       string
	ListenAddress string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GetEstimators returns the estimator configuration
func (c *Config) GetEstimators() EstimatorsConfig {
	return EstimatorsConfig{
		StatisticalProvider: c.GetString("estimators.statistical_provider"),
		NgramModelPath:      c.GetString("estimators.ngram_model_path"),
		FeatureModelPath:    c.GetString("estimators.feature_model_path"),
		MaxTextSize:         c.GetInt("estimators.max_text_size"),
	}
}

// GetModeration returns the moderation defaults
func (c *Config) GetModeration() ModerationConfig {
	return ModerationConfig{
		DefaultMode:     c.GetString("moderation.default_mode"),
		DeleteThreshold: c.GetFloat64("moderation.delete_threshold"),
		KickThreshold:   c.GetFloat64("moderation.kick_threshold"),
	}
}

// GetRateLimit returns the flood detector configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	burstWindow, err := c.GetDuration("ratelimit.burst_window")
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid ratelimit burst window: %w", err)
	}
	window, err := c.GetDuration("ratelimit.window")
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid ratelimit window: %w", err)
	}
	sweep, err := c.GetDuration("ratelimit.sweep_interval")
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid ratelimit sweep interval: %w", err)
	}
	return RateLimitConfig{
		PerBurst:      c.GetInt("ratelimit.per_burst"),
		PerWindow:     c.GetInt("ratelimit.per_window"),
		BurstWindow:   burstWindow,
		Window:        window,
		SweepInterval: sweep,
	}, nil
}

// GetNotifications returns the alert batching configuration
func (c *Config) GetNotifications() (NotificationsConfig, error) {
	interval, err := c.GetDuration("notifications.individual_interval")
	if err != nil {
		return NotificationsConfig{}, fmt.Errorf("invalid notification interval: %w", err)
	}
	return NotificationsConfig{
		BatchThreshold:     c.GetInt("notifications.batch_threshold"),
		IndividualInterval: interval,
	}, nil
}

// GetPairing returns the pairing handshake configuration
func (c *Config) GetPairing() (PairingConfig, error) {
	ttl, err := c.GetDuration("pairing.token_ttl")
	if err != nil {
		return PairingConfig{}, fmt.Errorf("invalid pairing token TTL: %w", err)
	}
	return PairingConfig{TokenTTL: ttl}, nil
}

// GetIntake returns the intake configuration
func (c *Config) GetIntake() IntakeConfig {
	return IntakeConfig{
		Workers: c.GetInt("intake.workers"),
	}
}

// GetStats returns the counter sink configuration
func (c *Config) GetStats() StatsConfig {
	return StatsConfig{
		Backend:       c.GetString("stats.backend"),
		ListenAddress: c.GetString("stats.listen_address"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}
