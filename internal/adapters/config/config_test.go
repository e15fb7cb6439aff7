package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			WindowDuration:  4 * time.Hour,
			MinSamples:      20,
			Watchlist:       []string{"BTCUSDT"},
			StopLossPercent: 2.0,
			EntryPercent:    0.5,
		},
		Anomaly: AnomalyConfig{
			DominanceThreshold:   1.5,
			StablecoinThreshold:  1.2,
			SentimentThreshold:   2.0,
			MinConfirmations:     2.0,
			MinConfirmationsTech: 1.5,
		},
		Emission: EmissionConfig{
			Cooldown:          6 * time.Hour,
			ValueChangeFactor: 0.4,
		},
		Safety: SafetyConfig{
			CrashDropPercent:     3.0,
			CrashWindow:          15 * time.Minute,
			MinQuoteVolume:       10_000_000,
			CorrelationThreshold: 0.85,
		},
		Market: MarketConfig{
			CMCAPIKey: "test-key",
		},
		Telegram: TelegramConfig{
			Enabled:  true,
			BotToken: "token",
			ChatID:   42,
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})

	t.Run("telegram credentials optional when disabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telegram = TelegramConfig{Enabled: false}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Disabled telegram must not require credentials, got: %v", err)
		}
	})

	t.Run("enabled telegram requires token", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telegram.BotToken = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Enabled telegram without a token must fail validation")
		}
	})

	t.Run("enabled telegram requires chat id", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telegram.ChatID = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Enabled telegram without a chat id must fail validation")
		}
	})

	t.Run("negative thresholds rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Anomaly.DominanceThreshold = -1
		if err := cfg.Validate(); err == nil {
			t.Error("Negative dominance threshold must fail validation")
		}
	})

	t.Run("too few samples rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.MinSamples = 1
		if err := cfg.Validate(); err == nil {
			t.Error("min_samples below 2 must fail validation")
		}
	})
}
