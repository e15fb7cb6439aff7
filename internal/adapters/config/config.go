package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Engine     EngineConfig     `envconfig:"ENGINE"`
	Anomaly    AnomalyConfig    `envconfig:"ANOMALY"`
	Emission   EmissionConfig   `envconfig:"EMISSION"`
	Safety     SafetyConfig     `envconfig:"SAFETY"`
	Market     MarketConfig     `envconfig:"MARKET"`
	Exchange   ExchangeConfig   `envconfig:"EXCHANGE"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Workers    WorkersConfig    `envconfig:"WORKERS"`
	Health     HealthConfig     `envconfig:"HEALTH"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// EngineConfig represents core evaluation parameters
type EngineConfig struct {
	WindowDuration  time.Duration `envconfig:"ENGINE_WINDOW_DURATION" default:"4h"`
	MinSamples      int           `envconfig:"ENGINE_MIN_SAMPLES" default:"20"`
	MaxSampleAge    time.Duration `envconfig:"ENGINE_MAX_SAMPLE_AGE" default:"0"`
	Watchlist       []string      `envconfig:"ENGINE_WATCHLIST" default:"BTCUSDT,ETHUSDT,SOLUSDT,BNBUSDT"`
	StopLossPercent float64       `envconfig:"ENGINE_STOP_LOSS_PERCENT" default:"2.0"`
	EntryPercent    float64       `envconfig:"ENGINE_ENTRY_PERCENT" default:"0.5"`
}

// AnomalyConfig represents z-score anomaly thresholds per metric family
type AnomalyConfig struct {
	DominanceThreshold   float64 `envconfig:"ANOMALY_DOMINANCE_THRESHOLD" default:"1.5"`
	StablecoinThreshold  float64 `envconfig:"ANOMALY_STABLECOIN_THRESHOLD" default:"1.2"`
	SentimentThreshold   float64 `envconfig:"ANOMALY_SENTIMENT_THRESHOLD" default:"2.0"`
	MinConfirmations     float64 `envconfig:"ANOMALY_MIN_CONFIRMATIONS" default:"2.0"`
	MinConfirmationsTech float64 `envconfig:"ANOMALY_MIN_CONFIRMATIONS_TECH" default:"1.5"`
}

// EmissionConfig represents dedup state machine parameters
type EmissionConfig struct {
	Cooldown          time.Duration `envconfig:"EMISSION_COOLDOWN" default:"6h"`
	ValueChangeFactor float64       `envconfig:"EMISSION_VALUE_CHANGE_FACTOR" default:"0.4"`
}

// SafetyConfig represents market safety and crash-detection parameters
type SafetyConfig struct {
	CrashDropPercent     float64       `envconfig:"SAFETY_CRASH_DROP_PERCENT" default:"3.0"`
	CrashWindow          time.Duration `envconfig:"SAFETY_CRASH_WINDOW" default:"15m"`
	MinQuoteVolume       float64       `envconfig:"SAFETY_MIN_QUOTE_VOLUME" default:"10000000"`
	CorrelationThreshold float64       `envconfig:"SAFETY_CORRELATION_THRESHOLD" default:"0.85"`
	MaxFundingRate       float64       `envconfig:"SAFETY_MAX_FUNDING_RATE" default:"0.001"`
}

// MarketConfig represents market data source configuration
type MarketConfig struct {
	CMCAPIKey        string        `envconfig:"MARKET_CMC_API_KEY" required:"true"`
	CMCBaseURL       string        `envconfig:"MARKET_CMC_BASE_URL" default:"https://pro-api.coinmarketcap.com"`
	FearGreedBaseURL string        `envconfig:"MARKET_FEAR_GREED_BASE_URL" default:"https://api.alternative.me"`
	RequestTimeout   time.Duration `envconfig:"MARKET_REQUEST_TIMEOUT" default:"10s"`
}

// ExchangeConfig represents exchange REST and websocket configuration
type ExchangeConfig struct {
	RESTBaseURL    string        `envconfig:"EXCHANGE_REST_BASE_URL" default:"https://fapi.binance.com"`
	WSBaseURL      string        `envconfig:"EXCHANGE_WS_BASE_URL" default:"wss://fstream.binance.com/ws"`
	RequestTimeout time.Duration `envconfig:"EXCHANGE_REQUEST_TIMEOUT" default:"10s"`
}

// TelegramConfig represents Telegram notification configuration.
// Token and chat id are validated only when notifications are enabled.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
	Enabled  bool   `envconfig:"TELEGRAM_ENABLED" default:"true"`
}

// DatabaseConfig represents PostgreSQL connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"marketpulse"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// ClickHouseConfig represents ClickHouse connection parameters
type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"true"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database string `envconfig:"CLICKHOUSE_DATABASE" default:"marketpulse"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

// RedisConfig represents Redis connection parameters
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// WorkersConfig represents background worker intervals
type WorkersConfig struct {
	SnapshotInterval   time.Duration `envconfig:"WORKERS_SNAPSHOT_INTERVAL" default:"5m"`
	MarketEvalInterval time.Duration `envconfig:"WORKERS_MARKET_EVAL_INTERVAL" default:"5m"`
	AssetEvalInterval  time.Duration `envconfig:"WORKERS_ASSET_EVAL_INTERVAL" default:"15m"`
	CandlesInterval    time.Duration `envconfig:"WORKERS_CANDLES_INTERVAL" default:"5m"`
	ShutdownTimeout    time.Duration `envconfig:"WORKERS_SHUTDOWN_TIMEOUT" default:"30s"`
}

// HealthConfig represents health probe server configuration
type HealthConfig struct {
	Port string `envconfig:"HEALTH_PORT" default:"8080"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Engine.MinSamples < 2 {
		return fmt.Errorf("min_samples must be at least 2")
	}
	if c.Engine.WindowDuration <= 0 {
		return fmt.Errorf("window_duration must be positive")
	}
	if c.Engine.MaxSampleAge < 0 {
		return fmt.Errorf("max_sample_age must not be negative")
	}
	if len(c.Engine.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	if c.Engine.StopLossPercent <= 0 {
		return fmt.Errorf("stop_loss_percent must be positive")
	}

	if c.Anomaly.DominanceThreshold <= 0 {
		return fmt.Errorf("dominance_threshold must be positive")
	}
	if c.Anomaly.StablecoinThreshold <= 0 {
		return fmt.Errorf("stablecoin_threshold must be positive")
	}
	if c.Anomaly.SentimentThreshold <= 0 {
		return fmt.Errorf("sentiment_threshold must be positive")
	}
	if c.Anomaly.MinConfirmationsTech > c.Anomaly.MinConfirmations {
		return fmt.Errorf("min_confirmations_tech must not exceed min_confirmations")
	}

	if c.Emission.Cooldown <= 0 {
		return fmt.Errorf("emission cooldown must be positive")
	}
	if c.Emission.ValueChangeFactor <= 0 {
		return fmt.Errorf("value_change_factor must be positive")
	}

	if c.Safety.CrashDropPercent <= 0 {
		return fmt.Errorf("crash_drop_percent must be positive")
	}
	if c.Safety.CrashWindow <= 0 {
		return fmt.Errorf("crash_window must be positive")
	}
	if c.Safety.CorrelationThreshold <= 0 || c.Safety.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation_threshold must be in (0, 1]")
	}

	if c.Market.CMCAPIKey == "" {
		return fmt.Errorf("coinmarketcap api key is required")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram chat_id is required")
		}
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
