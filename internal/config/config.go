package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the pipeline. Components receive it (or a
// sub-struct) explicitly; nothing reads process-wide state after Load.
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
	Indicators  IndicatorConfig `mapstructure:"indicators"`
	Sentiment   SentimentConfig `mapstructure:"sentiment"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// PipelineConfig controls the batch run itself.
type PipelineConfig struct {
	Symbols  string `mapstructure:"symbols"`
	Workers  int    `mapstructure:"workers"`
	Interval string `mapstructure:"interval"`
	LockTTL  string `mapstructure:"lock_ttl"`
}

// SymbolList splits the configured comma-separated symbol set.
func (p PipelineConfig) SymbolList() []string {
	var out []string
	for _, s := range strings.Split(p.Symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}

// RunInterval parses the scheduler interval; zero disables scheduling.
func (p PipelineConfig) RunInterval() time.Duration {
	d, err := time.ParseDuration(p.Interval)
	if err != nil {
		return 0
	}
	return d
}

// LockDuration parses the per-symbol run lock TTL.
func (p PipelineConfig) LockDuration() time.Duration {
	d, err := time.ParseDuration(p.LockTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// IndicatorConfig fixes the closed set of indicator windows.
type IndicatorConfig struct {
	MAPeriods      []int `mapstructure:"ma_periods"`
	EMAPeriods     []int `mapstructure:"ema_periods"`
	RSIPeriod      int   `mapstructure:"rsi_period"`
	StochPeriod    int   `mapstructure:"stoch_period"`
	MACDFast       int   `mapstructure:"macd_fast"`
	MACDSlow       int   `mapstructure:"macd_slow"`
	MACDSignal     int   `mapstructure:"macd_signal"`
	WilliamsPeriod int   `mapstructure:"williams_period"`
	CCIPeriod      int   `mapstructure:"cci_period"`
	ROCPeriod      int   `mapstructure:"roc_period"`
}

// SentimentConfig maps stocks to their news aliases and fixes the polarity
// thresholds that discretize a score into a trade signal.
type SentimentConfig struct {
	Aliases       map[string][]string `mapstructure:"aliases"`
	BuyThreshold  float64             `mapstructure:"buy_threshold"`
	SellThreshold float64             `mapstructure:"sell_threshold"`
	LookbackDays  int                 `mapstructure:"lookback_days"`
}

// ForecastConfig controls the LSTM forecaster.
type ForecastConfig struct {
	Lookback     int     `mapstructure:"lookback"`
	Horizon      int     `mapstructure:"horizon"`
	HiddenUnits  int     `mapstructure:"hidden_units"`
	Epochs       int     `mapstructure:"epochs"`
	LearningRate float64 `mapstructure:"learning_rate"`
	TestHoldout  int     `mapstructure:"test_holdout"`
	MinHistory   int     `mapstructure:"min_history"`
}

// Load reads configs/config.yaml, layered under environment variables
// (PIPELINE_SYMBOLS, DATABASE_HOST, ...), and validates the result.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Environment = strings.ToLower(cfg.Environment)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Pipeline.SymbolList()) == 0 {
		return fmt.Errorf("pipeline.symbols must name at least one symbol")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Forecast.Lookback < 1 {
		return fmt.Errorf("forecast.lookback must be >= 1, got %d", c.Forecast.Lookback)
	}
	if c.Forecast.MinHistory < c.Forecast.Lookback+2 {
		return fmt.Errorf("forecast.min_history must exceed lookback+1, got %d", c.Forecast.MinHistory)
	}
	if c.Sentiment.BuyThreshold < c.Sentiment.SellThreshold {
		return fmt.Errorf("sentiment.buy_threshold below sell_threshold")
	}
	for _, p := range append(append([]int{}, c.Indicators.MAPeriods...), c.Indicators.EMAPeriods...) {
		if p < 1 {
			return fmt.Errorf("indicator periods must be >= 1, got %d", p)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "psx_analytics")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	viper.SetDefault("pipeline.symbols", "UBL,PSO,HBL,ENGRO,OGDC")
	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.interval", "24h")
	viper.SetDefault("pipeline.lock_ttl", "10m")

	viper.SetDefault("indicators.ma_periods", []int{5, 10, 14, 20, 30})
	viper.SetDefault("indicators.ema_periods", []int{5, 10, 14, 20, 30})
	viper.SetDefault("indicators.rsi_period", 14)
	viper.SetDefault("indicators.stoch_period", 14)
	viper.SetDefault("indicators.macd_fast", 12)
	viper.SetDefault("indicators.macd_slow", 26)
	viper.SetDefault("indicators.macd_signal", 9)
	viper.SetDefault("indicators.williams_period", 14)
	viper.SetDefault("indicators.cci_period", 14)
	viper.SetDefault("indicators.roc_period", 14)

	viper.SetDefault("sentiment.aliases", map[string][]string{
		"PSO":   {"pso", "pakistan state oil"},
		"HBL":   {"hbl", "habib bank"},
		"OGDC":  {"ogdc", "ogdcl", "oil & gas development"},
		"UBL":   {"ubl", "united bank"},
		"ENGRO": {"engro", "engro fertilizer"},
	})
	viper.SetDefault("sentiment.buy_threshold", 0.0)
	viper.SetDefault("sentiment.sell_threshold", 0.0)
	viper.SetDefault("sentiment.lookback_days", 7)

	viper.SetDefault("forecast.lookback", 1)
	viper.SetDefault("forecast.horizon", 3)
	viper.SetDefault("forecast.hidden_units", 4)
	viper.SetDefault("forecast.epochs", 10)
	viper.SetDefault("forecast.learning_rate", 0.05)
	viper.SetDefault("forecast.test_holdout", 10)
	viper.SetDefault("forecast.min_history", 50)
}
