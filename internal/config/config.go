package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Feed        FeedConfig     `mapstructure:"feed"`
	Calendar    CalendarConfig `mapstructure:"calendar"`
	History     HistoryConfig  `mapstructure:"history"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FeedConfig points at the service that materializes sparse
// baseline/deltas tables for the reconciliation engine.
type FeedConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
}

// CalendarConfig bounds the trading calendar the loaders operate on.
// Start and End are inclusive session dates in YYYY-MM-DD.
type CalendarConfig struct {
	Start             string `mapstructure:"start"`
	End               string `mapstructure:"end"`
	MinuteOpen        string `mapstructure:"minute_open"`
	MinutesPerSession int    `mapstructure:"minutes_per_session"`
}

type HistoryConfig struct {
	DailyPrefetch  int `mapstructure:"daily_prefetch"`
	MinutePrefetch int `mapstructure:"minute_prefetch"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *Config) error {
	start, err := time.Parse("2006-01-02", c.Calendar.Start)
	if err != nil {
		return fmt.Errorf("invalid calendar start date %q: %w", c.Calendar.Start, err)
	}
	end, err := time.Parse("2006-01-02", c.Calendar.End)
	if err != nil {
		return fmt.Errorf("invalid calendar end date %q: %w", c.Calendar.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("calendar end %s precedes start %s", c.Calendar.End, c.Calendar.Start)
	}
	if _, err := time.ParseDuration(c.Calendar.MinuteOpen); err != nil {
		return fmt.Errorf("invalid calendar minute open %q: %w", c.Calendar.MinuteOpen, err)
	}
	if c.Calendar.MinutesPerSession <= 0 {
		return fmt.Errorf("minutes per session must be positive, got %d", c.Calendar.MinutesPerSession)
	}
	if c.History.DailyPrefetch <= 0 || c.History.MinutePrefetch <= 0 {
		return fmt.Errorf("prefetch lengths must be positive, got daily=%d minute=%d",
			c.History.DailyPrefetch, c.History.MinutePrefetch)
	}
	return nil
}

// SessionBounds returns the parsed calendar range. Load has already
// validated the formats.
func (c CalendarConfig) SessionBounds() (start, end time.Time) {
	start, _ = time.Parse("2006-01-02", c.Start)
	end, _ = time.Parse("2006-01-02", c.End)
	return start, end
}

// OpenOffset returns the parsed minute-session open offset.
func (c CalendarConfig) OpenOffset() time.Duration {
	d, _ := time.ParseDuration(c.MinuteOpen)
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "histwindow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("feed.service_url", "http://localhost:3001")
	viper.SetDefault("feed.timeout", 30)

	viper.SetDefault("calendar.start", "2010-01-01")
	viper.SetDefault("calendar.end", "2030-12-31")
	viper.SetDefault("calendar.minute_open", "9h30m")
	viper.SetDefault("calendar.minutes_per_session", 390)

	viper.SetDefault("history.daily_prefetch", 40)
	viper.SetDefault("history.minute_prefetch", 1950)
}
