package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Autoblog      AutoblogConfig
	Collaborators CollaboratorsConfig
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	MetricsPort int           `mapstructure:"metrics_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	RunTopic      string   `mapstructure:"run_topic"`
	RunDLQTopic   string   `mapstructure:"run_dlq_topic"`
	RunGroup      string   `mapstructure:"run_group"`
	EventTopic    string   `mapstructure:"event_topic"`
	EventDLQTopic string   `mapstructure:"event_dlq_topic"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// AutoblogConfig carries the tunables of the daily content pipeline.
type AutoblogConfig struct {
	Timezone            string        `mapstructure:"timezone"`
	MaxRevisionAttempts int           `mapstructure:"max_revision_attempts"`
	StageTimeout        time.Duration `mapstructure:"stage_timeout"`
	TrendingLimit       int           `mapstructure:"trending_limit"`
	FallbackKeywords    []string      `mapstructure:"fallback_keywords"`
	SiteBaseURL         string        `mapstructure:"site_base_url"`
	DefaultCategory     string        `mapstructure:"default_category"`
	ScheduleInterval    time.Duration `mapstructure:"schedule_interval"`
	LockTTL             time.Duration `mapstructure:"lock_ttl"`
	OutboxPollInterval  time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize     int           `mapstructure:"outbox_batch_size"`
}

type CollaboratorsConfig struct {
	TrendingURL    string        `mapstructure:"trending_url"`
	WriterURL      string        `mapstructure:"writer_url"`
	QualityURL     string        `mapstructure:"quality_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DefaultFallbackKeywords is the static topic pool used when the trending
// signal source is unreachable or returns nothing.
var DefaultFallbackKeywords = []string{
	"reseller listing tips",
	"cross listing strategy",
	"thrift store flipping",
	"poshmark seo keywords",
	"ebay listing optimization",
	"reseller inventory management",
	"vintage clothing sourcing",
	"online reselling profit margins",
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/listgenius/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("LISTGENIUS")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.metrics_port", 9091)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("kafka.client_id", "listgenius-autoblog")
	viper.SetDefault("kafka.run_topic", "listgenius.autoblog.runs")
	viper.SetDefault("kafka.run_dlq_topic", "listgenius.autoblog.runs.dlq")
	viper.SetDefault("kafka.run_group", "listgenius-autoblog-runners")
	viper.SetDefault("kafka.event_topic", "listgenius.autoblog.events")
	viper.SetDefault("kafka.event_dlq_topic", "listgenius.autoblog.events.dlq")
	viper.SetDefault("autoblog.timezone", "America/New_York")
	viper.SetDefault("autoblog.max_revision_attempts", 3)
	viper.SetDefault("autoblog.stage_timeout", "60s")
	viper.SetDefault("autoblog.trending_limit", 20)
	viper.SetDefault("autoblog.fallback_keywords", DefaultFallbackKeywords)
	viper.SetDefault("autoblog.default_category", "reselling")
	viper.SetDefault("autoblog.schedule_interval", "1h")
	viper.SetDefault("autoblog.lock_ttl", "10m")
	viper.SetDefault("autoblog.outbox_poll_interval", "5s")
	viper.SetDefault("autoblog.outbox_batch_size", 100)
	viper.SetDefault("collaborators.request_timeout", "30s")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
