package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Redis       RedisConfig
	Kafka       KafkaConfig
	Graceful    GracefulConfig
}

// RedisConfig controls the order projection cache. An empty URL disables it.
type RedisConfig struct {
	URL string        `usage:"Redis URL for the order cache (ORDERS_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	TTL time.Duration `default:"10m" usage:"Order projection cache TTL" flag:"redis-ttl"`
}

// KafkaConfig controls the outbox publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers" flag:"kafka-brokers"`
	Topic        string        `default:"order-events" usage:"Topic for order events" flag:"kafka-topic"`
	PollInterval time.Duration `default:"1s" usage:"Outbox poll interval" flag:"outbox-poll-interval"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

// applyPlatformDefaults maps the unprefixed variables set by hosting
// platforms (DATABASE_URL, REDIS_URL, PORT, KAFKA_BROKERS).
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = getenv("REDIS_URL")
	}
	if len(c.Kafka.Brokers) == 0 {
		if v := getenv("KAFKA_BROKERS"); v != "" {
			c.Kafka.Brokers = strings.Split(v, ",")
		}
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
