// Package config loads the service configuration from the environment.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the counter-store connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds event-bus settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// JWTConfig holds token validation settings.
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds throttle settings for the write-heavy endpoints.
type RateLimitConfig struct {
	ReserveMax    int64
	ReserveWindow time.Duration
	QuoteMax      int64
	QuoteWindow   time.Duration
	LocalRPS      float64
	LocalBurst    int
}

// BookingConfig holds the booking engine's policy knobs.
type BookingConfig struct {
	TaxRate        float64
	HoldTTL        time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port      string
	AppEnv    string
	DB        DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Booking   BookingConfig
}

// Load reads configuration from the environment, with a best-effort .env
// bootstrap for development.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service_port", ":8083")
	v.SetDefault("app_env", "development")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "stashspot_booking")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "stashspot-")

	v.SetDefault("jwt_secret", "dev-secret-change-me")

	v.SetDefault("ratelimit_reserve_max", 10)
	v.SetDefault("ratelimit_reserve_window", "60s")
	v.SetDefault("ratelimit_quote_max", 60)
	v.SetDefault("ratelimit_quote_window", "60s")
	v.SetDefault("ratelimit_local_rps", 20.0)
	v.SetDefault("ratelimit_local_burst", 40)

	v.SetDefault("tax_rate", 0.08)
	v.SetDefault("hold_ttl", "15m")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("sweep_batch_size", 100)

	return &ServiceConfig{
		Port:   v.GetString("service_port"),
		AppEnv: v.GetString("app_env"),
		DB: DatabaseConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(v.GetString("kafka_brokers"), ","),
			GroupPrefix: v.GetString("kafka_group_prefix"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
		},
		RateLimit: RateLimitConfig{
			ReserveMax:    v.GetInt64("ratelimit_reserve_max"),
			ReserveWindow: v.GetDuration("ratelimit_reserve_window"),
			QuoteMax:      v.GetInt64("ratelimit_quote_max"),
			QuoteWindow:   v.GetDuration("ratelimit_quote_window"),
			LocalRPS:      v.GetFloat64("ratelimit_local_rps"),
			LocalBurst:    v.GetInt("ratelimit_local_burst"),
		},
		Booking: BookingConfig{
			TaxRate:        v.GetFloat64("tax_rate"),
			HoldTTL:        v.GetDuration("hold_ttl"),
			SweepInterval:  v.GetDuration("sweep_interval"),
			SweepBatchSize: v.GetInt("sweep_batch_size"),
		},
	}, nil
}
