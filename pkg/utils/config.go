package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	OTP      OTPConfig
	Gateway  GatewayConfig
	Lock     LockConfig
	Redis    RedisConfig
	Events   EventsConfig
	Secrets  SecretsConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Driver       string // postgres | memory
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	MaxConns     int32
	Migrate      bool
	TxMaxRetries int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type OTPConfig struct {
	ExpiryMinutes int
	Length        int
	LogCode       bool // write issued codes to the log; never enable outside development
}

type GatewayConfig struct {
	Driver           string // razorpay | fake
	KeyID            string
	KeySecret        string
	Currency         string
	Timeout          time.Duration
	OrderReuseWindow time.Duration
}

type LockConfig struct {
	Driver string // redis | memory
	TTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EventsConfig struct {
	Broker           string // log | kafka | rabbitmq
	KafkaBrokers     []string
	KafkaTopic       string
	RabbitURL        string
	RabbitExchange   string
	RelayInterval    time.Duration
	RelayBatchSize   int
	RelayMaxAttempts int
}

// SecretsConfig names the GCP project short sm:// references resolve against.
type SecretsConfig struct {
	Project string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "service-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_MIGRATE", true)
	viper.SetDefault("TX_MAX_RETRIES", 3)

	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("OTP_EXPIRY_MINUTES", 10)
	viper.SetDefault("OTP_LENGTH", 6)
	viper.SetDefault("OTP_LOG_CODE", false)

	viper.SetDefault("GATEWAY_DRIVER", "razorpay")
	viper.SetDefault("GATEWAY_CURRENCY", "INR")
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("ORDER_REUSE_WINDOW", "15m")

	viper.SetDefault("LOCK_DRIVER", "memory")
	viper.SetDefault("LOCK_TTL", "30s")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("EVENTS_BROKER", "log")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_TOPIC", "service-booking.events")
	viper.SetDefault("RABBITMQ_EXCHANGE", "service-booking.events")
	viper.SetDefault("RELAY_INTERVAL", "2s")
	viper.SetDefault("RELAY_BATCH_SIZE", 50)
	viper.SetDefault("RELAY_MAX_ATTEMPTS", 10)

	// .env is optional; plain environment variables are enough in containers
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Driver:       viper.GetString("DB_DRIVER"),
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			Name:         viper.GetString("DB_NAME"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASS"),
			MaxConns:     viper.GetInt32("DB_MAX_CONNS"),
			Migrate:      viper.GetBool("DB_MIGRATE"),
			TxMaxRetries: viper.GetInt("TX_MAX_RETRIES"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		OTP: OTPConfig{
			ExpiryMinutes: viper.GetInt("OTP_EXPIRY_MINUTES"),
			Length:        viper.GetInt("OTP_LENGTH"),
			LogCode:       viper.GetBool("OTP_LOG_CODE"),
		},
		Gateway: GatewayConfig{
			Driver:           viper.GetString("GATEWAY_DRIVER"),
			KeyID:            viper.GetString("GATEWAY_KEY_ID"),
			KeySecret:        viper.GetString("GATEWAY_KEY_SECRET"),
			Currency:         viper.GetString("GATEWAY_CURRENCY"),
			Timeout:          viper.GetDuration("GATEWAY_TIMEOUT"),
			OrderReuseWindow: viper.GetDuration("ORDER_REUSE_WINDOW"),
		},
		Lock: LockConfig{
			Driver: viper.GetString("LOCK_DRIVER"),
			TTL:    viper.GetDuration("LOCK_TTL"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Events: EventsConfig{
			Broker:           viper.GetString("EVENTS_BROKER"),
			KafkaBrokers:     splitList(viper.GetString("KAFKA_BROKERS")),
			KafkaTopic:       viper.GetString("KAFKA_TOPIC"),
			RabbitURL:        viper.GetString("RABBITMQ_URL"),
			RabbitExchange:   viper.GetString("RABBITMQ_EXCHANGE"),
			RelayInterval:    viper.GetDuration("RELAY_INTERVAL"),
			RelayBatchSize:   viper.GetInt("RELAY_BATCH_SIZE"),
			RelayMaxAttempts: viper.GetInt("RELAY_MAX_ATTEMPTS"),
		},
		Secrets: SecretsConfig{
			Project: viper.GetString("SECRETS_PROJECT"),
		},
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
