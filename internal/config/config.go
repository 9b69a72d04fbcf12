// Package config loads service configuration from config files and
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/armada-suites/service-booking/internal/platform/database"
)

type Config struct {
	Server   ServerConfig
	Database database.PostgresConfig
	Kafka    KafkaConfig
	Stripe   StripeConfig
	MTN      MTNConfig
	Airtel   AirtelConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port        int
	Environment string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type MTNConfig struct {
	BaseURL           string
	APIKey            string
	UserID            string
	SubscriptionKey   string
	TargetEnvironment string
}

type AirtelConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PartnerID    string
}

type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// Load reads configuration from config.yaml (when present) and the
// environment. Environment variables win, with dots mapped to
// underscores (server.port becomes SERVER_PORT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetInt("server.port"),
			Environment: v.GetString("server.environment"),
		},
		Database: database.PostgresConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
		},
		MTN: MTNConfig{
			BaseURL:           v.GetString("mtn.base_url"),
			APIKey:            v.GetString("mtn.api_key"),
			UserID:            v.GetString("mtn.user_id"),
			SubscriptionKey:   v.GetString("mtn.subscription_key"),
			TargetEnvironment: v.GetString("mtn.target_environment"),
		},
		Airtel: AirtelConfig{
			BaseURL:      v.GetString("airtel.base_url"),
			ClientID:     v.GetString("airtel.client_id"),
			ClientSecret: v.GetString("airtel.client_secret"),
			PartnerID:    v.GetString("airtel.partner_id"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			AccessTTL: v.GetDuration("jwt.access_ttl"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "armada_booking")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "service-booking")

	v.SetDefault("mtn.base_url", "https://sandbox.momodeveloper.mtn.com")
	v.SetDefault("mtn.target_environment", "sandbox")
	v.SetDefault("airtel.base_url", "https://openapiuat.airtel.africa")

	v.SetDefault("jwt.access_ttl", 24*time.Hour)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.Environment == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.webhook_secret is required in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
