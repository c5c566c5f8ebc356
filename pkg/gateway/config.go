package gateway

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the order-entry gateway
type Config struct {
	// Kafka settings
	KafkaBrokerAddr string
	CommandsTopic   string
	ConsumerGroupID string

	// Command handling
	RequestTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("KAFKA_BROKER_ADDR", "localhost:9092")
	v.SetDefault("COMMANDS_TOPIC", "order-commands")
	v.SetDefault("CONSUMER_GROUP_ID", "limitbook-gateway")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 5)

	v.AutomaticEnv()

	cfg := &Config{
		KafkaBrokerAddr: v.GetString("KAFKA_BROKER_ADDR"),
		CommandsTopic:   v.GetString("COMMANDS_TOPIC"),
		ConsumerGroupID: v.GetString("CONSUMER_GROUP_ID"),
		RequestTimeout:  time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.KafkaBrokerAddr == "" {
		return fmt.Errorf("KAFKA_BROKER_ADDR must not be empty")
	}
	if cfg.CommandsTopic == "" {
		return fmt.Errorf("COMMANDS_TOPIC must not be empty")
	}
	if cfg.ConsumerGroupID == "" {
		return fmt.Errorf("CONSUMER_GROUP_ID must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	return nil
}
