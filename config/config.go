package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/erain9/limitbook/pkg/db/queue"
	"github.com/erain9/limitbook/pkg/marketdata"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"server"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		BrokerAddr    string `yaml:"broker_addr"`
		ReportsTopic  string `yaml:"reports_topic"`
		CommandsTopic string `yaml:"commands_topic"`
	} `yaml:"kafka"`

	MarketData struct {
		SnapshotIntervalMs int `yaml:"snapshot_interval_ms"`
		SnapshotTTLSec     int `yaml:"snapshot_ttl_sec"`
	} `yaml:"marketdata"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()

	// Create default configuration
	config := &Config{}
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat
	config.Redis.Addr = "localhost:6379"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.ReportsTopic = "execution-reports"
	config.Kafka.CommandsTopic = "order-commands"
	config.MarketData.SnapshotIntervalMs = 250
	config.MarketData.SnapshotTTLSec = 30

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		log.Printf("Loaded configuration from %s", *configFile)
	}

	// Push broker settings into the packages that own the connections.
	queue.SetBrokerList(config.Kafka.BrokerAddr)
	queue.SetTopic(config.Kafka.ReportsTopic)
	marketdata.SetDefaultRedisOptions(&marketdata.RedisOptions{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	return config, nil
}
