package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App        AppConfig
	API        APIConfig
	Portfolio  PortfolioConfig
	Training   TrainingConfig
	Simulation SimulationConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Metrics    MetricsConfig
}

// General application configuration
type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
}

// Configuration for the API server
type APIConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Configuration for synthetic portfolio generation
type PortfolioConfig struct {
	Size int
	Seed int64
}

// Configuration for the PD model trainer
type TrainingConfig struct {
	LearningRate     float64
	Epochs           int
	InitialIntercept float64
	InitialBeta      float64
}

// Configuration for the Monte Carlo engine
type SimulationConfig struct {
	Iterations       int
	AssetCorrelation float64
	StressFactors    []float64
	Workers          int
}

// Configuration for Kafka result publishing
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	ResultsTopic string
	MaxRetries   int
}

// Configuration for the Redis result cache
type RedisConfig struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

// Configuration for Prometheus metrics
type MetricsConfig struct {
	Enabled bool
}

// Load reads the configuration from config/config.yaml plus CREDITRISK_*
// environment overrides. A missing file falls back to defaults.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("CREDITRISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "credit-risk-engine")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.log_level", "info")

	// API defaults
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.read_timeout", "10s")
	viper.SetDefault("api.write_timeout", "30s")
	viper.SetDefault("api.shutdown_timeout", "30s")

	// Portfolio defaults
	viper.SetDefault("portfolio.size", 1000)
	viper.SetDefault("portfolio.seed", 0)

	// Training defaults
	viper.SetDefault("training.learning_rate", 0.01)
	viper.SetDefault("training.epochs", 500)
	viper.SetDefault("training.initial_intercept", -1.0)
	viper.SetDefault("training.initial_beta", 0.5)

	// Simulation defaults
	viper.SetDefault("simulation.iterations", 10000)
	viper.SetDefault("simulation.asset_correlation", 0.2)
	viper.SetDefault("simulation.stress_factors", []float64{1.0, 2.5})
	viper.SetDefault("simulation.workers", 1)

	// Kafka defaults
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.results_topic", "creditrisk.results")
	viper.SetDefault("kafka.max_retries", 3)

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.ttl", "24h")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}
