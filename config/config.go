package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:":8080"`
	GrpcPort string `envconfig:"GRPC_PORT" default:":50051"` // health + reflection only
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	CatalogAPIURL      string        `envconfig:"CATALOG_API_URL"      default:"https://fakestoreapi.com"`
	CatalogTimeout     time.Duration `envconfig:"CATALOG_TIMEOUT"      default:"5s"`
	CatalogProductTTL  time.Duration `envconfig:"CATALOG_PRODUCT_TTL"  default:"5m"`
	CatalogCategoryTTL time.Duration `envconfig:"CATALOG_CATEGORY_TTL" default:"10m"`

	CartStoreBackend   string        `envconfig:"CART_STORE_BACKEND"   default:"memory"`
	CartPersistTimeout time.Duration `envconfig:"CART_PERSIST_TIMEOUT" default:"2s"`
	CartFileDir        string        `envconfig:"CART_FILE_DIR"        default:"./data/carts"`
	CartIdleTimeout    time.Duration `envconfig:"CART_IDLE_TIMEOUT"    default:"30m"`
	CartSweepInterval  time.Duration `envconfig:"CART_SWEEP_INTERVAL"  default:"1m"`
	SessionCookie      string        `envconfig:"SESSION_COOKIE"       default:"cart_session"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr    string        `envconfig:"REDIS_ADDR"     default:"localhost:6379"`
	RedisDB      int           `envconfig:"REDIS_DB"       default:"0"`
	RedisCartTTL time.Duration `envconfig:"REDIS_CART_TTL" default:"720h"`

	RabbitMQURI string `envconfig:"RABBITMQ_URI"`
	OrderQueue  string `envconfig:"ORDER_QUEUE" default:"orders"`
}

var (
	config Config
	once   sync.Once
)

// LoadConfig reads .env (if present) and the process environment once and
// returns the shared configuration. Invalid configuration is fatal.
func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		cfg, err := Process()
		if err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}
		config = *cfg

		logger.Infof("Configuration loaded: HTTP Port=%s, GRPC Port=%s, LogLevel=%s, CartStoreBackend=%s",
			config.HTTPPort, config.GrpcPort, config.LogLevel, config.CartStoreBackend)
		logger.Infof("Configuration loaded: Catalog API=%s", config.CatalogAPIURL)
	})
	return &config
}

// Process builds a Config from the environment without touching the
// package-level singleton.
func Process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.CartStoreBackend = strings.ToLower(strings.TrimSpace(c.CartStoreBackend))
	if c.CartStoreBackend == "" {
		c.CartStoreBackend = BackendMemory
	}
	switch c.CartStoreBackend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when CART_STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("invalid CART_STORE_BACKEND %q", c.CartStoreBackend)
	}
	if c.CatalogAPIURL == "" {
		return fmt.Errorf("CATALOG_API_URL cannot be empty")
	}
	if c.CartPersistTimeout <= 0 {
		return fmt.Errorf("CART_PERSIST_TIMEOUT must be positive")
	}
	if c.CartIdleTimeout <= 0 || c.CartSweepInterval <= 0 {
		return fmt.Errorf("CART_IDLE_TIMEOUT and CART_SWEEP_INTERVAL must be positive")
	}
	return nil
}
