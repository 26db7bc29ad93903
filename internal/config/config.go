// Package config loads storefront settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fjod/go_storefront/internal/domain"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	HTTPPort           string        `yaml:"http_port"`
	GRPCPort           string        `yaml:"grpc_port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Pricing  PricingConfig  `yaml:"pricing"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type CatalogConfig struct {
	DBPath string `yaml:"db_path"`
}

type KafkaConfig struct {
	// Empty disables the outbox publisher and the cart reconciliation consumer.
	Brokers    []string `yaml:"brokers"`
	OrderTopic string   `yaml:"order_topic"`
	GroupID    string   `yaml:"group_id"`
}

type PricingConfig struct {
	FreeShippingThreshold string `yaml:"free_shipping_threshold"`
	FlatShippingFee       string `yaml:"flat_shipping_fee"`
	TaxRate               string `yaml:"tax_rate"`
}

// devJWTSecret signs tokens outside production when JWT_SECRET is unset.
const devJWTSecret = "storefront-dev-secret"

func Default() *Config {
	return &Config{
		AppEnv:             "dev",
		LogLevel:           "info",
		HTTPPort:           "8080",
		GRPCPort:           "9090",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		JWTSecret:          devJWTSecret,
		TokenTTL:           time.Hour,
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "storefront",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "storefront",
		},
		Catalog: CatalogConfig{
			DBPath: "./products.db",
		},
		Kafka: KafkaConfig{
			OrderTopic: "order-placed",
			GroupID:    "storefront-cart-reconciler",
		},
		Pricing: PricingConfig{
			FreeShippingThreshold: "1000",
			FlatShippingFee:       "50",
			TaxRate:               "0.18",
		},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB_NAME", c.Mongo.Database)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Postgres.Host = getEnv("DB_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnvInt("DB_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("DB_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("DB_PASSWORD", c.Postgres.Password)
	c.Postgres.DBName = getEnv("DB_NAME", c.Postgres.DBName)

	c.Catalog.DBPath = getEnv("CATALOG_DB_PATH", c.Catalog.DBPath)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Kafka.OrderTopic = getEnv("KAFKA_ORDER_TOPIC", c.Kafka.OrderTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Pricing.FreeShippingThreshold = getEnv("FREE_SHIPPING_THRESHOLD", c.Pricing.FreeShippingThreshold)
	c.Pricing.FlatShippingFee = getEnv("FLAT_SHIPPING_FEE", c.Pricing.FlatShippingFee)
	c.Pricing.TaxRate = getEnv("TAX_RATE", c.Pricing.TaxRate)
}

func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if _, err := c.PricingPolicy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

// PricingPolicy parses the pricing section.
func (c *Config) PricingPolicy() (domain.Pricing, error) {
	threshold, err := decimal.NewFromString(c.Pricing.FreeShippingThreshold)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("invalid free shipping threshold %q: %w", c.Pricing.FreeShippingThreshold, err)
	}
	fee, err := decimal.NewFromString(c.Pricing.FlatShippingFee)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("invalid flat shipping fee %q: %w", c.Pricing.FlatShippingFee, err)
	}
	rate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("invalid tax rate %q: %w", c.Pricing.TaxRate, err)
	}
	if threshold.IsNegative() || fee.IsNegative() || rate.IsNegative() {
		return domain.Pricing{}, fmt.Errorf("pricing values must not be negative")
	}
	return domain.Pricing{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		TaxRate:               rate,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
