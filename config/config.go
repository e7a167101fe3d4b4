package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds everything the API process reads from the environment.
type Config struct {
	App   AppConfig
	DB    DBConfig
	JWT   JWTConfig
	Email EmailConfig
}

type AppConfig struct {
	Port           string        `envconfig:"PORT" default:"5000"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"*"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	Driver       string `envconfig:"DB_DRIVER" default:"mongo"`
	URI          string `envconfig:"MONGO_URI" default:"mongodb://127.0.0.1:27017"`
	Name         string `envconfig:"MONGO_DB" default:"ecommerce"`
	Transactions bool   `envconfig:"MONGO_TRANSACTIONS" default:"false"`
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" default:"change_this_secret"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type EmailConfig struct {
	PostmarkToken string `envconfig:"POSTMARK_API_TOKEN"`
	Sender        string `envconfig:"EMAIL_SENDER"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	switch c.DB.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.App.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	return nil
}

// EmailEnabled reports whether order confirmations can be sent.
func (e EmailConfig) EmailEnabled() bool {
	return e.PostmarkToken != "" && e.Sender != ""
}
