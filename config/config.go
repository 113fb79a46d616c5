package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	StorageFirestore = "firestore"
	StorageMemory    = "memory"
)

type Config struct {
	App struct {
		Env      string `yaml:"env"`
		BaseURL  string `yaml:"base_url"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`
	Server struct {
		Port               string        `yaml:"port"`
		RequestTimeout     time.Duration `yaml:"request_timeout"`
		RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
		TrustedProxies     []string      `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Firebase struct {
		CredentialsPath string `yaml:"credentials_path"`
		ProjectID       string `yaml:"project_id"`
	} `yaml:"firebase"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"-"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Resend struct {
		APIKey string `yaml:"-"`
		From   string `yaml:"from"`
	} `yaml:"resend"`
	Twilio struct {
		AccountSID  string `yaml:"-"`
		AuthToken   string `yaml:"-"`
		PhoneNumber string `yaml:"-"`
	} `yaml:"twilio"`
	Admin struct {
		Email string `yaml:"email"`
	} `yaml:"admin"`
	Janitor struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"janitor"`
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) TwilioEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.PhoneNumber != ""
}

func (c *Config) ResendEnabled() bool {
	return c.Resend.APIKey != "" && c.Resend.From != ""
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Resend.APIKey = os.Getenv("RESEND_API_KEY")
	cfg.Twilio.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.Twilio.PhoneNumber = os.Getenv("TWILIO_PHONE_NUMBER")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	overrides := map[string]*string{
		"APP_ENV":                   &cfg.App.Env,
		"APP_BASE_URL":              &cfg.App.BaseURL,
		"PORT":                      &cfg.Server.Port,
		"STORAGE_DRIVER":            &cfg.Storage.Driver,
		"FIREBASE_CREDENTIALS_PATH": &cfg.Firebase.CredentialsPath,
		"FIREBASE_PROJECT_ID":       &cfg.Firebase.ProjectID,
		"REDIS_ADDR":                &cfg.Redis.Addr,
		"RESEND_FROM":               &cfg.Resend.From,
		"ADMIN_EMAIL":               &cfg.Admin.Email,
	}
	for key, dst := range overrides {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			*dst = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "production"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:3000"
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if !strings.HasPrefix(cfg.Server.Port, ":") && !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimitPerMinute <= 0 {
		cfg.Server.RateLimitPerMinute = 30
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageFirestore
	}
	if cfg.Janitor.Interval <= 0 {
		cfg.Janitor.Interval = 10 * time.Minute
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageFirestore:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("missing firebase.credentials_path (or FIREBASE_CREDENTIALS_PATH env)")
		}
	case StorageMemory:
		if !c.IsDevelopment() {
			return fmt.Errorf("storage driver %q is only allowed when app.env is development", StorageMemory)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if !c.IsDevelopment() && !c.TwilioEnabled() {
		return fmt.Errorf("missing Twilio credentials in env")
	}
	if !c.IsDevelopment() && !c.ResendEnabled() {
		return fmt.Errorf("missing RESEND_API_KEY env or resend.from")
	}
	return nil
}
