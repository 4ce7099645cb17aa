// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	StoreDriver      string        `mapstructure:"STORE_DRIVER"`
	MongoURI         string        `mapstructure:"MONGO_URI"`
	MongoDatabase    string        `mapstructure:"MONGO_DATABASE"`
	ConnectTimeout   time.Duration `mapstructure:"MONGO_CONNECT_TIMEOUT"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	JWTExpires       time.Duration `mapstructure:"JWT_EXPIRES"`
	CookieExpireDays int           `mapstructure:"COOKIE_EXPIRE"`
	CookieSecure     bool          `mapstructure:"COOKIE_SECURE"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	TextbeltAPIKey   string        `mapstructure:"TEXTBELT_API_KEY"`
	TextbeltURL      string        `mapstructure:"TEXTBELT_URL"`
	SMSTimeout       time.Duration `mapstructure:"SMS_TIMEOUT"`
	AvatarBucket     string        `mapstructure:"AVATAR_BUCKET"`
	PublicBaseURL    string        `mapstructure:"PUBLIC_BASE_URL"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout  time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "MONGO_URI", "MONGO_DATABASE", "MONGO_CONNECT_TIMEOUT",
	"JWT_SECRET", "JWT_EXPIRES", "COOKIE_EXPIRE", "COOKIE_SECURE", "CORS_ORIGINS",
	"TEXTBELT_API_KEY", "TEXTBELT_URL", "SMS_TIMEOUT", "AVATAR_BUCKET", "PUBLIC_BASE_URL",
	"REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// Load reads .env (if present) into the process environment and then builds
// the Config from environment variables and defaults. It does not validate.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing file is fine; real deployments set the environment directly.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "4000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_DATABASE", "hospital")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")
	v.SetDefault("JWT_EXPIRES", "168h")
	v.SetDefault("COOKIE_EXPIRE", 7)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174")
	v.SetDefault("SMS_TIMEOUT", "5s")
	v.SetDefault("AVATAR_BUCKET", "avatars")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := cfg.CORSOrigins
	if len(origins) == 1 {
		origins = strings.Split(origins[0], ",")
	}
	var cleaned []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	cfg.CORSOrigins = cleaned
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CookieMaxAge is the session cookie lifetime.
func (c *Config) CookieMaxAge() time.Duration {
	return time.Duration(c.CookieExpireDays) * 24 * time.Hour
}

// AvatarBaseURL is the prefix of public avatar links.
func (c *Config) AvatarBaseURL() string {
	return c.PublicBaseURL + "/api/v1/user/doctor/avatar"
}

// Validate checks that the configuration is usable before the server starts.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER is \"mongo\""))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required when STORE_DRIVER is \"mongo\""))
		}
	case DriverMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_DRIVER \"memory\" is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMongo, DriverMemory, c.StoreDriver))
	}
	if c.JWTExpires <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES must be positive, got %s", c.JWTExpires))
	}
	if c.CookieExpireDays <= 0 {
		errs = append(errs, fmt.Errorf("COOKIE_EXPIRE must be a positive number of days, got %d", c.CookieExpireDays))
	}
	if len(c.CORSOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ORIGINS must list at least one origin"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	if c.IsProduction() && !c.CookieSecure {
		errs = append(errs, errors.New("COOKIE_SECURE must be true in production"))
	}
	return errors.Join(errs...)
}
