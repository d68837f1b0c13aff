package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	Env     string `mapstructure:"ENV"`
	AppName string `mapstructure:"APP_NAME"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DBDSN vacío => repos in-memory (modo dev).
	DBDSN string `mapstructure:"DB_DSN"`

	PetServiceURL       string `mapstructure:"PET_SERVICE_URL"`
	PetServiceAPIKey    string `mapstructure:"PET_SERVICE_API_KEY"`
	PetServiceTimeoutMS int    `mapstructure:"PET_SERVICE_TIMEOUT_MS"`

	// JWTSecret vacío => sin verifier (modo dev con X-Debug-User-ID).
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "pet-health-records")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("PET_SERVICE_TIMEOUT_MS", 5000)

	// Bind explícito para que Unmarshal levante las env vars.
	for _, key := range []string{
		"PORT", "ENV", "APP_NAME",
		"LOG_LEVEL", "LOG_FORMAT",
		"DB_DSN",
		"PET_SERVICE_URL", "PET_SERVICE_API_KEY", "PET_SERVICE_TIMEOUT_MS",
		"JWT_SECRET",
	} {
		_ = v.BindEnv(key)
	}

	// .env es opcional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsProduction() && cfg.PetServiceURL == "" {
		return nil, fmt.Errorf("PET_SERVICE_URL is required in production")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) PetServiceTimeout() time.Duration {
	return time.Duration(c.PetServiceTimeoutMS) * time.Millisecond
}
