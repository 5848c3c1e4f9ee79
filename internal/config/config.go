package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Token        string  `env:"TOKEN"`
	AllowedUsers []int64 `env:"ALLOWED_USERS"`
	DBPath       string  `env:"DB_PATH"            envDefault:"db.sqlite"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL"   envDefault:"gpt-4o-mini"`

	OccurrenceAPIURL string        `env:"OCCURRENCE_API_URL" envDefault:"https://api.gbif.org/v1/occurrence/search"`
	InstitutionCode  string        `env:"INSTITUTION_CODE"   envDefault:"NHMUK"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT"       envDefault:"30s"`

	HTTPAddr         string        `env:"HTTP_ADDR"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.HTTPAddr = strings.TrimSpace(cfg.HTTPAddr)
	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Token == "" && c.HTTPAddr == "" {
		return errors.New("either TOKEN or HTTP_ADDR must be set")
	}

	if strings.TrimSpace(c.OccurrenceAPIURL) == "" {
		return errors.New("OCCURRENCE_API_URL is empty")
	}

	if strings.TrimSpace(c.InstitutionCode) == "" {
		return errors.New("INSTITUTION_CODE is empty")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}

	if c.HistoryRetention <= 0 {
		return fmt.Errorf("HISTORY_RETENTION must be positive, got %s", c.HistoryRetention)
	}

	return nil
}
