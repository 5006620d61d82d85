package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/weather-lights/internal/common"
	"github.com/i474232898/weather-lights/internal/store"
)

type AppConfig struct {
	// StationList is the raw STATIONS value; Stations is its parsed form, in
	// strip pixel order.
	StationList string   `envconfig:"STATIONS" default:"EGKB,EGHI,EGGP,EGGD"`
	Stations    []string `ignored:"true" validate:"min=1,dive,alphanum,min=3,max=5"`

	// PrepopulateRegion warms the cache at start-up when set (e.g. "gb").
	PrepopulateRegion string `envconfig:"PREPOPULATE_REGION" validate:"omitempty,alpha"`

	// Cache expiry policy.
	MissingTimeout  time.Duration `envconfig:"CACHE_MISSING_TIMEOUT" default:"5m" validate:"gt=0"`
	MinReplacement  time.Duration `envconfig:"CACHE_MIN_REPLACEMENT" default:"30m" validate:"gt=0"`
	RefreshInterval time.Duration `envconfig:"CACHE_REFRESH_INTERVAL" default:"2m" validate:"gt=0"`

	// PollInterval controls how often the strip is refreshed from the cache.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1m" validate:"gt=0"`

	// Outbound ADDS calls.
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s" validate:"gt=0"`
	ADDSBaseURL    string        `envconfig:"ADDS_BASE_URL" validate:"omitempty,url"`
	ADDSMaxRetries int           `envconfig:"ADDS_MAX_RETRIES" default:"0" validate:"min=0,max=5"`

	// LED strip.
	LEDDriver     string `envconfig:"LED_DRIVER" default:"sim" validate:"oneof=sim ws281x"`
	LEDSPIPort    string `envconfig:"LED_SPI_PORT"`
	LEDBrightness int    `envconfig:"LED_BRIGHTNESS" default:"255" validate:"min=0,max=255"`

	Port string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.Stations = common.ParseStations(cfg.StationList)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// CacheConfig returns the cache expiry policy.
func (c *AppConfig) CacheConfig() store.Config {
	return store.Config{
		MissingTimeout:  c.MissingTimeout,
		MinReplacement:  c.MinReplacement,
		RefreshInterval: c.RefreshInterval,
	}
}
