package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type AppConfig struct {
	Port     string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`

	// Datasets, loaded once at startup.
	CragDataPath    string `envconfig:"CRAG_DATA_PATH" default:"data/crag_df.csv" validate:"required"`
	WeatherDataPath string `envconfig:"WEATHER_DATA_PATH" default:"data/cleaned_weather_df.csv" validate:"required"`

	// Forecast API.
	ForecastBaseURL    string        `envconfig:"FORECAST_BASE_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"required,url"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT" default:"8s" validate:"gt=0"`
	WeatherCallTimeout time.Duration `envconfig:"WEATHER_CALL_TIMEOUT" default:"10s" validate:"gt=0"`

	// Weather cache.
	WeatherCacheTTL    time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"30m" validate:"gt=0"`
	CacheBackend       string        `envconfig:"CACHE_BACKEND" default:"memory" validate:"oneof=memory redis"`
	RedisAddr          string        `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required_if=CacheBackend redis"`
	RedisPassword      string        `envconfig:"REDIS_PASSWORD"`
	RedisDB            int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	CacheSweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"5m" validate:"gt=0"`

	// List view paging.
	DefaultPerPage int `envconfig:"DEFAULT_PER_PAGE" default:"10" validate:"gte=1,ltefield=MaxPerPage"`
	MaxPerPage     int `envconfig:"MAX_PER_PAGE" default:"100" validate:"gte=1"`

	// Detail view neighbours.
	NearbyRadiusKm float64 `envconfig:"NEARBY_RADIUS_KM" default:"25" validate:"gt=0"`
	NearbyLimit    int     `envconfig:"NEARBY_LIMIT" default:"5" validate:"gte=0"`
}

// Load reads configuration from a .env file, when present, and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv binds and validates the process environment without touching .env.
func FromEnv() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
