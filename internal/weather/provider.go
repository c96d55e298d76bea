package weather

import (
	"context"
	"time"
)

// Provider abstracts the hourly forecast source (Open-Meteo).
type Provider interface {
	Name() string
	FetchHourly(ctx context.Context, req HourlyRequest) (HourlySeries, error)
}

// Cache is the contract the in-memory store and the Redis store satisfy.
// Values are opaque bytes; a miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
