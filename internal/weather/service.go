package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/geo"
	"github.com/i474232898/crag-cast/internal/logger"
	"github.com/i474232898/crag-cast/internal/metrics"
)

const (
	// DefaultForecastDays is used when a caller does not ask for a window.
	DefaultForecastDays = 7
	// MaxForecastDays bounds the forecast window.
	MaxForecastDays = 7

	currentForecastDays = 2
	dateLayout          = "2006-01-02"
	hourLayout          = "2006-01-02T15"
)

// Service fetches live weather through a Provider and memoizes results in a Cache.
type Service struct {
	provider    Provider
	cache       Cache
	ttl         time.Duration
	callTimeout time.Duration
	now         func() time.Time
	group       singleflight.Group
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCallTimeout bounds every outbound fetch.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// NewService creates a new Service. cache may be nil to disable memoization.
func NewService(provider Provider, cache Cache, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		cache:       cache,
		ttl:         ttl,
		callTimeout: 10 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchCurrent returns the hourly sample closest to the current UTC hour.
func (s *Service) FetchCurrent(ctx context.Context, lat, lon float64) (Snapshot, error) {
	if err := checkCoordinates(lat, lon); err != nil {
		return Snapshot{}, err
	}
	joinKey := geo.JoinKey(lat, lon)
	now := s.now().UTC()
	key := fmt.Sprintf("current:%s:%s", now.Truncate(time.Hour).Format(hourLayout), joinKey)

	return cached(ctx, s, "current", key, func(ctx context.Context) (Snapshot, error) {
		series, err := s.fetch(ctx, HourlyRequest{
			Latitude:     geo.Round(lat),
			Longitude:    geo.Round(lon),
			ForecastDays: currentForecastDays,
		})
		if err != nil {
			return Snapshot{}, err
		}

		i, err := NearestHour(series, now)
		if err != nil {
			return Snapshot{}, err
		}

		return Snapshot{
			JoinKey:       joinKey,
			Timestamp:     series.Time[i],
			Temperature:   series.Temperature[i],
			Humidity:      series.Humidity[i],
			Precipitation: series.Precipitation[i],
			WindSpeed:     series.WindSpeed[i],
			Source:        SourceLive,
		}, nil
	})
}

// FetchForecast returns hourly entries from today (UTC) through days ahead.
func (s *Service) FetchForecast(ctx context.Context, lat, lon float64, days int) (Forecast, error) {
	if err := checkCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if days < 1 || days > MaxForecastDays {
		return nil, apperror.Validation(apperror.CodeValidationDays,
			fmt.Sprintf("days must be between 1 and %d", MaxForecastDays))
	}

	today := s.now().UTC()
	start := today.Format(dateLayout)
	end := today.AddDate(0, 0, days).Format(dateLayout)
	key := fmt.Sprintf("forecast:%d:%s:%s", days, start, geo.JoinKey(lat, lon))

	return cached(ctx, s, "forecast", key, func(ctx context.Context) (Forecast, error) {
		series, err := s.fetch(ctx, HourlyRequest{
			Latitude:  geo.Round(lat),
			Longitude: geo.Round(lon),
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			return nil, err
		}
		return Transpose(series)
	})
}

func (s *Service) fetch(ctx context.Context, req HourlyRequest) (HourlySeries, error) {
	series, err := s.provider.FetchHourly(ctx, req)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return HourlySeries{}, err
		}
		return HourlySeries{}, apperror.Upstream(fmt.Sprintf("%s request failed", s.provider.Name()), err)
	}
	return series, nil
}

// cached serves key from the cache or runs load once per key across
// concurrent callers and stores the result. Cache failures are logged and
// bypassed.
func cached[T any](ctx context.Context, s *Service, kind, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheResult(kind, "error")
			logger.WithFields(logger.Fields{"key": key, "error": err}).Warn("weather cache read failed")
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				metrics.CacheResult(kind, "hit")
				return v, nil
			}
			logger.WithFields(logger.Fields{"key": key}).Warn("discarding undecodable cache entry")
		}
		metrics.CacheResult(kind, "miss")
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// other callers may be waiting on this fetch, so it must outlive ctx
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()

		val, err := load(callCtx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if raw, err := json.Marshal(val); err == nil {
				if err := s.cache.Set(callCtx, key, raw, s.ttl); err != nil {
					logger.WithFields(logger.Fields{"key": key, "error": err}).Warn("weather cache write failed")
				}
			}
		}
		return val, nil
	})
	if err != nil {
		return zero, err
	}

	return v.(T), nil
}

// NearestHour returns the index of the sample whose timestamp is closest to
// now truncated to the hour (UTC). Ties resolve to the earliest index. The
// series must carry all hourly arrays, non-empty and of equal length.
func NearestHour(series HourlySeries, now time.Time) (int, error) {
	n := len(series.Time)
	if n == 0 {
		return 0, apperror.Malformed("hourly time array is missing or empty")
	}

	values := map[string][]*float64{
		"temperature_2m":       series.Temperature,
		"relative_humidity_2m": series.Humidity,
		"precipitation":        series.Precipitation,
		"windspeed_10m":        series.WindSpeed,
	}
	for name, arr := range values {
		if len(arr) == 0 {
			return 0, apperror.Malformed(fmt.Sprintf("hourly %s array is missing or empty", name))
		}
		if len(arr) != n {
			return 0, apperror.Malformed(fmt.Sprintf("hourly %s has %d values for %d timestamps", name, len(arr), n))
		}
	}

	target := now.UTC().Truncate(time.Hour)
	best := -1
	var bestDelta time.Duration

	for i, raw := range series.Time {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			continue
		}
		delta := ts.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		if best < 0 || delta < bestDelta {
			best = i
			bestDelta = delta
		}
	}

	if best < 0 {
		return 0, apperror.Malformed("no parseable hourly timestamps")
	}
	return best, nil
}

// Transpose turns the parallel hourly arrays into one entry per index. Missing
// value arrays read as nulls; iteration stops at the shortest array present.
func Transpose(series HourlySeries) (Forecast, error) {
	n := len(series.Time)
	if n == 0 {
		return nil, apperror.Malformed("hourly time array is missing or empty")
	}

	for _, arr := range [][]*float64{series.Temperature, series.Humidity, series.Precipitation, series.WindSpeed} {
		if len(arr) > 0 && len(arr) < n {
			n = len(arr)
		}
	}

	forecast := make(Forecast, 0, n)
	for i := 0; i < n; i++ {
		forecast = append(forecast, ForecastEntry{
			Timestamp:     series.Time[i],
			Temperature:   at(series.Temperature, i),
			Humidity:      at(series.Humidity, i),
			Precipitation: at(series.Precipitation, i),
			WindSpeed:     at(series.WindSpeed, i),
		})
	}
	return forecast, nil
}

// ParseTimestamp accepts Open-Meteo's "2006-01-02T15:04" (UTC) and RFC 3339.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339} {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func at(arr []*float64, i int) *float64 {
	if i < len(arr) {
		return arr[i]
	}
	return nil
}

func checkCoordinates(lat, lon float64) error {
	if !geo.ValidLatLon(lat, lon) {
		return apperror.Validation(apperror.CodeValidationCoordinates,
			fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	return nil
}
