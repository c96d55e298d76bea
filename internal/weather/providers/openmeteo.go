package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/logger"
	"github.com/i474232898/crag-cast/internal/metrics"
	"github.com/i474232898/crag-cast/internal/weather"
)

// DefaultOpenMeteoURL is the public forecast endpoint. It needs no API key.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

var hourlyFields = []string{"temperature_2m", "relative_humidity_2m", "precipitation", "windspeed_10m"}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// OpenMeteoOption customizes an OpenMeteoProvider.
type OpenMeteoOption func(*OpenMeteoProvider)

// WithBaseURL points the provider at another forecast endpoint.
func WithBaseURL(u string) OpenMeteoOption {
	return func(p *OpenMeteoProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "?")
		}
	}
}

// WithBackoff replaces the retry policy.
func WithBackoff(b BackoffConfig) OpenMeteoOption {
	return func(p *OpenMeteoProvider) { p.httpCfg.Backoff = b }
}

func NewOpenMeteoProvider(client *http.Client, opts ...OpenMeteoOption) *OpenMeteoProvider {
	p := &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: DefaultOpenMeteoURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			// a 4xx is our fault, not an outage
			var perm permanentError
			return err == nil || errors.As(err, &perm)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logger.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchHourly requests the hourly series for one coordinate pair.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, req weather.HourlyRequest) (weather.HourlySeries, error) {
	started := time.Now()

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := p.baseURL + "?" + encodeQuery(req).Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		outcome := "error"
		if errors.Is(err, errCircuitOpen) {
			outcome = "circuit_open"
		}
		metrics.UpstreamCall(p.name, outcome, time.Since(started))
		return weather.HourlySeries{}, apperror.Upstream("forecast service unavailable", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly *struct {
			Time          []string   `json:"time"`
			Temperature   []*float64 `json:"temperature_2m"`
			Humidity      []*float64 `json:"relative_humidity_2m"`
			Precipitation []*float64 `json:"precipitation"`
			WindSpeed     []*float64 `json:"windspeed_10m"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.UpstreamCall(p.name, "malformed", time.Since(started))
		return weather.HourlySeries{}, apperror.Malformed(fmt.Sprintf("decode forecast response: %v", err))
	}
	if payload.Hourly == nil {
		metrics.UpstreamCall(p.name, "malformed", time.Since(started))
		return weather.HourlySeries{}, apperror.Malformed("forecast response has no hourly block")
	}

	metrics.UpstreamCall(p.name, "ok", time.Since(started))

	return weather.HourlySeries{
		Time:          payload.Hourly.Time,
		Temperature:   payload.Hourly.Temperature,
		Humidity:      payload.Hourly.Humidity,
		Precipitation: payload.Hourly.Precipitation,
		WindSpeed:     payload.Hourly.WindSpeed,
	}, nil
}

func encodeQuery(req weather.HourlyRequest) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', 4, 64))
	values.Set("hourly", strings.Join(hourlyFields, ","))
	values.Set("timezone", "UTC")

	if req.StartDate != "" && req.EndDate != "" {
		values.Set("start_date", req.StartDate)
		values.Set("end_date", req.EndDate)
	} else if req.ForecastDays > 0 {
		values.Set("forecast_days", strconv.Itoa(req.ForecastDays))
	}
	return values
}
