package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/weather"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*OpenMeteoProvider, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenMeteoProvider(srv.Client(), WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	return p, &hits
}

func TestOpenMeteoFetchHourly(t *testing.T) {
	var query map[string]string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"latitude": 53.1,
			"hourly": {
				"time": ["2024-06-01T00:00", "2024-06-01T01:00"],
				"temperature_2m": [11.5, null],
				"relative_humidity_2m": [80, 82],
				"precipitation": [0, 0.2],
				"windspeed_10m": [12.1, 14.0]
			}
		}`))
	})

	series, err := p.FetchHourly(context.Background(), weather.HourlyRequest{
		Latitude:     53.1,
		Longitude:    -4.05,
		ForecastDays: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "53.1000", query["latitude"])
	assert.Equal(t, "-4.0500", query["longitude"])
	assert.Equal(t, "2", query["forecast_days"])
	assert.Equal(t, "UTC", query["timezone"])
	assert.Equal(t, "temperature_2m,relative_humidity_2m,precipitation,windspeed_10m", query["hourly"])
	assert.NotContains(t, query, "start_date")

	require.Len(t, series.Time, 2)
	assert.Equal(t, 11.5, *series.Temperature[0])
	assert.Nil(t, series.Temperature[1])
	assert.Equal(t, 0.2, *series.Precipitation[1])
}

func TestOpenMeteoDateWindow(t *testing.T) {
	var query http.Header
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		query = http.Header(r.URL.Query())
		_, _ = w.Write([]byte(`{"hourly":{"time":[]}}`))
	})

	_, err := p.FetchHourly(context.Background(), weather.HourlyRequest{
		Latitude: 1, Longitude: 2, StartDate: "2024-06-01", EndDate: "2024-06-04", ForecastDays: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01"}, query["start_date"])
	assert.Equal(t, []string{"2024-06-04"}, query["end_date"])
	assert.Empty(t, query["forecast_days"])
}

func TestOpenMeteoServerErrorIsRetriedThenUpstream(t *testing.T) {
	p, hits := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.FetchHourly(context.Background(), weather.HourlyRequest{Latitude: 1, Longitude: 2, ForecastDays: 2})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamForecast))
	assert.Equal(t, int32(fastBackoff.MaxRetries+1), hits.Load())
}

func TestOpenMeteoClientErrorIsNotRetried(t *testing.T) {
	p, hits := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range"}`))
	})

	_, err := p.FetchHourly(context.Background(), weather.HourlyRequest{Latitude: 1, Longitude: 2})
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamForecast))
	assert.Equal(t, int32(1), hits.Load())
}

func TestOpenMeteoMalformedBody(t *testing.T) {
	cases := map[string]string{
		"not json":  `<html>oops</html>`,
		"no hourly": `{"latitude": 1}`,
		"bad types": `{"hourly":{"time":"yesterday"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := p.FetchHourly(context.Background(), weather.HourlyRequest{Latitude: 1, Longitude: 2})
			assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamMalformed))
		})
	}
}

func TestOpenMeteoHonoursContext(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	p.httpCfg.Backoff = BackoffConfig{MaxRetries: 5, InitialInterval: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := p.FetchHourly(ctx, weather.HourlyRequest{Latitude: 1, Longitude: 2})
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamForecast))
	assert.Less(t, time.Since(started), time.Second)
}
