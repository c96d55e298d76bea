package weather

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/crag-cast/internal/apperror"
)

type fakeProvider struct {
	calls  atomic.Int32
	series HourlySeries
	err    error
	last   HourlyRequest
	mu     sync.Mutex
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchHourly(_ context.Context, req HourlyRequest) (HourlySeries, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	return f.series, f.err
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func f64(v float64) *float64 { return &v }

func fourHours() HourlySeries {
	return HourlySeries{
		Time:          []string{"2024-06-01T10:00", "2024-06-01T11:00", "2024-06-01T13:00", "2024-06-01T15:00"},
		Temperature:   []*float64{f64(10), f64(11), f64(13), f64(15)},
		Humidity:      []*float64{f64(60), f64(61), f64(63), f64(65)},
		Precipitation: []*float64{f64(0), f64(0.1), f64(0), f64(0)},
		WindSpeed:     []*float64{f64(5), f64(6), f64(7), f64(8)},
	}
}

var noon = time.Date(2024, 6, 1, 12, 34, 0, 0, time.UTC)

func TestNearestHourPicksEarliestOnTie(t *testing.T) {
	// 11:00 and 13:00 are both one hour from 12:00.
	i, err := NearestHour(fourHours(), noon)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestNearestHourSkipsUnparseableTimestamps(t *testing.T) {
	s := fourHours()
	s.Time[1] = "garbage"
	i, err := NearestHour(s, noon)
	require.NoError(t, err)
	assert.Equal(t, 2, i)
}

func TestNearestHourRejectsIncompleteSeries(t *testing.T) {
	cases := map[string]func(*HourlySeries){
		"no time":           func(s *HourlySeries) { s.Time = nil },
		"no humidity":       func(s *HourlySeries) { s.Humidity = nil },
		"short wind":        func(s *HourlySeries) { s.WindSpeed = s.WindSpeed[:2] },
		"all bad stamps":    func(s *HourlySeries) { s.Time = []string{"a", "b", "c", "d"} },
		"empty temperature": func(s *HourlySeries) { s.Temperature = []*float64{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := fourHours()
			mutate(&s)
			_, err := NearestHour(s, noon)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamMalformed))
		})
	}
}

func TestTranspose(t *testing.T) {
	entries, err := Transpose(fourHours())
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "2024-06-01T13:00", entries[2].Timestamp)
	assert.Equal(t, 13.0, *entries[2].Temperature)
	assert.Equal(t, 0.1, *entries[1].Precipitation)
}

func TestTransposeStopsAtShortestArray(t *testing.T) {
	s := fourHours()
	s.Humidity = s.Humidity[:3]
	s.WindSpeed = nil

	entries, err := Transpose(s)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Nil(t, e.WindSpeed)
	}
}

func TestTransposeEmptyTimeIsMalformed(t *testing.T) {
	_, err := Transpose(HourlySeries{Temperature: []*float64{f64(1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamMalformed))
}

func TestFetchCurrent(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	svc := NewService(p, newMapCache(), time.Minute, WithClock(func() time.Time { return noon }))

	snap, err := svc.FetchCurrent(context.Background(), 53.12345678, -4.00001)
	require.NoError(t, err)

	assert.Equal(t, "53.1235_-4.0000", snap.JoinKey)
	assert.Equal(t, "2024-06-01T11:00", snap.Timestamp)
	assert.Equal(t, 11.0, *snap.Temperature)
	assert.Equal(t, SourceLive, snap.Source)
	assert.Equal(t, 2, p.last.ForecastDays)
	assert.Equal(t, 53.1235, p.last.Latitude)
}

func TestFetchCurrentServesFromCache(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	svc := NewService(p, newMapCache(), time.Minute, WithClock(func() time.Time { return noon }))

	first, err := svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.NoError(t, err)
	second, err := svc.FetchCurrent(context.Background(), 53.10001, -4.00002)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestFetchCurrentCacheRollsOverOnTheHour(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	now := noon
	svc := NewService(p, newMapCache(), time.Hour, WithClock(func() time.Time { return now }))

	snap, err := svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T11:00", snap.Timestamp)

	now = noon.Add(20 * time.Minute)
	snap, err = svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T11:00", snap.Timestamp)
	assert.Equal(t, int32(1), p.calls.Load())

	now = noon.Add(40 * time.Minute)
	snap, err = svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T13:00", snap.Timestamp)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestFetchCurrentBypassesBrokenCache(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	svc := NewService(p, cache, time.Minute, WithClock(func() time.Time { return noon }))

	_, err := svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.NoError(t, err)
	_, err = svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.NoError(t, err)

	assert.Equal(t, int32(2), p.calls.Load())
}

func TestFetchCurrentWrapsProviderFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("dial tcp: timeout")}
	svc := NewService(p, nil, time.Minute)

	_, err := svc.FetchCurrent(context.Background(), 53.1, -4.0)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamForecast))
}

func TestFetchCurrentKeepsProviderAppError(t *testing.T) {
	p := &fakeProvider{err: apperror.Malformed("bad json")}
	svc := NewService(p, nil, time.Minute)

	_, err := svc.FetchCurrent(context.Background(), 53.1, -4.0)
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamMalformed))
}

func TestFetchCurrentRejectsBadCoordinates(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	svc := NewService(p, nil, time.Minute)

	_, err := svc.FetchCurrent(context.Background(), 91, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidationCoordinates))
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestFetchForecast(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	svc := NewService(p, newMapCache(), time.Minute, WithClock(func() time.Time { return noon }))

	forecast, err := svc.FetchForecast(context.Background(), 53.1, -4.0, 3)
	require.NoError(t, err)
	assert.Len(t, forecast, 4)
	assert.Equal(t, "2024-06-01", p.last.StartDate)
	assert.Equal(t, "2024-06-04", p.last.EndDate)

	_, err = svc.FetchForecast(context.Background(), 53.1, -4.0, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())

	// a different window is a different cache entry
	_, err = svc.FetchForecast(context.Background(), 53.1, -4.0, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestFetchForecastValidatesDays(t *testing.T) {
	p := &fakeProvider{series: fourHours()}
	svc := NewService(p, nil, time.Minute)

	for _, days := range []int{0, -1, 8} {
		_, err := svc.FetchForecast(context.Background(), 53.1, -4.0, days)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidationDays), "days=%d", days)
	}
	assert.Equal(t, int32(0), p.calls.Load())
}

type slowProvider struct {
	fakeProvider
	release chan struct{}
}

func (s *slowProvider) FetchHourly(ctx context.Context, req HourlyRequest) (HourlySeries, error) {
	<-s.release
	return s.fakeProvider.FetchHourly(ctx, req)
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	p := &slowProvider{fakeProvider: fakeProvider{series: fourHours()}, release: make(chan struct{})}
	svc := NewService(p, newMapCache(), time.Minute, WithClock(func() time.Time { return noon }))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FetchForecast(context.Background(), 53.1, -4.0, 2)
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
}

// gatedProvider blocks every fetch until release is closed and fails if the
// fetch context was cancelled meanwhile.
type gatedProvider struct {
	fakeProvider
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) FetchHourly(ctx context.Context, req HourlyRequest) (HourlySeries, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return HourlySeries{}, err
	}
	return g.fakeProvider.FetchHourly(ctx, req)
}

func TestSharedFetchOutlivesFirstCaller(t *testing.T) {
	p := &gatedProvider{
		fakeProvider: fakeProvider{series: fourHours()},
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
	svc := NewService(p, newMapCache(), time.Minute, WithClock(func() time.Time { return noon }))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.FetchForecast(firstCtx, 53.1, -4.0, 2)
		firstErr <- err
	}()
	<-p.entered

	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.FetchForecast(context.Background(), 53.1, -4.0, 2)
		secondErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	close(p.release)

	assert.NoError(t, <-secondErr)
	assert.NoError(t, <-firstErr)
	assert.Equal(t, int32(1), p.calls.Load())
}
