package httpapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/crag"
	"github.com/i474232898/crag-cast/internal/geo"
	"github.com/i474232898/crag-cast/internal/logger"
	"github.com/i474232898/crag-cast/internal/metrics"
	"github.com/i474232898/crag-cast/internal/weather"
)

var validate = validator.New()

// WeatherService is the live weather client the handlers call.
type WeatherService interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (weather.Snapshot, error)
	FetchForecast(ctx context.Context, lat, lon float64, days int) (weather.Forecast, error)
}

// Options tunes paging and the detail view.
type Options struct {
	DefaultPerPage int
	MaxPerPage     int
	NearbyRadiusKm float64
	NearbyLimit    int
}

func (o Options) withDefaults() Options {
	if o.DefaultPerPage < 1 {
		o.DefaultPerPage = crag.DefaultPageSize
	}
	if o.MaxPerPage < 1 {
		o.MaxPerPage = 100
	}
	if o.NearbyRadiusKm <= 0 {
		o.NearbyRadiusKm = 25
	}
	return o
}

type handlers struct {
	catalog *crag.Catalog
	weather WeatherService
	opts    Options
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	h := &handlers{catalog: deps.Catalog, weather: deps.Weather, opts: deps.Options.withDefaults()}

	v1 := app.Group("/api/v1")

	v1.Get("/crags", h.listCrags)
	v1.Get("/crags/facets", h.facets)
	v1.Get("/crags/:id", h.cragDetail)
	v1.Get("/weather/current", h.currentWeather)
	v1.Get("/forecast/:lat/:lon", h.forecast)
}

// listResponse is a result page plus the query that produced it, so clients
// can rebuild pagination links.
type listResponse struct {
	crag.ResultPage
	Query listQuery `json:"query"`
}

func (h *handlers) listCrags(c *fiber.Ctx) error {
	var q listQuery
	if err := q.bind(c, h.opts); err != nil {
		return err
	}

	metrics.CragQuery("list")
	page := h.catalog.List(q.toQuery())

	return c.JSON(listResponse{ResultPage: page, Query: q})
}

func (h *handlers) facets(c *fiber.Ctx) error {
	metrics.CragQuery("facets")
	return c.JSON(h.catalog.Facets())
}

type ratedSnapshot struct {
	weather.Snapshot
	Ratings weather.Ratings `json:"ratings"`
}

type detailResponse struct {
	crag.CragDetail
	Weather      *ratedSnapshot    `json:"weather"`
	WeatherError *errorBody        `json:"weather_error,omitempty"`
	Nearby       []crag.NearbyCrag `json:"nearby"`
}

func (h *handlers) cragDetail(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return apperror.Validation(apperror.CodeValidationCragID, fmt.Sprintf("crag id must be an integer, got %q", c.Params("id")))
	}

	detail, err := h.catalog.Detail(id)
	if err != nil {
		return err
	}
	metrics.CragQuery("detail")

	resp := detailResponse{CragDetail: detail}

	lat, lon := detail.Crag.Latitude, detail.Crag.Longitude
	if geo.Valid(lat) && geo.Valid(lon) {
		snap, err := h.weather.FetchCurrent(c.UserContext(), *lat, *lon)
		if err != nil {
			// the page still renders without live weather
			logger.WithFields(logger.Fields{
				"crag_id":    id,
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
				"error":      err.Error(),
			}).Warn("live weather unavailable for crag detail")
			resp.WeatherError = errorBodyOf(err)
		} else {
			resp.Weather = &ratedSnapshot{Snapshot: snap, Ratings: weather.RateSnapshot(snap)}
		}
	}

	nearby, err := h.catalog.Nearby(id, h.opts.NearbyRadiusKm, h.opts.NearbyLimit)
	if err != nil {
		return err
	}
	resp.Nearby = nearby

	return c.JSON(resp)
}

func (h *handlers) currentWeather(c *fiber.Ctx) error {
	var q coordinates
	if err := q.bind(c.Query("lat"), c.Query("lon")); err != nil {
		return err
	}

	snap, err := h.weather.FetchCurrent(c.UserContext(), q.Lat, q.Lon)
	if err != nil {
		return err
	}

	return c.JSON(ratedSnapshot{Snapshot: snap, Ratings: weather.RateSnapshot(snap)})
}

type ratedEntry struct {
	weather.ForecastEntry
	Ratings weather.Ratings `json:"ratings"`
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	var q forecastQuery
	if err := q.bind(c); err != nil {
		return err
	}

	entries, err := h.weather.FetchForecast(c.UserContext(), q.Lat, q.Lon, q.Days)
	if err != nil {
		return err
	}

	rated := make([]ratedEntry, 0, len(entries))
	for _, e := range entries {
		rated = append(rated, ratedEntry{ForecastEntry: e, Ratings: weather.RateEntry(e)})
	}

	return c.JSON(fiber.Map{
		"latitude":  q.Lat,
		"longitude": q.Lon,
		"days":      q.Days,
		"forecast":  rated,
		"daily":     weather.SummarizeDays(entries),
	})
}

// listQuery holds the list view's query parameters.
type listQuery struct {
	Search    string   `json:"search"`
	Country   []string `json:"country"`
	RockType  []string `json:"rocktype"`
	County    []string `json:"county"`
	Type      []string `json:"type"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order" validate:"oneof=asc desc"`
	Page      int      `json:"page" validate:"gte=1"`
	PerPage   int      `json:"per_page" validate:"gte=1"`
}

func (q *listQuery) bind(c *fiber.Ctx, opts Options) error {
	q.Search = strings.TrimSpace(c.Query("search"))
	q.Country = queryList(c, "country")
	q.RockType = queryList(c, "rocktype")
	q.County = queryList(c, "county")
	q.Type = queryList(c, "type")
	q.SortBy = c.Query("sort_by", "crag_name")
	q.SortOrder = strings.ToLower(c.Query("sort_order", "asc"))

	// Non-numeric paging falls back to the defaults.
	q.Page = 1
	if n, err := strconv.Atoi(c.Query("page")); err == nil && n >= 1 {
		q.Page = n
	}
	q.PerPage = opts.DefaultPerPage
	if n, err := strconv.Atoi(c.Query("per_page")); err == nil && n >= 1 {
		q.PerPage = n
	}

	if err := validate.Struct(q); err != nil {
		return apperror.Validation(apperror.CodeValidationQuery, err.Error())
	}
	if q.PerPage > opts.MaxPerPage {
		return apperror.Validation(apperror.CodeValidationQuery,
			fmt.Sprintf("per_page must be at most %d", opts.MaxPerPage))
	}
	return nil
}

func (q listQuery) toQuery() crag.Query {
	return crag.Query{
		SearchText:     q.Search,
		CountryFilter:  q.Country,
		RockTypeFilter: q.RockType,
		CountyFilter:   q.County,
		TypeFilter:     q.Type,
		SortField:      q.SortBy,
		SortAscending:  q.SortOrder == "asc",
		Page:           q.Page,
		PageSize:       q.PerPage,
	}
}

// queryList returns every value of a repeated query parameter.
func queryList(c *fiber.Ctx, key string) []string {
	values := []string{}
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		values = append(values, string(v))
	}
	return values
}

// coordinates holds a validated lat/lon pair.
type coordinates struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func (q *coordinates) bind(lat, lon string) error {
	var err error
	if q.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return apperror.Validation(apperror.CodeValidationCoordinates, fmt.Sprintf("latitude must be a number, got %q", lat))
	}
	if q.Lon, err = strconv.ParseFloat(lon, 64); err != nil {
		return apperror.Validation(apperror.CodeValidationCoordinates, fmt.Sprintf("longitude must be a number, got %q", lon))
	}
	if err := validate.Struct(q); err != nil {
		return apperror.Validation(apperror.CodeValidationCoordinates, err.Error())
	}
	return nil
}

// forecastQuery holds the forecast endpoint's path and query parameters.
type forecastQuery struct {
	coordinates
	Days int `validate:"gte=1,lte=7"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	if err := q.coordinates.bind(c.Params("lat"), c.Params("lon")); err != nil {
		return err
	}

	q.Days = weather.DefaultForecastDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.Validation(apperror.CodeValidationDays, fmt.Sprintf("days must be an integer, got %q", raw))
		}
		q.Days = n
	}

	if err := validate.Struct(q); err != nil {
		return apperror.Validation(apperror.CodeValidationDays,
			fmt.Sprintf("days must be between 1 and %d", weather.MaxForecastDays))
	}
	return nil
}
