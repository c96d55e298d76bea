package weather

// Source tells where a snapshot came from.
type Source string

const (
	SourceDataset Source = "dataset"
	SourceLive    Source = "live"
)

// Snapshot is the weather shown next to a crag: either a row of the static
// weather dataset or the live hourly sample nearest to now.
type Snapshot struct {
	JoinKey       string   `json:"join_key,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"` // ISO 8601, empty for dataset rows
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"windspeed"`
	Source        Source   `json:"source"`
}

// ForecastEntry is one hourly sample. Values are nil when upstream omitted them.
type ForecastEntry struct {
	Timestamp     string   `json:"time"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"windspeed"`
}

// Forecast is an ordered hourly series, oldest first.
type Forecast []ForecastEntry

// DailySummary rolls one calendar day of a forecast up for display.
type DailySummary struct {
	Date               string   `json:"date"`
	MinTemperature     *float64 `json:"min_temperature"`
	MaxTemperature     *float64 `json:"max_temperature"`
	MeanHumidity       *float64 `json:"mean_humidity"`
	TotalPrecipitation *float64 `json:"total_precipitation"`
	MaxWindSpeed       *float64 `json:"max_windspeed"`
	Hours              int      `json:"hours"`
	Rating             Rating   `json:"rating"`
}

// HourlySeries is the upstream payload before normalization: parallel arrays
// indexed by hour. A nil slice means upstream omitted the field.
type HourlySeries struct {
	Time          []string
	Temperature   []*float64
	Humidity      []*float64
	Precipitation []*float64
	WindSpeed     []*float64
}

// HourlyRequest parameterizes one upstream call. StartDate/EndDate are
// YYYY-MM-DD and take precedence over ForecastDays when set.
type HourlyRequest struct {
	Latitude     float64
	Longitude    float64
	ForecastDays int
	StartDate    string
	EndDate      string
}
