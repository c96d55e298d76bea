package crag

import "github.com/i474232898/crag-cast/internal/weather"

// CragRecord is one row of the crag dataset. A crag spans several rows, one
// per route; the crag-level fields repeat on each. Empty strings stand for
// missing text values.
type CragRecord struct {
	CragID          int
	CragName        string
	Country         string
	County          string
	Latitude        *float64
	Longitude       *float64
	RockType        string
	SectorName      string
	RouteName       string
	DifficultyGrade string
	SafetyGrade     string
	Type            string
	Access          string

	// JoinKey is empty when the coordinates are missing.
	JoinKey string
}

// WeatherRecord is one row of the static weather dataset.
type WeatherRecord struct {
	Latitude      *float64
	Longitude     *float64
	Temperature   *float64
	Humidity      *float64
	Precipitation *float64
	WindSpeed     *float64
	JoinKey       string
}

// Snapshot converts the row to the shape the live client returns.
func (w WeatherRecord) Snapshot() *weather.Snapshot {
	return &weather.Snapshot{
		JoinKey:       w.JoinKey,
		Temperature:   w.Temperature,
		Humidity:      w.Humidity,
		Precipitation: w.Precipitation,
		WindSpeed:     w.WindSpeed,
		Source:        weather.SourceDataset,
	}
}

// Dataset is everything loaded at startup. It is read-only afterwards.
type Dataset struct {
	Crags   []CragRecord
	Weather []WeatherRecord
}

// Query describes one list request. Empty filter sets, or sets holding an
// empty string, do not constrain.
type Query struct {
	SearchText     string
	CountryFilter  []string
	RockTypeFilter []string
	CountyFilter   []string
	TypeFilter     []string
	SortField      string
	SortAscending  bool
	Page           int
	PageSize       int
}

// CragSummary is one card of the list view.
type CragSummary struct {
	ID          int               `json:"id"`
	CragName    string            `json:"crag_name"`
	Country     string            `json:"country"`
	County      string            `json:"county"`
	Latitude    *float64          `json:"latitude"`
	Longitude   *float64          `json:"longitude"`
	RockType    string            `json:"rocktype"`
	RoutesCount int               `json:"routes_count"`
	Weather     *weather.Snapshot `json:"weather"`
}

// ResultPage is one page of filtered, sorted crags.
type ResultPage struct {
	Crags       []CragSummary `json:"crags"`
	TotalCount  int           `json:"total_count"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	PerPage     int           `json:"per_page"`
}

// Header is the crag-level part of a detail view.
type Header struct {
	CragID    int      `json:"crag_id"`
	CragName  string   `json:"crag_name"`
	Country   string   `json:"country"`
	County    string   `json:"county"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	RockType  string   `json:"rocktype"`
	Access    string   `json:"access"`
}

// Route is one climbable line at a crag.
type Route struct {
	SectorName      string `json:"sector_name"`
	RouteName       string `json:"route_name"`
	Type            string `json:"type"`
	DifficultyGrade string `json:"difficulty_grade"`
	SafetyGrade     string `json:"safety_grade"`
}

// CragDetail is the full view of one crag.
type CragDetail struct {
	Crag        Header  `json:"crag"`
	Routes      []Route `json:"routes"`
	RoutesCount int     `json:"routes_count"`
}

// Facets lists the distinct values the filters can take.
type Facets struct {
	Countries        []string `json:"countries"`
	Counties         []string `json:"counties"`
	DifficultyGrades []string `json:"difficulty_grades"`
	RockTypes        []string `json:"rocktypes"`
	Types            []string `json:"types"`
}

// NearbyCrag is a neighbouring crag and its distance from the origin.
type NearbyCrag struct {
	ID         int      `json:"id"`
	CragName   string   `json:"crag_name"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	DistanceKm float64  `json:"distance_km"`
}
