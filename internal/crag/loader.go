package crag

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/geo"
	"github.com/i474232898/crag-cast/internal/logger"
	"github.com/i474232898/crag-cast/internal/metrics"
)

var (
	cragRequired    = []string{"crag_id", "crag_name"}
	weatherRequired = []string{"latitude", "longitude"}
)

// Markers the dataset exporter writes for missing values.
var nullMarkers = map[string]struct{}{
	"": {}, "nan": {}, "NaN": {}, "NA": {}, "N/A": {}, "null": {}, "NULL": {}, "None": {},
}

// LoadDataset reads both CSV files. Any failure is a data_load_failed error;
// the service cannot start without them.
func LoadDataset(cragPath, weatherPath string) (*Dataset, error) {
	crags, err := readFile(cragPath, "crag", ReadCrags)
	if err != nil {
		return nil, err
	}
	rows, err := readFile(weatherPath, "weather", ReadWeather)
	if err != nil {
		return nil, err
	}

	metrics.DatasetRows("crags", len(crags))
	metrics.DatasetRows("weather", len(rows))
	logger.WithFields(logger.Fields{
		"crag_rows":    len(crags),
		"weather_rows": len(rows),
	}).Info("datasets loaded")

	return &Dataset{Crags: crags, Weather: rows}, nil
}

func readFile[T any](path, name string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.DataLoad(fmt.Sprintf("open %s dataset", name), err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, apperror.DataLoad(fmt.Sprintf("read %s dataset %s", name, path), err)
	}
	return out, nil
}

// ReadCrags parses the crag CSV. Rows whose crag_id is not an integer are
// skipped; rows without usable coordinates are kept with an empty join key.
func ReadCrags(r io.Reader) ([]CragRecord, error) {
	t, err := newTable(r, cragRequired)
	if err != nil {
		return nil, err
	}

	var crags []CragRecord
	for {
		row, line, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		id, ok := parseID(row.text("crag_id"))
		if !ok {
			logger.WithFields(logger.Fields{
				"line":    line,
				"crag_id": row.raw("crag_id"),
			}).Warn("skipping crag row with invalid crag_id")
			continue
		}

		rec := CragRecord{
			CragID:          id,
			CragName:        row.text("crag_name"),
			Country:         row.text("country"),
			County:          row.text("county"),
			Latitude:        row.float("latitude"),
			Longitude:       row.float("longitude"),
			RockType:        row.text("rocktype"),
			SectorName:      row.text("sector_name"),
			RouteName:       row.text("route_name"),
			DifficultyGrade: row.text("difficulty_grade"),
			SafetyGrade:     row.text("safety_grade"),
			Type:            row.text("type"),
			Access:          row.text("access"),
		}
		rec.JoinKey = geo.JoinKeyOf(rec.Latitude, rec.Longitude)
		crags = append(crags, rec)
	}
	return crags, nil
}

// ReadWeather parses the weather CSV.
func ReadWeather(r io.Reader) ([]WeatherRecord, error) {
	t, err := newTable(r, weatherRequired)
	if err != nil {
		return nil, err
	}

	var rows []WeatherRecord
	for {
		row, _, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := WeatherRecord{
			Latitude:      row.float("latitude"),
			Longitude:     row.float("longitude"),
			Temperature:   row.float("temperature"),
			Humidity:      row.float("humidity"),
			Precipitation: row.float("precipitation"),
			WindSpeed:     row.float("windspeed"),
		}
		rec.JoinKey = geo.JoinKeyOf(rec.Latitude, rec.Longitude)
		rows = append(rows, rec)
	}
	return rows, nil
}

// table is a header-indexed CSV reader.
type table struct {
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func newTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("file is empty, header row missing")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	return &table{reader: cr, columns: columns, line: 1}, nil
}

func (t *table) next() (record, int, error) {
	fields, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return record{}, 0, io.EOF
		}
		return record{}, 0, fmt.Errorf("line %d: %w", t.line+1, err)
	}
	t.line++
	return record{fields: fields, columns: t.columns}, t.line, nil
}

type record struct {
	fields  []string
	columns map[string]int
}

func (r record) raw(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) text(column string) string {
	v := r.raw(column)
	if _, null := nullMarkers[v]; null {
		return ""
	}
	return v
}

func (r record) float(column string) *float64 {
	v := r.text(column)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseID accepts "12" and the "12.0" form float columns are exported with.
func parseID(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	if id, err := strconv.Atoi(v); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
