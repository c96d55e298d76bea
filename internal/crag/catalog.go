package crag

import (
	"fmt"
	"sort"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/geo"
)

// Catalog serves the read-only views over a loaded Dataset.
type Catalog struct {
	rows        []CragRecord
	byID        map[int][]int // crag_id -> row indexes, file order
	engine      *Engine
	joiner      *Joiner
	facets      Facets
	weatherRows int
}

// NewCatalog indexes ds. ds must not be modified afterwards.
func NewCatalog(ds *Dataset) *Catalog {
	c := &Catalog{
		rows:        ds.Crags,
		byID:        make(map[int][]int),
		engine:      NewEngine(ds.Crags),
		joiner:      NewJoiner(ds.Weather),
		weatherRows: len(ds.Weather),
	}
	for i, r := range ds.Crags {
		c.byID[r.CragID] = append(c.byID[r.CragID], i)
	}
	c.facets = buildFacets(ds.Crags)
	return c
}

// CragCount is the number of distinct crags.
func (c *Catalog) CragCount() int { return len(c.engine.Distinct()) }

// WeatherRows is the number of rows in the weather dataset.
func (c *Catalog) WeatherRows() int { return c.weatherRows }

// List runs q and attaches the dataset weather to every summary on the page.
func (c *Catalog) List(q Query) ResultPage {
	page := c.engine.Apply(q)
	for i := range page.Crags {
		first := c.rows[c.byID[page.Crags[i].ID][0]]
		if snap, ok := c.joiner.WeatherFor(first); ok {
			page.Crags[i].Weather = snap
		}
	}
	return page
}

// Detail returns the crag header and every named route of id.
func (c *Catalog) Detail(id int) (CragDetail, error) {
	idx, ok := c.byID[id]
	if !ok {
		return CragDetail{}, apperror.NotFound(fmt.Sprintf("crag %d not found", id))
	}

	first := c.rows[idx[0]]
	d := CragDetail{
		Crag: Header{
			CragID:    first.CragID,
			CragName:  first.CragName,
			Country:   first.Country,
			County:    first.County,
			Latitude:  first.Latitude,
			Longitude: first.Longitude,
			RockType:  first.RockType,
			Access:    first.Access,
		},
		Routes:      []Route{},
		RoutesCount: len(idx),
	}

	for _, i := range idx {
		r := c.rows[i]
		if r.RouteName == "" {
			continue
		}
		d.Routes = append(d.Routes, Route{
			SectorName:      r.SectorName,
			RouteName:       r.RouteName,
			Type:            r.Type,
			DifficultyGrade: r.DifficultyGrade,
			SafetyGrade:     r.SafetyGrade,
		})
	}
	return d, nil
}

// Facets returns the sorted distinct filter values.
func (c *Catalog) Facets() Facets {
	return c.facets
}

// Nearby lists other crags within radiusKm of id, closest first, at most
// limit of them (limit <= 0 means no cap). A crag without coordinates has
// no neighbours.
func (c *Catalog) Nearby(id int, radiusKm float64, limit int) ([]NearbyCrag, error) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("crag %d not found", id))
	}

	origin := c.rows[idx[0]]
	out := []NearbyCrag{}
	if !geo.Valid(origin.Latitude) || !geo.Valid(origin.Longitude) {
		return out, nil
	}

	for _, other := range c.engine.Distinct() {
		if other.CragID == id || !geo.Valid(other.Latitude) || !geo.Valid(other.Longitude) {
			continue
		}
		d := geo.DistanceKm(*origin.Latitude, *origin.Longitude, *other.Latitude, *other.Longitude)
		if d > radiusKm {
			continue
		}
		out = append(out, NearbyCrag{
			ID:         other.CragID,
			CragName:   other.CragName,
			Latitude:   other.Latitude,
			Longitude:  other.Longitude,
			DistanceKm: d,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func buildFacets(rows []CragRecord) Facets {
	distinct := func(value func(CragRecord) string) []string {
		seen := map[string]struct{}{}
		out := []string{}
		for _, r := range rows {
			v := value(r)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return out
	}

	return Facets{
		Countries:        distinct(func(r CragRecord) string { return r.Country }),
		Counties:         distinct(func(r CragRecord) string { return r.County }),
		DifficultyGrades: distinct(func(r CragRecord) string { return r.DifficultyGrade }),
		RockTypes:        distinct(func(r CragRecord) string { return r.RockType }),
		Types:            distinct(func(r CragRecord) string { return r.Type }),
	}
}
