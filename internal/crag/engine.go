package crag

import (
	"cmp"
	"slices"
	"strings"

	"github.com/i474232898/crag-cast/internal/common"
)

// DefaultPageSize applies when a query carries no usable page size.
const DefaultPageSize = 10

type column struct {
	number func(CragRecord) *float64
	text   func(CragRecord) string
}

func intCol(v int) *float64 {
	f := float64(v)
	return &f
}

// sortColumns are the dataset columns a list can be ordered by.
var sortColumns = map[string]column{
	"crag_id":          {number: func(c CragRecord) *float64 { return intCol(c.CragID) }},
	"latitude":         {number: func(c CragRecord) *float64 { return c.Latitude }},
	"longitude":        {number: func(c CragRecord) *float64 { return c.Longitude }},
	"crag_name":        {text: func(c CragRecord) string { return c.CragName }},
	"country":          {text: func(c CragRecord) string { return c.Country }},
	"county":           {text: func(c CragRecord) string { return c.County }},
	"rocktype":         {text: func(c CragRecord) string { return c.RockType }},
	"sector_name":      {text: func(c CragRecord) string { return c.SectorName }},
	"route_name":       {text: func(c CragRecord) string { return c.RouteName }},
	"difficulty_grade": {text: func(c CragRecord) string { return c.DifficultyGrade }},
	"safety_grade":     {text: func(c CragRecord) string { return c.SafetyGrade }},
	"type":             {text: func(c CragRecord) string { return c.Type }},
	"access":           {text: func(c CragRecord) string { return c.Access }},
}

// IsSortField reports whether name is a column the engine can sort on.
func IsSortField(name string) bool {
	_, ok := sortColumns[name]
	return ok
}

// Engine answers list queries over one crag dataset.
type Engine struct {
	distinct    []CragRecord // first row per crag_id, file order
	routeCounts map[int]int
}

// NewEngine indexes all. The slice is not retained or modified.
func NewEngine(all []CragRecord) *Engine {
	e := &Engine{routeCounts: make(map[int]int)}
	for _, c := range all {
		if _, seen := e.routeCounts[c.CragID]; !seen {
			e.distinct = append(e.distinct, c)
		}
		e.routeCounts[c.CragID]++
	}
	return e
}

// Apply runs one query over the dataset passed to NewEngine.
func Apply(all []CragRecord, q Query) ResultPage {
	return NewEngine(all).Apply(q)
}

// Apply filters, sorts and slices the distinct crags. It is pure: the same
// query always yields the same page.
func (e *Engine) Apply(q Query) ResultPage {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PageSize
	if perPage < 1 {
		perPage = DefaultPageSize
	}

	filtered := e.filter(q)
	sortRecords(filtered, q.SortField, q.SortAscending)

	total := len(filtered)
	totalPages := max(total/perPage, 1)
	if total > perPage && total%perPage != 0 {
		totalPages++
	}

	result := ResultPage{
		Crags:       []CragSummary{},
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PerPage:     perPage,
	}

	// compare page numbers before multiplying so huge pages cannot overflow
	if page > totalPages {
		return result
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)

	for _, c := range filtered[start:end] {
		result.Crags = append(result.Crags, CragSummary{
			ID:          c.CragID,
			CragName:    c.CragName,
			Country:     c.Country,
			County:      c.County,
			Latitude:    c.Latitude,
			Longitude:   c.Longitude,
			RockType:    c.RockType,
			RoutesCount: e.routeCounts[c.CragID],
		})
	}
	return result
}

// RoutesCount is the number of dataset rows for id.
func (e *Engine) RoutesCount(id int) int {
	return e.routeCounts[id]
}

// Distinct returns one record per crag, in file order.
func (e *Engine) Distinct() []CragRecord {
	return e.distinct
}

func (e *Engine) filter(q Query) []CragRecord {
	search := strings.TrimSpace(q.SearchText)
	categorical := []struct {
		selected []string
		value    func(CragRecord) string
	}{
		{q.CountryFilter, func(c CragRecord) string { return c.Country }},
		{q.RockTypeFilter, func(c CragRecord) string { return c.RockType }},
		{q.CountyFilter, func(c CragRecord) string { return c.County }},
		{q.TypeFilter, func(c CragRecord) string { return c.Type }},
	}

	type active struct {
		set   map[string]struct{}
		value func(CragRecord) string
	}
	var filters []active
	for _, f := range categorical {
		if common.Unconstrained(f.selected) {
			continue
		}
		filters = append(filters, active{set: common.SetOf(f.selected), value: f.value})
	}

	out := make([]CragRecord, 0, len(e.distinct))
outer:
	for _, c := range e.distinct {
		if !common.ContainsFold(c.CragName, search) {
			continue
		}
		for _, f := range filters {
			if _, ok := f.set[f.value(c)]; !ok {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}

// sortRecords orders records by field in place. Missing values go last
// whatever the direction; unknown fields leave the order untouched.
func sortRecords(records []CragRecord, field string, ascending bool) {
	col, ok := sortColumns[field]
	if !ok {
		return
	}

	slices.SortStableFunc(records, func(a, b CragRecord) int {
		var aNull, bNull bool
		var c int
		if col.number != nil {
			av, bv := col.number(a), col.number(b)
			aNull, bNull = av == nil, bv == nil
			if !aNull && !bNull {
				c = cmp.Compare(*av, *bv)
			}
		} else {
			av, bv := col.text(a), col.text(b)
			aNull, bNull = av == "", bv == ""
			c = strings.Compare(av, bv)
		}

		switch {
		case aNull && bNull:
			return 0
		case aNull:
			return 1
		case bNull:
			return -1
		case ascending:
			return c
		default:
			return -c
		}
	})
}
