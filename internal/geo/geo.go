// Package geo holds coordinate helpers shared by the crag dataset and the
// weather client: the 4-decimal join key and great-circle distance.
package geo

import (
	"math"
	"strconv"

	"github.com/umahmood/haversine"
)

// Precision is the number of decimals coordinates are rounded to before they
// are compared or used as keys.
const Precision = 4

var scale = math.Pow(10, Precision)

// Round rounds v to Precision decimals, half away from zero.
func Round(v float64) float64 {
	r := math.Round(v*scale) / scale
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

// FormatCoord renders a coordinate with exactly Precision decimals.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(Round(v), 'f', Precision, 64)
}

// JoinKey returns the "<lat>_<lon>" key. Coordinates equal after rounding
// always produce byte-identical keys.
func JoinKey(lat, lon float64) string {
	return FormatCoord(lat) + "_" + FormatCoord(lon)
}

// JoinKeyOf is JoinKey for nullable coordinates. It returns "" when either
// side is missing or not a finite number.
func JoinKeyOf(lat, lon *float64) string {
	if !Valid(lat) || !Valid(lon) {
		return ""
	}
	return JoinKey(*lat, *lon)
}

// Valid reports whether v holds a finite number.
func Valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// ValidLatLon reports whether lat/lon are inside the WGS84 ranges.
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// DistanceKm is the haversine distance between two points in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: lat1, Lon: lon1},
		haversine.Coord{Lat: lat2, Lon: lon2},
	)
	return km
}
