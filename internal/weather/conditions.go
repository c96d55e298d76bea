package weather

// Rating is a climbing-condition badge for one weather metric.
type Rating string

const (
	RatingUnknown Rating = "unknown"
	RatingGood    Rating = "good"
	RatingMild    Rating = "mild"
	RatingBad     Rating = "bad"
)

// Ratings holds one badge per metric plus the overall verdict.
type Ratings struct {
	Temperature   Rating `json:"temperature"`
	Humidity      Rating `json:"humidity"`
	Precipitation Rating `json:"precipitation"`
	WindSpeed     Rating `json:"windspeed"`
	Overall       Rating `json:"overall"`
}

// RateTemperature rates air temperature in °C for climbing friction.
func RateTemperature(v *float64) Rating {
	if v == nil {
		return RatingUnknown
	}
	t := *v
	switch {
	case t < 10:
		return RatingBad
	case t <= 15:
		return RatingMild
	case t <= 25:
		return RatingGood
	case t <= 30:
		return RatingMild
	default:
		return RatingBad
	}
}

// RateHumidity rates relative humidity in percent. Exactly 50 counts as mild.
func RateHumidity(v *float64) Rating {
	if v == nil {
		return RatingUnknown
	}
	switch h := *v; {
	case h > 70:
		return RatingBad
	case h >= 50:
		return RatingMild
	default:
		return RatingGood
	}
}

// RatePrecipitation rates hourly precipitation in mm: any rain is bad.
func RatePrecipitation(v *float64) Rating {
	if v == nil {
		return RatingUnknown
	}
	if *v == 0 {
		return RatingGood
	}
	return RatingBad
}

// RateWindSpeed rates wind speed in km/h.
func RateWindSpeed(v *float64) Rating {
	if v == nil {
		return RatingUnknown
	}
	switch w := *v; {
	case w <= 20:
		return RatingGood
	case w < 30:
		return RatingMild
	default:
		return RatingBad
	}
}

// Worst returns the most severe known rating, or unknown when none is known.
func Worst(ratings ...Rating) Rating {
	rank := map[Rating]int{RatingUnknown: 0, RatingGood: 1, RatingMild: 2, RatingBad: 3}
	worst := RatingUnknown
	for _, r := range ratings {
		if rank[r] > rank[worst] {
			worst = r
		}
	}
	return worst
}

// Rate builds the badges for one set of readings.
func Rate(temperature, humidity, precipitation, windSpeed *float64) Ratings {
	r := Ratings{
		Temperature:   RateTemperature(temperature),
		Humidity:      RateHumidity(humidity),
		Precipitation: RatePrecipitation(precipitation),
		WindSpeed:     RateWindSpeed(windSpeed),
	}
	r.Overall = Worst(r.Temperature, r.Humidity, r.Precipitation, r.WindSpeed)
	return r
}

// RateEntry rates an hourly forecast entry.
func RateEntry(e ForecastEntry) Ratings {
	return Rate(e.Temperature, e.Humidity, e.Precipitation, e.WindSpeed)
}

// RateSnapshot rates a snapshot.
func RateSnapshot(s Snapshot) Ratings {
	return Rate(s.Temperature, s.Humidity, s.Precipitation, s.WindSpeed)
}
