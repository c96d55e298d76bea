package weather

import "math"

// SummarizeDays groups hourly entries by the date part of their timestamp and
// rolls each day up. Days appear in first-seen order; nil readings are ignored.
func SummarizeDays(entries []ForecastEntry) []DailySummary {
	type acc struct {
		minTemp, maxTemp     float64
		sumHumidity          float64
		precip, maxWind      float64
		nTemp, nHum, nPrecip int
		nWind, hours         int
	}

	var order []string
	days := make(map[string]*acc)

	for _, e := range entries {
		date := datePart(e.Timestamp)
		a, ok := days[date]
		if !ok {
			a = &acc{minTemp: math.Inf(1), maxTemp: math.Inf(-1), maxWind: math.Inf(-1)}
			days[date] = a
			order = append(order, date)
		}
		a.hours++

		if e.Temperature != nil {
			a.minTemp = math.Min(a.minTemp, *e.Temperature)
			a.maxTemp = math.Max(a.maxTemp, *e.Temperature)
			a.nTemp++
		}
		if e.Humidity != nil {
			a.sumHumidity += *e.Humidity
			a.nHum++
		}
		if e.Precipitation != nil {
			a.precip += *e.Precipitation
			a.nPrecip++
		}
		if e.WindSpeed != nil {
			a.maxWind = math.Max(a.maxWind, *e.WindSpeed)
			a.nWind++
		}
	}

	summaries := make([]DailySummary, 0, len(order))
	for _, date := range order {
		a := days[date]
		s := DailySummary{Date: date, Hours: a.hours}
		if a.nTemp > 0 {
			s.MinTemperature = ptr(a.minTemp)
			s.MaxTemperature = ptr(a.maxTemp)
		}
		if a.nHum > 0 {
			s.MeanHumidity = ptr(a.sumHumidity / float64(a.nHum))
		}
		if a.nPrecip > 0 {
			s.TotalPrecipitation = ptr(a.precip)
		}
		if a.nWind > 0 {
			s.MaxWindSpeed = ptr(a.maxWind)
		}
		s.Rating = Worst(
			RateTemperature(s.MinTemperature),
			RateTemperature(s.MaxTemperature),
			RateHumidity(s.MeanHumidity),
			RatePrecipitation(s.TotalPrecipitation),
			RateWindSpeed(s.MaxWindSpeed),
		)
		summaries = append(summaries, s)
	}

	return summaries
}

func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

func ptr(v float64) *float64 {
	return &v
}
