package model

// GeocodingResult is one candidate place from the Open-Meteo geocoding
// search. Admin1 carries the US state name.
type GeocodingResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
}

// GeocodingResponse mirrors the Open-Meteo geocoding search payload.
type GeocodingResponse struct {
	Results []GeocodingResult `json:"results"`
}

// DailySeries holds the parallel per-day arrays returned by the Open-Meteo
// forecast endpoint.
type DailySeries struct {
	Time             []string  `json:"time"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	PrecipitationSum []float64 `json:"precipitation_sum"`
	SnowfallSum      []float64 `json:"snowfall_sum"`
	WindSpeed10mMax  []float64 `json:"wind_speed_10m_max"`
}

// ForecastResponse mirrors the Open-Meteo forecast payload. Daily is nil when
// the daily container is absent.
type ForecastResponse struct {
	Daily *DailySeries `json:"daily"`
}
