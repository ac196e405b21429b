package model

// DayRecord is one day of forecast data, in US units.
type DayRecord struct {
	Date            string  `json:"date"`
	MaxTempF        float64 `json:"maxTempF"`
	MinTempF        float64 `json:"minTempF"`
	PrecipitationIn float64 `json:"precipitationIn"`
	SnowfallIn      float64 `json:"snowfallIn"`
	MaxWindMph      float64 `json:"maxWindMph"`
}

// DailyForecast is a chronologically ordered multi-day forecast. Order is
// preserved through every downstream stage.
type DailyForecast []DayRecord

// DayView merges a forecast day with the AI analysis text for that day.
type DayView struct {
	DayRecord
	AnalysisText string `json:"analysisText"`
}
