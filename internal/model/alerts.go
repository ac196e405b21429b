package model

// WeatherAlert is one active National Weather Service alert for an area.
type WeatherAlert struct {
	Event    string `json:"event"`
	Headline string `json:"headline"`
	Severity string `json:"severity"`
}

// AlertsResponse mirrors the NWS active-alerts GeoJSON payload, reduced to
// the properties the prompt uses.
type AlertsResponse struct {
	Features []struct {
		Properties WeatherAlert `json:"properties"`
	} `json:"features"`
}
