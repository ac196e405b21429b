package model

// LocationQuery is the user-supplied place to predict for. Immutable once
// submitted.
type LocationQuery struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Coordinates is a geocoded location as resolved by the geocoding service.
type Coordinates struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	ResolvedName  string  `json:"resolvedName"`
	ResolvedState string  `json:"resolvedState"`
	Country       string  `json:"country"`
}

// Valid reports whether the coordinates are within the WGS 84 range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}
