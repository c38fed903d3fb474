package models

// Coordinates is a geocoded point in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies within the latitude/longitude ranges
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// coordinatesFrom returns the pair only when both halves are present
func coordinatesFrom(lat, lon *float64) (Coordinates, bool) {
	if lat == nil || lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *lat, Longitude: *lon}, true
}
