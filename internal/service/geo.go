package service

import (
	"math"

	"impactfamilies/internal/models"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometres
func HaversineKm(from, to models.Coordinates) float64 {
	dLat := degToRad(to.Latitude - from.Latitude)
	dLon := degToRad(to.Longitude - from.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(from.Latitude))*math.Cos(degToRad(to.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
