package geo

import (
	"fmt"
	"math"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

// EarthRadiusMeters is the mean earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between a and b in meters.
// NaN inputs propagate to a NaN result.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	deltaLat := degreesToRadians(b.Lat - a.Lat)
	deltaLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// FormatDistance renders meters for display: whole meters below 1 km, one decimal
// below 10 km, whole kilometers above that. The unit is chosen after rounding.
func FormatDistance(meters float64) string {
	if m := math.Round(meters); m < 1000 {
		return fmt.Sprintf("%d m", int(m))
	}
	if km := math.Round(meters/100) / 10; km < 10 {
		return fmt.Sprintf("%.1f km", km)
	}
	return fmt.Sprintf("%d km", int(math.Round(meters/1000)))
}

// AttachDistances returns copies of the competitions with Distance set to the
// meters from user. Competitions without coordinates get a nil Distance.
func AttachDistances(competitions []models.Competition, user models.Coordinates) []models.Competition {
	out := make([]models.Competition, len(competitions))
	for i, c := range competitions {
		c.Distance = nil
		if c.Coordinates != nil {
			d := Haversine(user, *c.Coordinates)
			c.Distance = &d
		}
		out[i] = c
	}
	return out
}

// DistanceKm returns the kilometers between user and the competition, reusing a
// previously attached Distance so filtering and display agree on the same number.
func DistanceKm(c models.Competition, user models.Coordinates) (float64, bool) {
	if c.Distance != nil {
		return *c.Distance / 1000, true
	}
	if c.Coordinates == nil {
		return 0, false
	}
	return Haversine(user, *c.Coordinates) / 1000, true
}
