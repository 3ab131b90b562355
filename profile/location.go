package profile

import (
	"math"
	"strings"
)

// nearKm is the great-circle distance under which two detailed
// locations are considered near each other.
const nearKm = 10.0

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Location is a geographic reference in one of two representations: a
// detailed (longitude, latitude) pair, or an undetailed free-text place
// name.
type Location struct {
	Place     string  `json:"place,omitempty"` // Free-text place name (undetailed form)
	Longitude float64 `json:"longitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Detailed  bool    `json:"detailed,omitempty"` // True when the coordinate pair is meaningful
}

// Coordinates returns a detailed Location from a longitude/latitude pair.
func Coordinates(lon, lat float64) Location {
	return Location{Longitude: lon, Latitude: lat, Detailed: true}
}

// Place returns an undetailed Location from a free-text place name.
func Place(name string) Location {
	return Location{Place: name}
}

// Near reports whether two locations plausibly refer to the same area.
// Two detailed locations are near when their haversine distance is
// under 10 km. Two undetailed locations are near when one place name
// is a substring of the other ("Manchester" is near "Manchester, UK").
// Any other combination, including a missing place name on an
// undetailed side, is not near. Not guaranteed transitive.
func (l Location) Near(other Location) bool {
	switch {
	case l.Detailed && other.Detailed:
		return haversineKm(l.Longitude, l.Latitude, other.Longitude, other.Latitude) < nearKm
	case !l.Detailed && !other.Detailed:
		if l.Place == "" || other.Place == "" {
			return false
		}
		return strings.Contains(l.Place, other.Place) || strings.Contains(other.Place, l.Place)
	default:
		return false
	}
}

// haversineKm returns the great-circle distance in kilometers between
// two (lon, lat) points given in decimal degrees.
func haversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	const degToRad = math.Pi / 180
	lon1 *= degToRad
	lat1 *= degToRad
	lon2 *= degToRad
	lat2 *= degToRad

	dlon := lon2 - lon1
	dlat := lat2 - lat1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	return 2 * math.Asin(math.Sqrt(a)) * earthRadiusKm
}
