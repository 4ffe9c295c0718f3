package geo

import "math"

// MaxAccuracy is the largest accuracy radius (meters) accepted on the wire.
const MaxAccuracy = 10000

// Sample is one geolocation fix. Accuracy is the estimated error radius in
// meters, clamped into [0, MaxAccuracy] before transmission.
type Sample struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// ClampAccuracy caps a raw accuracy value into the transportable range.
func ClampAccuracy(a float64) float64 {
	return math.Min(math.Max(a, 0), MaxAccuracy)
}

const earthRadiusM = 6371000

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
