// Package geo provides coordinate types and helpers for map cameras.
package geo

import "math"

// EarthRadiusM is the mean earth radius in meters.
const EarthRadiusM = 6371008.8

// LngLat is a geographic coordinate in degrees.
type LngLat struct {
	Lng float64 `yaml:"lng" json:"lng"`
	Lat float64 `yaml:"lat" json:"lat"`
}

// Valid reports whether the coordinate is finite and within WGS84 bounds.
func (p LngLat) Valid() bool {
	if math.IsNaN(p.Lng) || math.IsNaN(p.Lat) || math.IsInf(p.Lng, 0) || math.IsInf(p.Lat, 0) {
		return false
	}
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// Equal reports whether both components are within eps of other.
func (p LngLat) Equal(other LngLat, eps float64) bool {
	return math.Abs(p.Lng-other.Lng) <= eps && math.Abs(p.Lat-other.Lat) <= eps
}

// Lerp interpolates between p and other. Longitude takes the short way
// around, crossing the antimeridian when that is shorter.
func (p LngLat) Lerp(other LngLat, t float64) LngLat {
	return LngLat{
		Lng: NormalizeLng(p.Lng + lngDelta(p.Lng, other.Lng)*t),
		Lat: p.Lat + (other.Lat-p.Lat)*t,
	}
}

// NormalizeLng wraps a longitude into [-180, 180).
func NormalizeLng(deg float64) float64 {
	l := math.Mod(deg+180, 360)
	if l < 0 {
		l += 360
	}
	return l - 180
}

// lngDelta is the signed longitude change from a to b, in [-180, 180).
func lngDelta(a, b float64) float64 {
	return NormalizeLng(b - a)
}

// Distance returns the great-circle distance to other in meters.
func (p LngLat) Distance(other LngLat) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(other.Lat)
	dLat := lat2 - lat1
	dLng := radians(other.Lng - p.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// NormalizeBearing wraps a bearing into [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	return b
}

// ShortestBearing returns the bearing to animate towards so that the rotation
// from "from" takes the short way around. The result may fall outside [0, 360).
func ShortestBearing(from, to float64) float64 {
	delta := math.Mod(NormalizeBearing(to)-NormalizeBearing(from)+540, 360) - 180
	return from + delta
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
