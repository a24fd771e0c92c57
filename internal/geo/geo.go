// Package geo has the distance and heading primitives used by the motion
// simulator and the stop lookup.
//
// PlanarDistance treats raw latitude/longitude degrees as Cartesian
// coordinates. That is wrong away from the equator but fine at city scale, and
// the proximity thresholds are tuned against it, so keep it that way.
package geo

import (
	"math"
	"strconv"
	"time"

	"blueway/internal/domain"
)

const (
	earthRadiusM = 6371000.0
	kmPerDegree  = 111.32
	avgSpeedKmh  = 30.0
)

// PlanarDistance is the Euclidean distance between a and b in degrees.
func PlanarDistance(a, b domain.Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// Haversine distance in meters
func Haversine(a, b domain.Point) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// Heading is the screen rotation of the vector from -> to, in degrees,
// measured from the longitude axis.
func Heading(from, to domain.Point) float64 {
	return math.Atan2(to.Lat-from.Lat, to.Lng-from.Lng) * 180 / math.Pi
}

// Bearing is the compass bearing from -> to in [0, 360).
func Bearing(from, to domain.Point) float64 {
	y := math.Sin((to.Lng-from.Lng)*math.Pi/180.0) * math.Cos(to.Lat*math.Pi/180.0)
	x := math.Cos(from.Lat*math.Pi/180.0)*math.Sin(to.Lat*math.Pi/180.0) - math.Sin(from.Lat*math.Pi/180.0)*math.Cos(to.Lat*math.Pi/180.0)*math.Cos((to.Lng-from.Lng)*math.Pi/180.0)
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}

// PathLength sums the planar segment lengths of pts, in degrees.
func PathLength(pts []domain.Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += PlanarDistance(pts[i-1], pts[i])
	}
	return total
}

// PathLengthMeters sums the haversine segment lengths of pts.
func PathLengthMeters(pts []domain.Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += Haversine(pts[i-1], pts[i])
	}
	return total
}

// EstimatedTravelTime converts the planar path length to kilometres and
// assumes 30 km/h, never less than five minutes. Fewer than two points is zero.
func EstimatedTravelTime(pts []domain.Point) time.Duration {
	if len(pts) < 2 {
		return 0
	}
	km := PathLength(pts) * kmPerDegree
	minutes := math.Round(km / avgSpeedKmh * 60)
	if minutes < 5 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

// Round rounds p to the given number of decimals.
func Round(p domain.Point, decimals int) domain.Point {
	f := math.Pow(10, float64(decimals))
	return domain.Point{
		Lat: math.Round(p.Lat*f) / f,
		Lng: math.Round(p.Lng*f) / f,
	}
}

// Key renders p at fixed precision. Two positions with the same key are the
// same position for reporting purposes.
func Key(p domain.Point, decimals int) string {
	return strconv.FormatFloat(p.Lat, 'f', decimals, 64) + "," + strconv.FormatFloat(p.Lng, 'f', decimals, 64)
}

// Lerp interpolates between a and b; t is clamped to [0, 1].
func Lerp(a, b domain.Point, t float64) domain.Point {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return domain.Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// Valid reports whether p is a finite coordinate inside the lat/lng ranges.
func Valid(p domain.Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
