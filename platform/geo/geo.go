// Package geo provides geodesy primitives shared by the proximity gate,
// the territory engine, and the route optimizer.
// This is part of the platform layer and contains no business logic.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// FeetPerMeter converts meters to feet for user-facing distance messages.
const FeetPerMeter = 3.281

// Point is a geographic coordinate (WGS 84).
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// Contains reports whether p lies within the box, edges inclusive.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MetersToFeet converts a distance in meters to feet.
func MetersToFeet(meters float64) float64 {
	return meters * FeetPerMeter
}

// BoundingBox returns the axis-aligned bounds of a vertex set.
// Returns a zero Bounds for an empty set.
func BoundingBox(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	b := Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLng: points[0].Lng, MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b
}

// PolygonContains reports whether p lies inside the polygon using ray casting:
// a horizontal ray from p toggles an inside flag at each edge crossing.
// Boundary rule: the crossing test is half-open ((yi > y) != (yj > y)), so a
// point on a polygon's lower edge counts inside while a point on the matching
// upper edge does not. The polygon need not be explicitly closed; the last
// vertex connects back to the first.
func PolygonContains(polygon []Point, p Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i, j = i+1, i {
		yi, xi := polygon[i].Lat, polygon[i].Lng
		yj, xj := polygon[j].Lat, polygon[j].Lng

		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// ClosePolygon returns the polygon with the first vertex appended as the last,
// if it is not already closed.
func ClosePolygon(polygon []Point) []Point {
	if len(polygon) < 3 {
		return polygon
	}
	if polygon[0] == polygon[len(polygon)-1] {
		return polygon
	}
	closed := make([]Point, 0, len(polygon)+1)
	closed = append(closed, polygon...)
	return append(closed, polygon[0])
}

// FilterCapture thins a drag-gesture sample sequence: a sample is kept only if
// it is at least minSpacingMeters from the previously kept sample. The first
// sample is always kept.
func FilterCapture(samples []Point, minSpacingMeters float64) []Point {
	if len(samples) == 0 {
		return nil
	}

	kept := []Point{samples[0]}
	for _, s := range samples[1:] {
		if Haversine(kept[len(kept)-1], s) >= minSpacingMeters {
			kept = append(kept, s)
		}
	}
	return kept
}
