package model

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm returns the great-circle distance to p2 using the haversine
// formula. Good enough for ranking candidate teams; this is not a geodesy
// library.
func (p Point) DistanceKm(p2 Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	dLat := (p2.Lat - p.Lat) * math.Pi / 180
	dLon := (p2.Lon - p.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// SnapToGrid rounds the point to the given grid size in degrees. Used by the
// hotspot aggregation to group nearby requests.
func (p Point) SnapToGrid(size float64) Point {
	if size <= 0 {
		return p
	}
	return Point{
		Lat: math.Round(p.Lat/size) * size,
		Lon: math.Round(p.Lon/size) * size,
	}
}
