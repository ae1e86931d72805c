package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// ErrMalformedCoordinates is returned when a coordinate string cannot be parsed.
var ErrMalformedCoordinates = errors.New("malformed coordinates")

// coordPartRe matches one half of a coordinate string with an optional degree
// sign and hemisphere, e.g. "21.1458° N" or "-79.0882".
var coordPartRe = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)\s*°?\s*([NSEWnsew])?$`)

// ValidPoint reports whether p is a finite coordinate within WGS-84 bounds.
func ValidPoint(p Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial great-circle bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

// Destination returns the point reached by travelling distanceKm from start
// along the given initial bearing.
func Destination(start Point, bearingDeg, distanceKm float64) Point {
	delta := distanceKm / EarthRadiusKm
	theta := toRadians(bearingDeg)
	lat1 := toRadians(start.Lat)
	lon1 := toRadians(start.Lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := math.Mod(toDegrees(lon2)+540, 360) - 180
	return Point{Lat: toDegrees(lat2), Lon: lon}
}

// BoundingBox is an axis-aligned latitude/longitude region.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// ParseBoundingBox parses "minLat,maxLat,minLon,maxLon".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box %q: want minLat,maxLat,minLon,maxLon", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bounding box %q: %w", s, err)
		}
		vals[i] = v
	}
	box := BoundingBox{MinLat: vals[0], MaxLat: vals[1], MinLon: vals[2], MaxLon: vals[3]}
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		return BoundingBox{}, fmt.Errorf("bounding box %q: min exceeds max", s)
	}
	return box, nil
}

// ParseCoordinates parses strings like "21.1458° N, 79.0882° E" or
// "21.1458, 79.0882". Southern and western hemispheres negate the value.
func ParseCoordinates(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("%w: %q", ErrMalformedCoordinates, s)
	}
	lat, err := parseCoordPart(parts[0], "NS")
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q", ErrMalformedCoordinates, s)
	}
	lon, err := parseCoordPart(parts[1], "EW")
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q", ErrMalformedCoordinates, s)
	}
	p := Point{Lat: lat, Lon: lon}
	if !ValidPoint(p) {
		return Point{}, fmt.Errorf("%w: %q out of range", ErrMalformedCoordinates, s)
	}
	return p, nil
}

func parseCoordPart(s, hemispheres string) (float64, error) {
	m := coordPartRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, ErrMalformedCoordinates
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	if m[2] == "" {
		return v, nil
	}
	h := strings.ToUpper(m[2])
	if !strings.Contains(hemispheres, h) {
		return 0, ErrMalformedCoordinates
	}
	if h == "S" || h == "W" {
		v = -math.Abs(v)
	}
	return v, nil
}

// FormatCoordinates renders p in the "21.1458° N, 79.0882° E" style.
func FormatCoordinates(p Point) string {
	ns, ew := "N", "E"
	if p.Lat < 0 {
		ns = "S"
	}
	if p.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f° %s, %.4f° %s", math.Abs(p.Lat), ns, math.Abs(p.Lon), ew)
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
