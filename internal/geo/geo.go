package geo

import (
	"math"
)

// Constants
const (
	EarthRadiusKm = 6371.0 // Mean Earth radius used for great-circle distances

	// Coordinate comparisons treat anything closer than this (in degrees)
	// as the same point. Position reports carry far less precision.
	Epsilon = 1e-10
)

// Point is a WGS84 position in decimal degrees
type Point struct {
	Lat float64
	Lon float64
}

// Bounds is a latitude/longitude bounding box
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Segment is a straight line between two points, treated planar
// (lon as x, lat as y), which holds up at the scale of a few hundred km
type Segment struct {
	Start Point
	End   Point
}

// Distance returns the haversine great-circle distance between two points in km
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundsContains reports whether p lies within b, bounds inclusive
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// PolygonContains reports whether p lies inside the ring using the
// ray-casting parity test. The ring does not need to be closed; the last
// vertex is joined back to the first. Callers are expected to pre-filter
// with a bounding box check; this is the authoritative test.
func PolygonContains(ring []Point, p Point) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi := ring[i]
		vj := ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLon := (vj.Lon-vi.Lon)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if p.Lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// samePoint reports whether two points coincide within Epsilon on both axes
func samePoint(a, b Point) bool {
	return math.Abs(a.Lat-b.Lat) < Epsilon && math.Abs(a.Lon-b.Lon) < Epsilon
}

// SegmentsIntersect reports whether two segments properly cross.
//
// Degenerate (zero-length) segments never intersect anything. Segments that
// merely share an endpoint do not count as crossing: consecutive legs of a
// flight path always touch at a vertex and must not look like a loop.
// Parallel segments intersect only when colinear with overlapping extents.
// Otherwise the standard line-intersection parameters must both fall
// strictly inside (0,1): the crossing has to pass through the interior of
// both segments, not graze an end.
//
// Called O(n²) times per detection pass; no allocation.
func SegmentsIntersect(s1, s2 Segment) bool {
	x1, y1 := s1.Start.Lon, s1.Start.Lat
	x2, y2 := s1.End.Lon, s1.End.Lat
	x3, y3 := s2.Start.Lon, s2.Start.Lat
	x4, y4 := s2.End.Lon, s2.End.Lat

	if samePoint(s1.Start, s1.End) || samePoint(s2.Start, s2.End) {
		return false
	}

	if samePoint(s1.Start, s2.Start) || samePoint(s1.Start, s2.End) ||
		samePoint(s1.End, s2.Start) || samePoint(s1.End, s2.End) {
		return false
	}

	d := (y4-y3)*(x2-x1) - (x4-x3)*(y2-y1)

	if math.Abs(d) < Epsilon {
		// Parallel. A crossing is only possible if the lines are colinear.
		cross := (x3-x1)*(y2-y1) - (y3-y1)*(x2-x1)
		if math.Abs(cross) >= Epsilon {
			return false
		}
		// Colinear: intersecting iff the coordinate ranges overlap on both axes.
		return rangesOverlap(x1, x2, x3, x4) && rangesOverlap(y1, y2, y3, y4)
	}

	ua := ((x4-x3)*(y1-y3) - (y4-y3)*(x1-x3)) / d
	ub := ((x2-x1)*(y1-y3) - (y2-y1)*(x1-x3)) / d

	return ua > 0 && ua < 1 && ub > 0 && ub < 1
}

// rangesOverlap reports whether [min(a1,a2), max(a1,a2)] and
// [min(b1,b2), max(b1,b2)] overlap, endpoints inclusive
func rangesOverlap(a1, a2, b1, b2 float64) bool {
	if a1 > a2 {
		a1, a2 = a2, a1
	}
	if b1 > b2 {
		b1, b2 = b2, b1
	}
	return a1 <= b2+Epsilon && b1 <= a2+Epsilon
}

// PointToSegmentKm returns the distance in km from p to the nearest point
// of segment ab. The projection is done in planar lat/lon space with a
// cosine correction on longitude; the final distance is haversine.
func PointToSegmentKm(p, a, b Point) float64 {
	// Scale longitudes so one degree spans comparable ground distance
	// on both axes at this latitude.
	scale := math.Cos(p.Lat * math.Pi / 180)

	ax, ay := a.Lon*scale, a.Lat
	bx, by := b.Lon*scale, b.Lat
	px, py := p.Lon*scale, p.Lat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq < Epsilon {
		return Distance(p, a)
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	nearest := Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
	return Distance(p, nearest)
}
