package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/skirmish/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Arena coordinates are Y-up: the ground plane is XZ. Capture areas are stored
// as 2D polygons with X mapped to X and Z mapped to Y.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Vec3FromString parses "x,y,z" (or "x,z" on the ground plane) into a vector.
func Vec3FromString(coords string) (core.Vec3, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, ErrInvalidCoordinates
		}
		vals[i] = v
	}
	if len(vals) == 2 {
		return core.Vec3{X: vals[0], Z: vals[1]}, nil
	}
	return core.Vec3{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// Area is a capture area on the ground plane.
type Area struct {
	poly geom.Polygon
}

// NewArea builds an area from at least three XZ points. The ring is closed
// automatically.
func NewArea(points [][2]float64) (Area, error) {
	if len(points) < 3 {
		return Area{}, fmt.Errorf("area needs at least 3 points, got %d", len(points))
	}
	flat := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		flat = append(flat, p[0], p[1])
	}
	first, last := points[0], points[len(points)-1]
	if first != last {
		flat = append(flat, first[0], first[1])
	}
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	return Area{poly: geom.NewPolygon([]geom.LineString{ring})}, nil
}

// CircleArea approximates a circle of radius r around (cx, cz).
func CircleArea(cx, cz, r float64, segments int) (Area, error) {
	if r <= 0 {
		return Area{}, fmt.Errorf("circle radius must be positive, got %v", r)
	}
	if segments < 8 {
		segments = 8
	}
	pts := make([][2]float64, segments)
	for i := range pts {
		x, z := circlePoint(float64(i) / float64(segments))
		pts[i] = [2]float64{cx + x*r, cz + z*r}
	}
	return NewArea(pts)
}

// Contains reports whether the ground position (x, z) is inside the area or on
// its boundary.
func (a Area) Contains(x, z float64) bool {
	if a.poly.IsEmpty() {
		return false
	}
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: z}, Type: geom.DimXY})
	return geom.Intersects(a.poly.AsGeometry(), pt.AsGeometry())
}

// Centroid returns the area centre on the ground plane.
func (a Area) Centroid() core.Vec3 {
	xy, ok := a.poly.Centroid().XY()
	if !ok {
		return core.Vec3{}
	}
	return core.Vec3{X: xy.X, Z: xy.Y}
}

// WKT returns the area outline, used when recording zone metadata.
func (a Area) WKT() string {
	return a.poly.AsText()
}

// Georef anchors the arena origin on the globe.
type Georef struct {
	Latitude  float64
	Longitude float64
}

// ToWorld converts a lat/long pair (EPSG:4326) to web-mercator metres
// (EPSG:3857).
func (g Georef) ToWorld(lat, lon float64) core.Vec3 {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return core.Vec3{X: x, Y: y}
}

// Origin returns the arena origin in EPSG:3857.
func (g Georef) Origin() core.Vec3 {
	return g.ToWorld(g.Latitude, g.Longitude)
}

// OriginPoint returns the arena origin as a geometry point.
func (g Georef) OriginPoint() geom.Point {
	o := g.Origin()
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: o.X, Y: o.Y}, Type: geom.DimXY})
}
