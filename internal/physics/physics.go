// Package physics holds a minimal collision world for hitscan resolution.
package physics

import (
	"math"
	"sort"

	"github.com/OCAP2/skirmish/pkg/core"
)

// ColliderID identifies a collider in a World.
type ColliderID uint32

// ShapeKind selects the collider geometry.
type ShapeKind uint8

const (
	Sphere ShapeKind = iota
	Box
)

// Layer groups colliders by role.
type Layer uint8

const (
	LayerDefault Layer = iota
	LayerTarget
	LayerPillar
	LayerEnvironment
)

func (l Layer) String() string {
	switch l {
	case LayerTarget:
		return "target"
	case LayerPillar:
		return "pillar"
	case LayerEnvironment:
		return "environment"
	default:
		return "default"
	}
}

// Collider is a static shape owned by an entity. Colliders sharing a
// Transform belong to the same entity.
type Collider struct {
	ID        ColliderID
	Transform uint32
	Shape     ShapeKind
	Center    core.Vec3
	Radius    float64   // Sphere
	Extents   core.Vec3 // Box half-size
	Enabled   bool
	Layer     Layer
}

// Hit describes a ray intersection.
type Hit struct {
	Collider  ColliderID
	Transform uint32
	Layer     Layer
	Point     core.Vec3
	Normal    core.Vec3
	Distance  float64
}

// World is a set of colliders. Not safe for concurrent use.
type World struct {
	next      ColliderID
	colliders map[ColliderID]*Collider
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{colliders: make(map[ColliderID]*Collider)}
}

// Add registers c, assigns it an ID and returns that ID. The collider starts
// enabled.
func (w *World) Add(c Collider) ColliderID {
	w.next++
	c.ID = w.next
	c.Enabled = true
	w.colliders[c.ID] = &c
	return c.ID
}

// Remove deletes a collider. It reports whether it existed.
func (w *World) Remove(id ColliderID) bool {
	if _, ok := w.colliders[id]; !ok {
		return false
	}
	delete(w.colliders, id)
	return true
}

// Enable toggles whether a collider takes part in raycasts.
func (w *World) Enable(id ColliderID, enabled bool) bool {
	c, ok := w.colliders[id]
	if !ok {
		return false
	}
	c.Enabled = enabled
	return true
}

// Get returns a copy of a collider.
func (w *World) Get(id ColliderID) (Collider, bool) {
	c, ok := w.colliders[id]
	if !ok {
		return Collider{}, false
	}
	return *c, true
}

// Len returns the number of colliders.
func (w *World) Len() int {
	return len(w.colliders)
}

// Raycast returns the nearest enabled collider hit within maxDist along dir.
// Colliders listed in ignore are skipped. Ties resolve to the lowest ID.
func (w *World) Raycast(origin, dir core.Vec3, maxDist float64, ignore ...ColliderID) (Hit, bool) {
	dir = dir.Normalize()
	if dir.IsZero() || maxDist <= 0 {
		return Hit{}, false
	}

	ids := make([]ColliderID, 0, len(w.colliders))
	for id := range w.colliders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		best  Hit
		found bool
	)
next:
	for _, id := range ids {
		c := w.colliders[id]
		if !c.Enabled {
			continue
		}
		for _, ig := range ignore {
			if ig == id {
				continue next
			}
		}

		var (
			t      float64
			normal core.Vec3
			ok     bool
		)
		switch c.Shape {
		case Sphere:
			t, normal, ok = raySphere(origin, dir, c.Center, c.Radius)
		case Box:
			t, normal, ok = rayBox(origin, dir, c.Center, c.Extents)
		}
		if !ok || t > maxDist {
			continue
		}
		if !found || t < best.Distance {
			best = Hit{
				Collider:  c.ID,
				Transform: c.Transform,
				Layer:     c.Layer,
				Point:     origin.Add(dir.Scale(t)),
				Normal:    normal,
				Distance:  t,
			}
			found = true
		}
	}
	return best, found
}

func raySphere(origin, dir, center core.Vec3, radius float64) (float64, core.Vec3, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, core.Vec3{}, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		// origin inside the sphere
		t = -b + sq
	}
	if t < 0 {
		return 0, core.Vec3{}, false
	}
	p := origin.Add(dir.Scale(t))
	return t, p.Sub(center).Normalize(), true
}

func rayBox(origin, dir, center, extents core.Vec3) (float64, core.Vec3, bool) {
	lo := center.Sub(extents)
	hi := center.Add(extents)
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	mn := [3]float64{lo.X, lo.Y, lo.Z}
	mx := [3]float64{hi.X, hi.Y, hi.Z}

	tmin, tmax := math.Inf(-1), math.Inf(1)
	axis, sign := -1, 0.0
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < mn[i] || o[i] > mx[i] {
				return 0, core.Vec3{}, false
			}
			continue
		}
		t1 := (mn[i] - o[i]) / d[i]
		t2 := (mx[i] - o[i]) / d[i]
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, core.Vec3{}, false
		}
	}
	if tmax < 0 {
		return 0, core.Vec3{}, false
	}
	t := tmin
	if t < 0 {
		t = 0
	}

	var n core.Vec3
	switch axis {
	case 0:
		n.X = sign
	case 1:
		n.Y = sign
	case 2:
		n.Z = sign
	}
	return t, n, true
}
