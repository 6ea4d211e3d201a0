// Package geom provides integer 2d/3d points and polygons in micrometre
// units, as used by the layer planner. All arithmetic stays in integer
// micrometres; conversion to millimetres happens only at the edges, for
// time and speed math.
package geom

import "math"

// MicronsPerMM is the number of micrometres in a millimetre.
const MicronsPerMM = 1000

// A Point is a position (or displacement) in integer micrometres.
// Z is optional and carried through unchanged by planar operations.
// Width, when non-zero, overrides the extrusion width of the segment
// that ends at this point; zero means "use the governing width"
// (which for a travel is zero, i.e. no extrusion).
type Point struct {
	X, Y, Z int64
	Width   int64
}

// XY returns a point with the given planar coordinates.
func XY(x, y int64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q, componentwise on X and Y.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z}
}

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z}
}

// SameXY reports whether p and q have equal planar coordinates.
func (p Point) SameXY(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

// maxLength is the largest planar length that squares without
// overflowing int64.
const maxLength = 3037000499

// LengthSquared returns the squared planar length of p, saturating
// at the largest representable value.
func (p Point) LengthSquared() int64 {
	if p.X > maxLength || p.X < -maxLength || p.Y > maxLength || p.Y < -maxLength {
		return math.MaxInt64
	}
	x2, y2 := p.X*p.X, p.Y*p.Y
	if x2 > math.MaxInt64-y2 {
		return math.MaxInt64
	}
	return x2 + y2
}

// Length returns the planar length of p in micrometres.
func (p Point) Length() int64 {
	if p.X == 0 {
		return abs(p.Y)
	}
	if p.Y == 0 {
		return abs(p.X)
	}
	return int64(math.Sqrt(float64(p.X)*float64(p.X) + float64(p.Y)*float64(p.Y)))
}

// LengthMM returns the planar length of p in millimetres.
func (p Point) LengthMM() float64 {
	return float64(p.Length()) / MicronsPerMM
}

// ManhattanLength returns |X|+|Y|.
func (p Point) ManhattanLength() int64 {
	return abs(p.X) + abs(p.Y)
}

// ShorterThan reports whether the planar length of p is at most d,
// without taking a square root.
func (p Point) ShorterThan(d int64) bool {
	if d < 0 {
		return false
	}
	if p.X > d || p.X < -d || p.Y > d || p.Y < -d {
		return false
	}
	if d > maxLength/2 {
		// the sum of squares could overflow int64; compare in floats
		x, y, fd := float64(p.X), float64(p.Y), float64(d)
		return x*x+y*y <= fd*fd
	}
	return p.X*p.X+p.Y*p.Y <= d*d
}

// LongerThan reports whether the planar length of p exceeds d.
func (p Point) LongerThan(d int64) bool {
	return !p.ShorterThan(d)
}

// DistanceTo returns the planar distance from p to q in micrometres.
func (p Point) DistanceTo(q Point) int64 {
	return q.Sub(p).Length()
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
