package geom

// A Polygon is an ordered sequence of points. Whether it is walked as
// a closed loop is a property of the traversal, not of the data.
type Polygon []Point

// Length returns the arclength over the stored points, in micrometres.
// The loop-closing segment is not included.
func (p Polygon) Length() int64 {
	var total int64
	for i := 1; i < len(p); i++ {
		total += p[i-1].DistanceTo(p[i])
	}
	return total
}

// Trim returns a copy of p with d micrometres of arclength removed
// from the tail, interpolating a new final point along the last
// surviving segment. Trimming by the full length or more yields an
// empty polygon.
func (p Polygon) Trim(d int64) Polygon {
	if len(p) == 0 {
		return nil
	}
	if d <= 0 {
		out := make(Polygon, len(p))
		copy(out, p)
		return out
	}
	total := p.Length()
	if d >= total {
		return nil
	}
	remain := total - d
	out := Polygon{p[0]}
	var walked int64
	for i := 1; i < len(p); i++ {
		seg := p[i-1].DistanceTo(p[i])
		if walked+seg < remain {
			out = append(out, p[i])
			walked += seg
			continue
		}
		need := remain - walked
		if need == seg {
			out = append(out, p[i])
		} else if need > 0 {
			t := float64(need) / float64(seg)
			last := p[i-1]
			out = append(out, Point{
				X:     last.X + int64(float64(p[i].X-last.X)*t),
				Y:     last.Y + int64(float64(p[i].Y-last.Y)*t),
				Z:     p[i].Z,
				Width: p[i].Width,
			})
		}
		break
	}
	return out
}

// Polygons is an unordered collection of polygons. An outline plus its
// holes form one island.
type Polygons []Polygon

// Inside reports whether pt lies inside the polygon set, using the
// even-odd rule with every polygon treated as closed.
func (ps Polygons) Inside(pt Point) bool {
	crossings := 0
	for _, poly := range ps {
		n := len(poly)
		if n < 3 {
			continue
		}
		for i := 0; i < n; i++ {
			a := poly[i]
			b := poly[(i+1)%n]
			if (a.Y > pt.Y) != (b.Y > pt.Y) {
				x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
				if x > pt.X {
					crossings++
				}
			}
		}
	}
	return crossings%2 == 1
}

// Bounds returns the bounding box of the polygon set. The second
// result is false if the set has no points.
func (ps Polygons) Bounds() (min, max Point, ok bool) {
	for _, poly := range ps {
		for _, p := range poly {
			if !ok {
				min, max, ok = p, p, true
				continue
			}
			if p.X < min.X {
				min.X = p.X
			}
			if p.Y < min.Y {
				min.Y = p.Y
			}
			if p.X > max.X {
				max.X = p.X
			}
			if p.Y > max.Y {
				max.Y = p.Y
			}
		}
	}
	return min, max, ok
}
