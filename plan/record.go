package plan

import "github.com/larsbrubaker/MatterSlice/geom"

// Retract is the retraction request attached to a path. Values order
// None < Requested < Force and only ever increase over a path's
// lifetime.
type Retract int

const (
	RetractNone Retract = iota
	RetractRequested
	RetractForce
)

// Max returns the stronger of the two requests. All assignments to a
// path's retract field go through Max so Force is never downgraded.
func (r Retract) Max(o Retract) Retract {
	if o > r {
		return o
	}
	return r
}

func (r Retract) String() string {
	switch r {
	case RetractNone:
		return "none"
	case RetractRequested:
		return "requested"
	case RetractForce:
		return "force"
	}
	return "invalid"
}

// A path is one contiguous machine action: a run of moves sharing one
// config and extruder, or a point-less fan record. Its first point is
// implicitly wherever the head is when the path is executed.
//
// Only the tail of the planner's queue is mutable; done seals the
// tail early when the next append must open a fresh path.
type path struct {
	cfg      *Config
	extruder int
	points   geom.Polygon
	speed    float64 // mm/s; starts at cfg.SpeedMMS, lowered only by FinalizeLayer
	retract  Retract
	fan      int // percent, -1 = leave unchanged
	done     bool
}

func newPath(cfg *Config, extruder int) *path {
	return &path{cfg: cfg, extruder: extruder, speed: cfg.SpeedMMS, fan: -1}
}

func (p *path) append(pt geom.Point) {
	if p.done {
		panic("plan: append to sealed path")
	}
	p.points = append(p.points, pt)
}

func (p *path) length() int64 {
	return p.points.Length()
}

// isShortHop reports whether the path is a single point closer than
// twice its line width to ref. Runs of such paths are candidates for
// coalescing at emission.
func (p *path) isShortHop(ref geom.Point) bool {
	return len(p.points) == 1 && p.points[0].Sub(ref).ShorterThan(p.cfg.LineWidthUM*2)
}
