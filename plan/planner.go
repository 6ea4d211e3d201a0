package plan

import (
	"fmt"
	"math"

	"github.com/larsbrubaker/MatterSlice/geom"
	"github.com/larsbrubaker/MatterSlice/route"
)

// A Planner owns the move queue for one layer at one Z. Create one
// per layer, queue operations, call FinalizeLayer, then Emit. It is
// not safe for concurrent use; one planner belongs to one goroutine.
type Planner struct {
	paths         []*path
	extruder      int
	startExtruder int        // machine's tool when the planner was created
	lastPos       geom.Point // invariant: last point written to the queue
	origin        geom.Point // head position when the planner was created
	z             int64
	layer         int

	travelCfg *Config
	router    *route.Router

	// lastValidRouter is a diagnostic token only: it remembers which
	// router last produced a route, and is never used to route.
	lastValidRouter *route.Router

	forceRetraction bool
	canAppendTravel bool

	fanPaths []*path

	retractMinUM int64
	overlap      float64
	layerTimeS   float64
}

// NewPlanner creates the planner for one layer. start is the head
// position inherited from the previous layer; z is stamped onto every
// queued point.
func NewPlanner(z int64, layer, extruder int, start geom.Point, settings Settings) (*Planner, error) {
	if settings.TravelSpeedMMS <= 0 || math.IsNaN(settings.TravelSpeedMMS) || math.IsInf(settings.TravelSpeedMMS, 0) {
		return nil, fmt.Errorf("%w: travel speed %v", ErrInvalidInput, settings.TravelSpeedMMS)
	}
	if settings.PerimeterOverlap < 0 || settings.PerimeterOverlap > 1 {
		return nil, fmt.Errorf("%w: perimeter overlap %v", ErrInvalidInput, settings.PerimeterOverlap)
	}
	return &Planner{
		extruder:      extruder,
		startExtruder: extruder,
		lastPos:       start,
		origin:        start,
		z:             z,
		layer:         layer,
		travelCfg:     NewTravelConfig(settings.TravelSpeedMMS),
		retractMinUM:  settings.RetractMinUM,
		overlap:       settings.PerimeterOverlap,
	}, nil
}

// SetRouter gives the planner a router for inside-boundary travel.
// The router is borrowed: it must outlive the planner's queueing
// phase, and a new boundary needs a new router.
func (p *Planner) SetRouter(r *route.Router) {
	p.router = r
}

// LastPosition returns the last point written to the queue. This is
// the planning position, not the machine position, which can lag
// behind for coalesced or trimmed emissions.
func (p *Planner) LastPosition() geom.Point {
	return p.lastPos
}

// LayerTimeS returns the layer time computed by FinalizeLayer.
func (p *Planner) LayerTimeS() float64 {
	return p.layerTimeS
}

// SetExtruder switches the active extruder. Paths queued afterwards
// are stamped with the new index; the emitter writes the tool change
// when it reaches the boundary.
func (p *Planner) SetExtruder(extruder int) {
	p.extruder = extruder
}

// Extruder returns the active extruder index.
func (p *Planner) Extruder() int {
	return p.extruder
}

// ToolChangeRequired reports whether switching to the given extruder
// would be an actual change.
func (p *Planner) ToolChangeRequired(extruder int) bool {
	return extruder != p.extruder
}

// ForceRetract makes the next queued travel carry a forced
// retraction. Extrusion moves do not consume the flag.
func (p *Planner) ForceRetract() {
	p.forceRetraction = true
}

// tail returns the open tail path, or nil if there is none.
func (p *Planner) tail() *path {
	if len(p.paths) == 0 {
		return nil
	}
	return p.paths[len(p.paths)-1]
}

// pathWith returns the tail if it is open under the same config, or
// appends a fresh path.
func (p *Planner) pathWith(cfg *Config, forceNew bool) *path {
	if !forceNew {
		if t := p.tail(); t != nil && t.cfg == cfg && !t.done {
			return t
		}
	}
	np := newPath(cfg, p.extruder)
	p.paths = append(p.paths, np)
	return np
}

func (p *Planner) stamp(pt geom.Point) geom.Point {
	pt.Z = p.z
	return pt
}

// QueueExtrusion appends one extruding move to dest under cfg.
// Consecutive extrusions under the same config fold into one path.
func (p *Planner) QueueExtrusion(dest geom.Point, cfg *Config) error {
	if cfg.IsTravel() {
		return fmt.Errorf("%w: extrusion under zero-width config %q", ErrConfigConflict, cfg.Tag)
	}
	if cfg.SpeedMMS <= 0 || math.IsNaN(cfg.SpeedMMS) || math.IsInf(cfg.SpeedMMS, 0) {
		return fmt.Errorf("%w: speed %v for config %q", ErrInvalidInput, cfg.SpeedMMS, cfg.Tag)
	}
	rec := p.pathWith(cfg, false)
	rec.append(p.stamp(dest))
	p.lastPos = dest
	return nil
}

// QueueTravel appends a non-extruding move to dest, routing inside
// the boundary when a router is set and deciding retraction. With
// forceUnique the move opens its own path and later travels do not
// fold into it.
func (p *Planner) QueueTravel(dest geom.Point, forceUnique bool) {
	rec := p.pathWith(p.travelCfg, forceUnique || !p.canAppendTravel)
	p.canAppendTravel = !forceUnique

	if p.forceRetraction {
		rec.retract = rec.retract.Max(RetractForce)
		p.forceRetraction = false
	}

	if p.router != nil {
		kind, waypoints := p.router.Route(p.lastPos, dest)
		switch kind {
		case route.Interior:
			p.lastValidRouter = p.router
			var inner int64
			prev := p.lastPos
			for _, wp := range waypoints {
				wp.Width = 0
				rec.append(p.stamp(wp))
				inner += prev.DistanceTo(wp)
				prev = wp
			}
			inner += prev.DistanceTo(dest)
			if inner > p.retractMinUM {
				rec.retract = rec.retract.Max(RetractRequested)
			}
		case route.NoPath:
			if dest.Sub(p.lastPos).LongerThan(p.retractMinUM / 10) {
				rec.retract = rec.retract.Max(RetractRequested)
			}
		case route.Direct:
			p.lastValidRouter = p.router
		}
	}

	if dest.Sub(p.lastPos).LongerThan(p.retractMinUM) {
		rec.retract = rec.retract.Max(RetractRequested)
	}

	d := p.stamp(dest)
	d.Width = 0
	rec.append(d)
	p.lastPos = dest
}

// QueuePolygon walks poly starting at the vertex startIdx under cfg.
// Closed-loop configs traverse the whole ring and, for rings of more
// than two vertices, come back to the start; open paths print end to
// end, startIdx picking which end.
func (p *Planner) QueuePolygon(poly geom.Polygon, startIdx int, cfg *Config) error {
	n := len(poly)
	if n == 0 {
		return fmt.Errorf("%w: empty polygon", ErrInvalidInput)
	}
	if startIdx < 0 || startIdx >= n {
		return fmt.Errorf("%w: start index %d out of range [0,%d)", ErrInvalidInput, startIdx, n)
	}

	if !cfg.Spiralize && !poly[startIdx].SameXY(p.lastPos) {
		p.QueueTravel(poly[startIdx], false)
	}

	if cfg.ClosedLoop {
		for k := 1; k < n; k++ {
			if err := p.QueueExtrusion(poly[(startIdx+k)%n], cfg); err != nil {
				return err
			}
		}
		// close the ring so the seam lands back on the start vertex
		if n > 2 {
			if err := p.QueueExtrusion(poly[startIdx], cfg); err != nil {
				return err
			}
		}
		return nil
	}

	if startIdx == 0 {
		for k := 1; k < n; k++ {
			if err := p.QueueExtrusion(poly[k], cfg); err != nil {
				return err
			}
		}
		return nil
	}
	for k := n - 1; k >= 1; k-- {
		if err := p.QueueExtrusion(poly[(startIdx+k)%n], cfg); err != nil {
			return err
		}
	}
	return nil
}

// QueuePolygons queues each polygon in order, starting at vertex 0.
func (p *Planner) QueuePolygons(polys geom.Polygons, cfg *Config) error {
	for _, poly := range polys {
		if err := p.QueuePolygon(poly, 0, cfg); err != nil {
			return err
		}
	}
	return nil
}

// QueuePolygonsOrdered runs the order optimizer from the current
// position and queues every polygon at its chosen start vertex. The
// router, when non-nil, pushes unreachable polygons to the back of
// the order. Reports false iff polys is empty.
func (p *Planner) QueuePolygonsOrdered(polys geom.Polygons, router *route.Router, cfg *Config) (bool, error) {
	if len(polys) == 0 {
		return false, nil
	}
	order, starts := OrderPolygons(polys, p.lastPos, router, cfg.ClosedLoop)
	for _, idx := range order {
		if err := p.QueuePolygon(polys[idx], starts[idx], cfg); err != nil {
			return true, err
		}
	}
	return true, nil
}

// QueueFan adds a point-less path that sets the fan to the given
// percentage. FinalizeLayer may later raise it to the layer's cooling
// floor.
func (p *Planner) QueueFan(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: fan percent %d", ErrInvalidInput, percent)
	}
	rec := newPath(p.travelCfg, p.extruder)
	rec.fan = percent
	rec.done = true // never gains points
	p.paths = append(p.paths, rec)
	p.fanPaths = append(p.fanPaths, rec)
	return nil
}

// FinalizeLayer applies the two global passes over the queue: the
// minimum-layer-time slowdown and the cooling-fan floor. Record count
// and order are preserved.
func (p *Planner) FinalizeLayer(settings Settings) {
	travelTime, extrudeTime := p.times()
	total := travelTime + extrudeTime

	if total < settings.MinLayerTimeS && extrudeTime > 0 {
		ratio := extrudeTime / (settings.MinLayerTimeS - travelTime)
		if ratio > 1 {
			ratio = 1
		}
		for _, rec := range p.paths {
			if rec.cfg.IsTravel() || rec.cfg.Tag == TagBridge {
				continue
			}
			speed := rec.cfg.SpeedMMS * ratio
			if speed < settings.MinPrintSpeedMMS {
				speed = settings.MinPrintSpeedMMS
			}
			rec.speed = speed
		}
		travelTime, extrudeTime = p.times()
		total = travelTime + extrudeTime
	}
	p.layerTimeS = total

	floor := fanFloor(settings, p.layer, p.layerTimeS)
	for _, rec := range p.fanPaths {
		if rec.fan < floor {
			rec.fan = floor
		}
	}
}

// times sums kinematic time over the queue, splitting travel from
// extrusion. The implicit first point of each path is approximated by
// threading the position forward from the planner's origin.
func (p *Planner) times() (travel, extrude float64) {
	pos := p.origin
	for _, rec := range p.paths {
		for _, pt := range rec.points {
			t := float64(pos.DistanceTo(pt)) / MicronsPerMM / rec.speed
			if rec.cfg.IsTravel() {
				travel += t
			} else {
				extrude += t
			}
			pos = pt
		}
	}
	return travel, extrude
}

// MicronsPerMM aliases the geometry constant for time math here.
const MicronsPerMM = float64(geom.MicronsPerMM)

// fanFloor computes the minimum fan percentage forced by the cooling
// policy for a layer of the given duration.
func fanFloor(s Settings, layer int, layerTimeS float64) int {
	if layer < s.FirstLayerAllowFan {
		return 0
	}
	minFanTime := math.Max(s.MinFanSpeedLayerTime, s.MaxFanSpeedLayerTime)
	if layerTimeS >= minFanTime {
		return 0
	}
	if s.MaxFanSpeedLayerTime >= minFanTime {
		return s.FanMaxPercent
	}
	deficit := math.Max(0, minFanTime-layerTimeS)
	span := math.Max(0, minFanTime-s.MaxFanSpeedLayerTime)
	ratio := 0.0
	if span > 0 {
		ratio = math.Min(1, deficit/span)
	}
	return s.FanMinPercent + int(ratio*float64(s.FanMaxPercent-s.FanMinPercent))
}
