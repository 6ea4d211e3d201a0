package plan

import "github.com/larsbrubaker/MatterSlice/geom"

// A Sink receives the emitted layer. It maps moves onto machine
// commands; the planner assumes nothing about the dialect. Errors are
// forwarded to the caller unchanged and the planner does not retry.
type Sink interface {
	SwitchExtruder(extruder int) error
	WriteRetraction(moveTimeS float64, forced bool) error
	WriteComment(s string) error
	WriteFan(percent int) error
	WriteMove(pt geom.Point, speedMMS float64, lineWidthUM int64) error
	UpdateLayerPrintTime() error
}

// Emit drains the queue into the sink. It is terminal: the queue is
// sealed and must not be mutated afterwards. Emitting an empty plan
// writes nothing.
func (p *Planner) Emit(sink Sink, layerThicknessUM int64) error {
	if len(p.paths) == 0 {
		return nil
	}
	for _, rec := range p.paths {
		rec.done = true
	}

	machinePos := p.origin
	extruder := p.startExtruder
	var lastCfg *Config

	for i := 0; i < len(p.paths); i++ {
		rec := p.paths[i]

		if rec.extruder != extruder {
			// the tool change supersedes any retract on this path
			extruder = rec.extruder
			if err := sink.SwitchExtruder(extruder); err != nil {
				return err
			}
		} else if rec.retract != RetractNone {
			moveTime := 0.0
			if rec.cfg.IsTravel() && rec.speed > 0 && len(rec.points) > 0 {
				d := machinePos.DistanceTo(rec.points[0]) + rec.length()
				moveTime = float64(d) / MicronsPerMM / rec.speed
			}
			if err := sink.WriteRetraction(moveTime, rec.retract == RetractForce); err != nil {
				return err
			}
		}

		if rec.cfg != lastCfg && rec.cfg != p.travelCfg {
			if err := sink.WriteComment("TYPE:" + rec.cfg.Tag); err != nil {
				return err
			}
			lastCfg = rec.cfg
		}

		if rec.fan >= 0 {
			if err := sink.WriteFan(rec.fan); err != nil {
				return err
			}
		}

		if len(rec.points) == 0 {
			continue
		}

		if !rec.cfg.IsTravel() && rec.isShortHop(machinePos) {
			skip, pos, err := p.emitCoalesced(sink, i, machinePos)
			if err != nil {
				return err
			}
			if skip > i {
				i = skip
				machinePos = pos
				continue
			}
		}

		if rec.cfg.Spiralize && p.lastSpiralize(i) {
			pos, err := p.emitSpiralized(sink, rec, machinePos, layerThicknessUM)
			if err != nil {
				return err
			}
			machinePos = pos
			continue
		}

		pos, err := p.emitPlain(sink, rec, machinePos)
		if err != nil {
			return err
		}
		machinePos = pos
	}

	return sink.UpdateLayerPrintTime()
}

// emitCoalesced folds a run of tiny single-point extrusions into
// half as many moves through pair midpoints, widening each line so
// the deposited volume is preserved. It reports the index of the last
// consumed path; when the run is too short to bother it reports the
// starting index untouched.
func (p *Planner) emitCoalesced(sink Sink, n int, machinePos geom.Point) (int, geom.Point, error) {
	rec := p.paths[n]
	width := rec.cfg.LineWidthUM

	p0 := rec.points[0]
	end := n + 1
	for end < len(p.paths) && len(p.paths[end].points) == 1 &&
		p.paths[end].points[0].Sub(p0).ShorterThan(width*2) {
		p0 = p.paths[end].points[0]
		end++
	}
	if p.paths[end-1].cfg == p.travelCfg {
		end--
	}
	if end <= n+2 {
		return n, machinePos, nil
	}

	prev := machinePos
	pos := machinePos
	for x := n; x < end-1; x += 2 {
		a := p.paths[x].points[0]
		b := p.paths[x+1].points[0]
		// both replaced segments feed the width, so the bead keeps
		// the deposited volume: newWidth*newLen ~ width*oldLen
		oldLen := prev.DistanceTo(a) + a.DistanceTo(b)
		mid := geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: a.Z}
		newLen := pos.DistanceTo(mid)
		if newLen > 0 {
			w := width * oldLen / newLen
			if err := sink.WriteMove(mid, rec.speed, w); err != nil {
				return 0, pos, err
			}
			pos = mid
		}
		prev = b
	}
	last := p.paths[end-1].points[0]
	if err := sink.WriteMove(last, rec.speed, width); err != nil {
		return 0, pos, err
	}
	return end - 1, last, nil
}

// lastSpiralize reports whether no path after index i also spiralizes.
// Only the final spiralize path of a layer carries the Z ramp.
func (p *Planner) lastSpiralize(i int) bool {
	for _, rec := range p.paths[i+1:] {
		if rec.cfg.Spiralize {
			return false
		}
	}
	return true
}

// emitSpiralized walks the path while ramping Z across the layer in
// proportion to the arclength covered.
func (p *Planner) emitSpiralized(sink Sink, rec *path, machinePos geom.Point, layerThicknessUM int64) (geom.Point, error) {
	total := machinePos.DistanceTo(rec.points[0]) + rec.length()
	if total == 0 {
		return machinePos, nil
	}
	var walked int64
	pos := machinePos
	for _, pt := range rec.points {
		walked += pos.DistanceTo(pt)
		out := pt
		out.Z = p.z + int64(float64(layerThicknessUM)*float64(walked)/float64(total)+0.5)
		if err := sink.WriteMove(out, rec.speed, rec.cfg.LineWidthUM); err != nil {
			return pos, err
		}
		pos = pt
	}
	return pos, nil
}

// emitPlain writes the path point by point. Closed wall loops get
// their seam overlap trimmed off the tail, and the head is then
// walked back onto the seam without extruding.
func (p *Planner) emitPlain(sink Sink, rec *path, machinePos geom.Point) (geom.Point, error) {
	points := rec.points
	loopStart := machinePos
	trimmed := false

	if (rec.cfg.Tag == TagWallOuter || rec.cfg.Tag == TagWallInner) &&
		p.overlap < 1 &&
		len(points) > 0 && points[len(points)-1].SameXY(loopStart) {
		d := int64(float64(rec.cfg.LineWidthUM) * (1 - p.overlap))
		if d > 0 {
			points = points.Trim(d)
			trimmed = true
		}
	}

	pos := machinePos
	for _, pt := range points {
		w := rec.cfg.LineWidthUM
		if pt.Width != 0 {
			w = pt.Width
		}
		if err := sink.WriteMove(pt, rec.speed, w); err != nil {
			return pos, err
		}
		pos = pt
	}

	if trimmed {
		// rest the head on the seam without extruding
		// TODO: retract during the seam return once the sink can
		// interleave retraction with motion.
		seam := loopStart
		seam.Z = p.z
		if err := sink.WriteMove(seam, rec.speed, 0); err != nil {
			return pos, err
		}
		pos = seam
	}
	return pos, nil
}
