// Package gcode serializes planned layers into RepRap-flavour G-code.
// The Writer implements the planner's Sink: it maps moves, retractions,
// fan and tool commands onto G0/G1/M106-style lines and keeps the
// kinematic time estimate.
package gcode

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/larsbrubaker/MatterSlice/geom"
)

// Config holds the machine-side parameters of the writer.
type Config struct {
	// FilamentDiameterMM sizes the E axis: extrusion amounts are
	// lengths of filament of this diameter.
	FilamentDiameterMM  float64
	ExtrusionMultiplier float64
	RetractionLengthMM  float64
	RetractionSpeedMMS  float64
	// ExtraRetractionOnForceMM is added to forced retractions
	// (tool changes, explicit requests).
	ExtraRetractionOnForceMM float64
}

// A Writer emits G-code to an underlying stream. Create one per
// output file, call SetLayer before each layer's emission, and Flush
// at the end.
type Writer struct {
	bw  *bufio.Writer
	cfg Config

	pos         geom.Point
	eMM         float64
	retracted   bool
	extraUnret  float64
	extruder    int
	fanPercent  int
	thicknessUM int64

	layerTimeS float64
	totalTimeS float64
}

// NewWriter returns a writer with the given machine config. A zero
// ExtrusionMultiplier is treated as 1.
func NewWriter(w io.Writer, cfg *Config) *Writer {
	c := *cfg
	if c.ExtrusionMultiplier == 0 {
		c.ExtrusionMultiplier = 1
	}
	return &Writer{
		bw:         bufio.NewWriter(w),
		cfg:        c,
		fanPercent: -1,
	}
}

// Preamble writes the program header: millimetre units, absolute
// coordinates, relative extrusion.
func (g *Writer) Preamble() error {
	_, err := fmt.Fprint(g.bw, "G21\nG90\nM83\n")
	return err
}

// Postamble switches off the part fan and the hotend and ends the
// program. It does not move the head.
func (g *Writer) Postamble() error {
	_, err := fmt.Fprint(g.bw, "M107\nM104 S0\nM2\n")
	return err
}

// SetLayer positions the writer at the start of a layer of the given
// thickness. The thickness sizes every extrusion until the next call.
func (g *Writer) SetLayer(index int, thicknessUM int64) error {
	g.thicknessUM = thicknessUM
	_, err := fmt.Fprintf(g.bw, ";LAYER:%d\n", index)
	return err
}

// Position returns the machine position of the last written move.
func (g *Writer) Position() geom.Point {
	return g.pos
}

// LayerTimeS returns the accumulated time of the current layer.
func (g *Writer) LayerTimeS() float64 {
	return g.layerTimeS
}

// TotalTimeS returns the print time over all completed layers.
func (g *Writer) TotalTimeS() float64 {
	return g.totalTimeS
}

// filamentAreaMM2 is the cross-section used to convert deposited
// volume into E-axis millimetres.
func (g *Writer) filamentAreaMM2() float64 {
	r := g.cfg.FilamentDiameterMM / 2
	return math.Pi * r * r
}

func mm(um int64) float64 {
	return float64(um) / geom.MicronsPerMM
}

// WriteMove emits one head move. A zero line width travels with G0;
// otherwise the move extrudes a bead lineWidth wide and one layer
// thick over the travelled distance.
func (g *Writer) WriteMove(pt geom.Point, speedMMS float64, lineWidthUM int64) error {
	distMM := mm(g.pos.DistanceTo(pt))
	if speedMMS > 0 {
		g.layerTimeS += distMM / speedMMS
	}

	if lineWidthUM == 0 {
		err := g.writeXYZF("G0", pt, speedMMS, 0)
		g.pos = pt
		return err
	}

	if g.retracted {
		if err := g.writeUnretract(); err != nil {
			return err
		}
	}
	e := mm(lineWidthUM) * mm(g.thicknessUM) * distMM / g.filamentAreaMM2() * g.cfg.ExtrusionMultiplier
	g.eMM += e
	err := g.writeXYZF("G1", pt, speedMMS, e)
	g.pos = pt
	return err
}

func (g *Writer) writeXYZF(op string, pt geom.Point, speedMMS, e float64) error {
	if _, err := fmt.Fprintf(g.bw, "%s F%.0f X%.3f Y%.3f", op, speedMMS*60, mm(pt.X), mm(pt.Y)); err != nil {
		return err
	}
	if pt.Z != g.pos.Z {
		if _, err := fmt.Fprintf(g.bw, " Z%.3f", mm(pt.Z)); err != nil {
			return err
		}
	}
	if e != 0 {
		if _, err := fmt.Fprintf(g.bw, " E%.5f", e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(g.bw, "\n")
	return err
}

// WriteRetraction pulls the filament back before a travel. Forced
// retractions add the configured extra length; repeated requests while
// already retracted write nothing.
func (g *Writer) WriteRetraction(moveTimeS float64, forced bool) error {
	if g.cfg.RetractionLengthMM <= 0 || g.retracted {
		return nil
	}
	length := g.cfg.RetractionLengthMM
	if forced {
		length += g.cfg.ExtraRetractionOnForceMM
	}
	g.retracted = true
	g.extraUnret = length - g.cfg.RetractionLengthMM
	if g.cfg.RetractionSpeedMMS > 0 {
		g.layerTimeS += length / g.cfg.RetractionSpeedMMS
	}
	_, err := fmt.Fprintf(g.bw, "G1 F%.0f E%.5f\n", g.cfg.RetractionSpeedMMS*60, -length)
	return err
}

func (g *Writer) writeUnretract() error {
	g.retracted = false
	length := g.cfg.RetractionLengthMM + g.extraUnret
	g.extraUnret = 0
	if g.cfg.RetractionSpeedMMS > 0 {
		g.layerTimeS += length / g.cfg.RetractionSpeedMMS
	}
	_, err := fmt.Fprintf(g.bw, "G1 F%.0f E%.5f\n", g.cfg.RetractionSpeedMMS*60, length)
	return err
}

// SwitchExtruder retracts and selects the given tool.
func (g *Writer) SwitchExtruder(extruder int) error {
	if extruder == g.extruder {
		return nil
	}
	if err := g.WriteRetraction(0, true); err != nil {
		return err
	}
	g.extruder = extruder
	_, err := fmt.Fprintf(g.bw, "T%d\n", extruder)
	return err
}

// WriteComment emits one comment line.
func (g *Writer) WriteComment(s string) error {
	_, err := fmt.Fprintf(g.bw, ";%s\n", s)
	return err
}

// WriteFan sets the part-cooling fan, scaling percent onto the
// 0..255 PWM range. Repeats of the current value write nothing.
func (g *Writer) WriteFan(percent int) error {
	if percent == g.fanPercent {
		return nil
	}
	g.fanPercent = percent
	if percent == 0 {
		_, err := fmt.Fprint(g.bw, "M107\n")
		return err
	}
	_, err := fmt.Fprintf(g.bw, "M106 S%d\n", percent*255/100)
	return err
}

// UpdateLayerPrintTime folds the finished layer into the total
// estimate and resets the per-layer clock.
func (g *Writer) UpdateLayerPrintTime() error {
	g.totalTimeS += g.layerTimeS
	g.layerTimeS = 0
	return nil
}

// Flush writes any buffered output.
func (g *Writer) Flush() error {
	return g.bw.Flush()
}
