// Command layergcode plans SVG layer outlines into G-code. Each
// outline polygon is printed as an outer wall; travels are routed
// inside the outlines and retraction, cooling and minimum-layer-time
// policies come from a TOML machine profile.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustyoz/svg"

	"github.com/larsbrubaker/MatterSlice/gcode"
	"github.com/larsbrubaker/MatterSlice/geom"
	"github.com/larsbrubaker/MatterSlice/plan"
	"github.com/larsbrubaker/MatterSlice/profile"
	"github.com/larsbrubaker/MatterSlice/route"
	"github.com/larsbrubaker/MatterSlice/svgio"
)

// flags
var (
	flagIn      string
	flagOut     string
	flagProfile string

	flagLayers   int
	flagFan      int
	flagValidate bool
	flagQuiet    bool
)

func init() {
	flag.StringVar(&flagIn, "in", "", "svg input file with layer outlines")
	flag.StringVar(&flagOut, "out", "out.gcode", "output file (.gcode, or .svg for a preview)")
	flag.StringVar(&flagProfile, "profile", "", "toml machine/material profile (defaults apply if unset)")
	flag.IntVar(&flagLayers, "layers", 1, "number of layers to repeat the outlines for")
	flag.IntVar(&flagFan, "fan", 100, "part cooling fan percentage")
	flag.BoolVar(&flagValidate, "validate", false, "run the input through the strict svg parser first")
	flag.BoolVar(&flagQuiet, "quiet", false, "suppress progress output")
}

func loadProfile(name string) (*profile.Profile, error) {
	if name == "" {
		p := profile.Default()
		return &p, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return profile.Load(f)
}

func loadOutlines(name string) (geom.Polygons, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return svgio.FromSVG(f)
}

// validateSVG runs the input through the stricter general-purpose
// parser, which rejects documents the outline reader would only
// partially understand.
func validateSVG(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = svg.ParseSvgFromReader(f, name, 1.0)
	return err
}

func planLayer(prof *profile.Profile, polys geom.Polygons, layer int, start geom.Point) (*plan.Planner, error) {
	z := int64(layer+1) * prof.LayerThicknessUM()
	p, err := plan.NewPlanner(z, layer, 0, start, prof.Settings())
	if err != nil {
		return nil, err
	}
	router := route.NewRouter(polys)
	p.SetRouter(router)

	cfgs := prof.Configs()
	if _, err := p.QueuePolygonsOrdered(polys, router, cfgs.OuterWall); err != nil {
		return nil, err
	}
	if err := p.QueueFan(flagFan); err != nil {
		return nil, err
	}
	p.FinalizeLayer(prof.Settings())
	return p, nil
}

func main() {
	fail := func(s string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, s+"\n", args...)
		os.Exit(2)
	}

	flag.Parse()
	if flagIn == "" {
		fail("must specify -in <svg file>")
	}
	if flagLayers < 1 {
		fail("-layers must be at least 1")
	}

	if flagValidate {
		if err := validateSVG(flagIn); err != nil {
			fail("validate %s: %v", flagIn, err)
		}
	}

	prof, err := loadProfile(flagProfile)
	if err != nil {
		fail("load profile: %v", err)
	}

	polys, err := loadOutlines(flagIn)
	if err != nil {
		fail("read outlines: %v", err)
	}
	if len(polys) == 0 {
		fail("no outline polygons in %s", flagIn)
	}

	out, err := os.Create(flagOut)
	if err != nil {
		fail("failed to open output file: %v", err)
	}

	if filepath.Ext(flagOut) == ".svg" {
		err := svgio.ToSVG(out, polys)
		if err == nil {
			err = out.Close()
		}
		if err != nil {
			fail("failed to write svg preview: %v", err)
		}
		return
	}

	cfg := prof.WriterConfig()
	w := gcode.NewWriter(out, &cfg)
	if err := w.Preamble(); err != nil {
		fail("write gcode: %v", err)
	}

	start := geom.XY(0, 0)
	for layer := 0; layer < flagLayers; layer++ {
		p, err := planLayer(prof, polys, layer, start)
		if err != nil {
			fail("plan layer %d: %v", layer, err)
		}
		if err := w.SetLayer(layer, prof.LayerThicknessUM()); err != nil {
			fail("write gcode: %v", err)
		}
		if err := p.Emit(w, prof.LayerThicknessUM()); err != nil {
			fail("emit layer %d: %v", layer, err)
		}
		start = p.LastPosition()
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "   \rPlanned layer %d/%d", layer+1, flagLayers)
		}
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\n")
	}

	if err := w.Postamble(); err != nil {
		fail("write gcode: %v", err)
	}
	if err := w.Flush(); err != nil {
		fail("failed to write gcode: %v", err)
	}
	if err := out.Close(); err != nil {
		fail("failed to write gcode: %v", err)
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "Print time estimate: %g secs\n", w.TotalTimeS())
	}
}
