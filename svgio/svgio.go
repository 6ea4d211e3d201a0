// Package svgio reads layer outlines from SVG documents and writes
// polygon sets back out as SVG for inspection. Coordinates in the
// documents are millimetres; polygons in memory are integer
// micrometres.
package svgio

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JoshVarga/svgparser"
	"golang.org/x/net/html/charset"

	"github.com/larsbrubaker/MatterSlice/geom"
)

func toUM(mm float64) int64 {
	return int64(mm * geom.MicronsPerMM)
}

// An xform maps document coordinates onto layer micrometres. The
// transforms that occur on sliced-layer documents, translate and
// scale, keep the axes aligned, so any chain of them folds into one
// scale and one offset per axis.
type xform struct {
	scaleX, scaleY   float64
	offsetX, offsetY float64
}

var identity = xform{scaleX: 1, scaleY: 1}

// of returns the transform that applies inner first, then xf.
func (xf xform) of(inner xform) xform {
	return xform{
		scaleX:  xf.scaleX * inner.scaleX,
		scaleY:  xf.scaleY * inner.scaleY,
		offsetX: xf.scaleX*inner.offsetX + xf.offsetX,
		offsetY: xf.scaleY*inner.offsetY + xf.offsetY,
	}
}

func (xf xform) apply(x, y float64) geom.Point {
	return geom.Point{
		X: toUM(xf.scaleX*x + xf.offsetX),
		Y: toUM(xf.scaleY*y + xf.offsetY),
	}
}

func coordFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
}

func parseCoords(s string) ([]float64, error) {
	var out []float64
	for _, f := range coordFields(s) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseXform reads an SVG transform attribute: a sequence of
// "name(args)" calls, the rightmost applied to coordinates first.
// Anything beyond translate and scale is rejected rather than
// silently distorting the outlines.
func parseXform(attr string) (xform, error) {
	xf := identity
	rest := strings.TrimSpace(attr)
	for rest != "" {
		name, after, ok := strings.Cut(rest, "(")
		if !ok {
			return identity, fmt.Errorf("transform %q: missing ( after %q", attr, rest)
		}
		name = strings.TrimSpace(name)
		args, tail, ok := strings.Cut(after, ")")
		if !ok {
			return identity, fmt.Errorf("transform %q: unclosed %q", attr, name)
		}
		fa, err := parseCoords(args)
		if err != nil {
			return identity, fmt.Errorf("transform %q: %v", attr, err)
		}
		var step xform
		switch name {
		case "translate":
			switch len(fa) {
			case 1:
				step = xform{scaleX: 1, scaleY: 1, offsetX: fa[0]}
			case 2:
				step = xform{scaleX: 1, scaleY: 1, offsetX: fa[0], offsetY: fa[1]}
			default:
				return identity, fmt.Errorf("transform %q: translate takes one or two arguments", attr)
			}
		case "scale":
			switch len(fa) {
			case 1:
				step = xform{scaleX: fa[0], scaleY: fa[0]}
			case 2:
				step = xform{scaleX: fa[0], scaleY: fa[1]}
			default:
				return identity, fmt.Errorf("transform %q: scale takes one or two arguments", attr)
			}
		default:
			return identity, fmt.Errorf("transform %q: unsupported function %q", attr, name)
		}
		xf = xf.of(step)
		rest = strings.TrimSpace(tail)
	}
	return xf, nil
}

// parsePointsAttr reads an SVG points attribute ("x1,y1 x2,y2 ...").
func parsePointsAttr(attr string, xf xform) (geom.Polygon, error) {
	coords, err := parseCoords(attr)
	if err != nil {
		return nil, err
	}
	if len(coords)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in points %q", attr)
	}
	var poly geom.Polygon
	for i := 0; i < len(coords); i += 2 {
		poly = append(poly, xf.apply(coords[i], coords[i+1]))
	}
	return poly, nil
}

// parsePathAttr reads the M/L/Z subset of the SVG path data syntax.
// Each M starts a new polygon.
func parsePathAttr(d string, xf xform) ([]geom.Polygon, error) {
	var polys []geom.Polygon
	var cur geom.Polygon
	flush := func() {
		if len(cur) >= 2 {
			polys = append(polys, cur)
		}
		cur = nil
	}
	parts := strings.Fields(d)
	var xy [2]float64
	xyp := 0
	for _, p := range parts {
		switch p {
		case "M":
			if xyp != 0 {
				return nil, fmt.Errorf("path %q: coordinate pair split across M", d)
			}
			flush()
			continue
		case "L":
			if xyp != 0 {
				return nil, fmt.Errorf("path %q: coordinate pair split across L", d)
			}
			continue
		case "Z", "z":
			flush()
			continue
		}
		p = strings.TrimRight(p, ",")
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		xy[xyp] = f
		xyp++
		if xyp == 2 {
			cur = append(cur, xf.apply(xy[0], xy[1]))
			xyp = 0
		}
	}
	if xyp != 0 {
		return nil, fmt.Errorf("path %q: dangling coordinate", d)
	}
	flush()
	return polys, nil
}

func parseElement(out *geom.Polygons, xf xform, e *svgparser.Element) error {
	for _, c := range e.Children {
		switch c.Name {
		case "g":
			gxf, err := parseXform(c.Attributes["transform"])
			if err != nil {
				return err
			}
			if err := parseElement(out, xf.of(gxf), c); err != nil {
				return err
			}
		case "polygon", "polyline":
			poly, err := parsePointsAttr(c.Attributes["points"], xf)
			if err != nil {
				return err
			}
			if len(poly) >= 2 {
				*out = append(*out, poly)
			}
		case "path":
			polys, err := parsePathAttr(c.Attributes["d"], xf)
			if err != nil {
				return err
			}
			*out = append(*out, polys...)
		case "defs", "title", "desc":
			continue
		default:
			// unknown elements are skipped; outlines only
		}
	}
	return nil
}

// FromSVG extracts layer outline polygons from an SVG document. Only
// straight-edge constructs are understood: polygon, polyline, and the
// M/L/Z subset of path data, under translate/scale transforms.
func FromSVG(r io.Reader) (geom.Polygons, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.CharsetReader = charset.NewReaderLabel
	elt, err := svgparser.DecodeFirst(decoder)
	if err != nil {
		return nil, err
	}
	if err := elt.Decode(decoder); err != nil && err != io.EOF {
		return nil, err
	}
	var polys geom.Polygons
	if err := parseElement(&polys, identity, elt); err != nil {
		return nil, err
	}
	return polys, nil
}

// ToSVG writes the polygons as closed black outlines, for eyeballing
// a layer's outlines. Only the polygons are drawn; planned moves are
// not.
func ToSVG(w io.Writer, polys geom.Polygons) error {
	min, max, ok := polys.Bounds()
	if !ok {
		min, max = geom.XY(0, 0), geom.XY(0, 0)
	}
	toMM := func(um int64) float64 { return float64(um) / geom.MicronsPerMM }

	var werr error
	bi := bufio.NewWriter(w)
	wr := func(f string, args ...interface{}) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(bi, f, args...)
	}
	wr(`<svg width="%.2fmm" height="%.2fmm" viewBox="%.2f %.2f %.2f %.2f" version="1.1" xmlns="http://www.w3.org/2000/svg">`,
		toMM(max.X-min.X), toMM(max.Y-min.Y),
		toMM(min.X), toMM(min.Y), toMM(max.X-min.X), toMM(max.Y-min.Y))
	wr("\n")
	wr("<g fill=\"none\" stroke=\"black\" stroke-width=\"0.1\">\n")
	for _, poly := range polys {
		if len(poly) == 0 {
			continue
		}
		wr(`<path d="`)
		for i, p := range poly {
			cmd := " L"
			if i == 0 {
				cmd = "M"
			}
			wr("%s %.3f %.3f", cmd, toMM(p.X), toMM(p.Y))
		}
		wr(" Z\"/>\n")
	}
	wr("</g>")
	wr("</svg>")
	if werr == nil {
		werr = bi.Flush()
	}
	return werr
}
