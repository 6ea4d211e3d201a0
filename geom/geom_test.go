package geom

import (
	"math"
	"reflect"
	"testing"
)

func TestLength(t *testing.T) {
	cases := []struct {
		p    Point
		want int64
	}{
		{XY(0, 0), 0},
		{XY(3000, 4000), 5000},
		{XY(-3000, 4000), 5000},
		{XY(10000, 0), 10000},
		{XY(0, -200), 200},
	}
	for _, c := range cases {
		if got := c.p.Length(); got != c.want {
			t.Errorf("%v.Length() = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestShorterLongerThan(t *testing.T) {
	cases := []struct {
		p       Point
		d       int64
		shorter bool
	}{
		{XY(3000, 4000), 5000, true},
		{XY(3000, 4000), 4999, false},
		{XY(3000, 4000), 5001, true},
		{XY(0, 0), 0, true},
		{XY(1, 0), 0, false},
		{XY(3000000000, 3000000000), maxLength + 1, false},
		{XY(1, 1), maxLength + 1, true},
	}
	for _, c := range cases {
		if got := c.p.ShorterThan(c.d); got != c.shorter {
			t.Errorf("%v.ShorterThan(%d) = %v, want %v", c.p, c.d, got, c.shorter)
		}
		if got := c.p.LongerThan(c.d); got == c.shorter {
			t.Errorf("%v.LongerThan(%d) = %v, want %v", c.p, c.d, got, !c.shorter)
		}
	}
}

func TestLengthSquaredSaturates(t *testing.T) {
	p := XY(math.MaxInt64/2, math.MaxInt64/2)
	if got := p.LengthSquared(); got != math.MaxInt64 {
		t.Errorf("LengthSquared = %d, want MaxInt64", got)
	}
}

func TestPolygonLength(t *testing.T) {
	p := Polygon{XY(0, 0), XY(10000, 0), XY(10000, 10000)}
	if got := p.Length(); got != 20000 {
		t.Errorf("Length = %d, want 20000", got)
	}
}

func TestTrim(t *testing.T) {
	poly := func(args ...int64) Polygon {
		if len(args)%2 != 0 {
			t.Fatalf("poly helper needs an even number of args, got %v", args)
		}
		var p Polygon
		for i := 0; i < len(args); i += 2 {
			p = append(p, XY(args[i], args[i+1]))
		}
		return p
	}
	cases := []struct {
		desc string
		p    Polygon
		d    int64
		want Polygon
	}{
		{
			desc: "no trim",
			p:    poly(0, 0, 10000, 0),
			d:    0,
			want: poly(0, 0, 10000, 0),
		},
		{
			desc: "partial last segment",
			p:    poly(0, 0, 10000, 0),
			d:    4000,
			want: poly(0, 0, 6000, 0),
		},
		{
			desc: "exactly at a vertex",
			p:    poly(0, 0, 10000, 0, 10000, 10000),
			d:    10000,
			want: poly(0, 0, 10000, 0),
		},
		{
			desc: "across a vertex",
			p:    poly(0, 0, 10000, 0, 10000, 10000),
			d:    12000,
			want: poly(0, 0, 8000, 0),
		},
		{
			desc: "whole length",
			p:    poly(0, 0, 10000, 0),
			d:    10000,
			want: nil,
		},
		{
			desc: "more than whole length",
			p:    poly(0, 0, 10000, 0),
			d:    99999,
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			got := c.p.Trim(c.d)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("Trim(%d) = %v, want %v", c.d, got, c.want)
			}
			// trimming nothing more must not change the result
			again := got.Trim(0)
			if !reflect.DeepEqual(again, c.want) {
				t.Errorf("Trim(%d).Trim(0) = %v, want %v", c.d, again, c.want)
			}
		})
	}
}

func TestInside(t *testing.T) {
	square := Polygon{XY(0, 0), XY(10000, 0), XY(10000, 10000), XY(0, 10000)}
	hole := Polygon{XY(4000, 4000), XY(6000, 4000), XY(6000, 6000), XY(4000, 6000)}
	island := Polygons{square, hole}
	cases := []struct {
		pt   Point
		want bool
	}{
		{XY(1000, 1000), true},
		{XY(5000, 1000), true},
		{XY(5000, 5000), false}, // inside the hole
		{XY(-1000, 5000), false},
		{XY(11000, 5000), false},
		{XY(9999, 9999), true},
	}
	for _, c := range cases {
		if got := island.Inside(c.pt); got != c.want {
			t.Errorf("Inside(%v) = %v, want %v", c.pt, got, c.want)
		}
	}
}

func TestBounds(t *testing.T) {
	ps := Polygons{{XY(100, 200), XY(-300, 400)}, {XY(50, 900)}}
	min, max, ok := ps.Bounds()
	if !ok {
		t.Fatal("Bounds ok = false")
	}
	if !min.SameXY(XY(-300, 200)) || !max.SameXY(XY(100, 900)) {
		t.Errorf("Bounds = %v, %v", min, max)
	}
	if _, _, ok := (Polygons{}).Bounds(); ok {
		t.Error("empty Bounds ok = true")
	}
}
