package gcode

import (
	"strings"
	"testing"

	"github.com/larsbrubaker/MatterSlice/geom"
)

func testConfig() *Config {
	return &Config{
		FilamentDiameterMM: 1.75,
		RetractionLengthMM: 2,
		RetractionSpeedMMS: 40,
	}
}

func TestTravelAndExtrude(t *testing.T) {
	var sb strings.Builder
	g := NewWriter(&sb, testConfig())
	if err := g.SetLayer(0, 200); err != nil {
		t.Fatal(err)
	}

	if err := g.WriteMove(geom.XY(10000, 0), 120, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.WriteMove(geom.XY(20000, 0), 30, 400); err != nil {
		t.Fatal(err)
	}
	if err := g.Flush(); err != nil {
		t.Fatal(err)
	}

	out := sb.String()
	want := []string{
		";LAYER:0",
		"G0 F7200 X10.000 Y0.000",
		"G1 F1800 X20.000 Y0.000 E",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "G0") && strings.Contains(line, "E") {
			t.Errorf("travel move extruded: %q", line)
		}
	}
}

func TestExtrusionVolume(t *testing.T) {
	var sb strings.Builder
	g := NewWriter(&sb, &Config{FilamentDiameterMM: 1.75})
	g.SetLayer(0, 200)

	// 0.4mm wide, 0.2mm thick, 10mm long bead = 0.8mm^3;
	// 1.75mm filament has area ~2.405mm^2, so E ~ 0.3326
	if err := g.WriteMove(geom.XY(10000, 0), 30, 400); err != nil {
		t.Fatal(err)
	}
	g.Flush()
	if !strings.Contains(sb.String(), "E0.33260") {
		t.Errorf("unexpected E value:\n%s", sb.String())
	}
}

func TestRetractionPairing(t *testing.T) {
	var sb strings.Builder
	g := NewWriter(&sb, testConfig())
	g.SetLayer(0, 200)

	if err := g.WriteRetraction(0.5, false); err != nil {
		t.Fatal(err)
	}
	// second request while retracted is a no-op
	if err := g.WriteRetraction(0.5, false); err != nil {
		t.Fatal(err)
	}
	if err := g.WriteMove(geom.XY(10000, 0), 120, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.WriteMove(geom.XY(20000, 0), 30, 400); err != nil {
		t.Fatal(err)
	}
	g.Flush()

	out := sb.String()
	if got := strings.Count(out, "E-2.00000"); got != 1 {
		t.Errorf("got %d retractions, want 1:\n%s", got, out)
	}
	if got := strings.Count(out, "G1 F2400 E2.00000"); got != 1 {
		t.Errorf("got %d unretracts, want 1:\n%s", got, out)
	}
}

func TestSwitchExtruder(t *testing.T) {
	var sb strings.Builder
	g := NewWriter(&sb, testConfig())

	if err := g.SwitchExtruder(1); err != nil {
		t.Fatal(err)
	}
	if err := g.SwitchExtruder(1); err != nil {
		t.Fatal(err)
	}
	g.Flush()
	if got := strings.Count(sb.String(), "T1\n"); got != 1 {
		t.Errorf("got %d tool changes, want 1:\n%s", got, sb.String())
	}
}

func TestFanCommands(t *testing.T) {
	var sb strings.Builder
	g := NewWriter(&sb, testConfig())

	g.WriteFan(50)
	g.WriteFan(50)
	g.WriteFan(0)
	g.Flush()

	out := sb.String()
	if got := strings.Count(out, "M106 S127\n"); got != 1 {
		t.Errorf("got %d fan-on commands, want 1:\n%s", got, out)
	}
	if !strings.Contains(out, "M107\n") {
		t.Errorf("missing fan-off:\n%s", out)
	}
}

func TestLayerTimeAccumulates(t *testing.T) {
	var sb strings.Builder
	g := NewWriter(&sb, &Config{FilamentDiameterMM: 1.75})
	g.SetLayer(0, 200)

	g.WriteMove(geom.XY(60000, 0), 60, 0) // 60mm at 60mm/s = 1s
	if got := g.LayerTimeS(); got < 0.99 || got > 1.01 {
		t.Errorf("LayerTimeS = %v, want ~1", got)
	}
	g.UpdateLayerPrintTime()
	if g.LayerTimeS() != 0 {
		t.Errorf("layer time not reset")
	}
	if got := g.TotalTimeS(); got < 0.99 || got > 1.01 {
		t.Errorf("TotalTimeS = %v, want ~1", got)
	}
}
