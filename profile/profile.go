// Package profile loads the machine/material profile consumed by the
// planner and the G-code writer. Profiles are TOML documents; absent
// keys keep their defaults.
package profile

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/larsbrubaker/MatterSlice/gcode"
	"github.com/larsbrubaker/MatterSlice/plan"
)

// A Profile bundles every setting of one machine/material pair.
// Distances are millimetres; the projections below convert them to
// micrometres where the planner needs them.
type Profile struct {
	LayerThicknessMM float64 `toml:"layer_thickness"`

	TravelSpeed    float64 `toml:"travel_speed"`
	OuterWallSpeed float64 `toml:"outer_wall_speed"`
	InnerWallSpeed float64 `toml:"inner_wall_speed"`
	InfillSpeed    float64 `toml:"infill_speed"`
	BridgeSpeed    float64 `toml:"bridge_speed"`
	SkirtSpeed     float64 `toml:"skirt_speed"`

	LineWidthMM float64 `toml:"line_width"`

	MinLayerTime         float64 `toml:"min_layer_time"`
	MinPrintSpeed        float64 `toml:"min_print_speed"`
	MinFanSpeedLayerTime float64 `toml:"min_fan_speed_layer_time"`
	MaxFanSpeedLayerTime float64 `toml:"max_fan_speed_layer_time"`
	FanMinPercent        int     `toml:"fan_min_percent"`
	FanMaxPercent        int     `toml:"fan_max_percent"`
	FirstLayerAllowFan   int     `toml:"first_layer_allow_fan"`

	RetractMinTravelMM float64 `toml:"retract_min_travel"`
	RetractionLength   float64 `toml:"retraction_length"`
	RetractionSpeed    float64 `toml:"retraction_speed"`
	ExtraRetractOnTool float64 `toml:"extra_retract_on_tool_change"`

	PerimeterOverlap float64 `toml:"perimeter_overlap"`

	FilamentDiameter    float64 `toml:"filament_diameter"`
	ExtrusionMultiplier float64 `toml:"extrusion_multiplier"`

	Spiralize bool `toml:"spiralize"`
}

// Default returns a profile for a common 0.4mm-nozzle FDM machine.
func Default() Profile {
	return Profile{
		LayerThicknessMM:     0.2,
		TravelSpeed:          150,
		OuterWallSpeed:       30,
		InnerWallSpeed:       50,
		InfillSpeed:          60,
		BridgeSpeed:          25,
		SkirtSpeed:           40,
		LineWidthMM:          0.4,
		MinLayerTime:         5,
		MinPrintSpeed:        10,
		MinFanSpeedLayerTime: 60,
		MaxFanSpeedLayerTime: 10,
		FanMinPercent:        35,
		FanMaxPercent:        100,
		FirstLayerAllowFan:   2,
		RetractMinTravelMM:   1.5,
		RetractionLength:     4.5,
		RetractionSpeed:      45,
		ExtraRetractOnTool:   10,
		PerimeterOverlap:     0.95,
		FilamentDiameter:     1.75,
		ExtrusionMultiplier:  1,
	}
}

// Load reads a TOML profile, applying the document on top of the
// defaults and validating the result.
func Load(r io.Reader) (*Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := Default()
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the cross-field constraints the planner relies on.
func (p *Profile) Validate() error {
	for _, s := range []struct {
		name  string
		value float64
	}{
		{"travel_speed", p.TravelSpeed},
		{"outer_wall_speed", p.OuterWallSpeed},
		{"inner_wall_speed", p.InnerWallSpeed},
		{"infill_speed", p.InfillSpeed},
		{"bridge_speed", p.BridgeSpeed},
		{"skirt_speed", p.SkirtSpeed},
	} {
		if s.value <= 0 {
			return fmt.Errorf("profile: %s must be positive, got %v", s.name, s.value)
		}
	}
	if p.PerimeterOverlap < 0 || p.PerimeterOverlap > 1 {
		return fmt.Errorf("profile: perimeter_overlap %v outside [0,1]", p.PerimeterOverlap)
	}
	if p.LineWidthMM <= 0 {
		return fmt.Errorf("profile: line_width must be positive, got %v", p.LineWidthMM)
	}
	if p.FilamentDiameter <= 0 {
		return fmt.Errorf("profile: filament_diameter must be positive, got %v", p.FilamentDiameter)
	}
	return nil
}

func um(mmv float64) int64 {
	return int64(mmv * 1000)
}

// Settings returns the planner's view of the profile.
func (p *Profile) Settings() plan.Settings {
	return plan.Settings{
		MinLayerTimeS:        p.MinLayerTime,
		MinPrintSpeedMMS:     p.MinPrintSpeed,
		MinFanSpeedLayerTime: p.MinFanSpeedLayerTime,
		MaxFanSpeedLayerTime: p.MaxFanSpeedLayerTime,
		FanMinPercent:        p.FanMinPercent,
		FanMaxPercent:        p.FanMaxPercent,
		FirstLayerAllowFan:   p.FirstLayerAllowFan,
		RetractMinUM:         um(p.RetractMinTravelMM),
		PerimeterOverlap:     p.PerimeterOverlap,
		TravelSpeedMMS:       p.TravelSpeed,
	}
}

// WriterConfig returns the G-code writer's view of the profile.
func (p *Profile) WriterConfig() gcode.Config {
	return gcode.Config{
		FilamentDiameterMM:       p.FilamentDiameter,
		ExtrusionMultiplier:      p.ExtrusionMultiplier,
		RetractionLengthMM:       p.RetractionLength,
		RetractionSpeedMMS:       p.RetractionSpeed,
		ExtraRetractionOnForceMM: p.ExtraRetractOnTool,
	}
}

// LayerThicknessUM returns the layer height in micrometres.
func (p *Profile) LayerThicknessUM() int64 {
	return um(p.LayerThicknessMM)
}

// Configs is the per-layer path-config table. The planner compares
// configs by identity, so one table must serve a whole layer.
type Configs struct {
	OuterWall *plan.Config
	InnerWall *plan.Config
	Infill    *plan.Config
	Bridge    *plan.Config
	Skirt     *plan.Config
}

// Configs builds the config table for one layer.
func (p *Profile) Configs() *Configs {
	w := um(p.LineWidthMM)
	return &Configs{
		OuterWall: &plan.Config{
			SpeedMMS: p.OuterWallSpeed, LineWidthUM: w, Tag: plan.TagWallOuter,
			ClosedLoop: true, Spiralize: p.Spiralize,
		},
		InnerWall: &plan.Config{
			SpeedMMS: p.InnerWallSpeed, LineWidthUM: w, Tag: plan.TagWallInner,
			ClosedLoop: true,
		},
		Infill: &plan.Config{
			SpeedMMS: p.InfillSpeed, LineWidthUM: w, Tag: "FILL",
		},
		Bridge: &plan.Config{
			SpeedMMS: p.BridgeSpeed, LineWidthUM: w, Tag: plan.TagBridge,
		},
		Skirt: &plan.Config{
			SpeedMMS: p.SkirtSpeed, LineWidthUM: w, Tag: "SKIRT",
			ClosedLoop: true,
		},
	}
}
