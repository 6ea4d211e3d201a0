// Package plan builds the ordered move sequence for one printed
// layer. A Planner accepts extrusion, polygon, travel, fan and
// tool-change operations, applies the per-layer speed and fan
// adjustments, and finally emits the result through a Sink.
package plan

// Comment tags with reserved meaning. Any other tag is passed through
// to the sink unchanged.
const (
	TagTravel    = "travel"
	TagBridge    = "BRIDGE"
	TagWallOuter = "WALL-OUTER"
	TagWallInner = "WALL-INNER"
)

// A Config names one way of moving the head: its target speed,
// extrusion width, the comment tag written into the output, and
// whether polygons under it close into loops or spiral upward.
//
// Configs are compared by identity: two configs with equal fields but
// different roles are different configs, and consecutive moves fold
// into one path only when they share the same *Config.
type Config struct {
	SpeedMMS    float64
	LineWidthUM int64
	Tag         string
	ClosedLoop  bool
	Spiralize   bool
}

// NewTravelConfig returns the travel config for a planner: zero line
// width at the given speed.
func NewTravelConfig(speedMMS float64) *Config {
	return &Config{SpeedMMS: speedMMS, Tag: TagTravel}
}

// IsTravel reports whether the config deposits no material.
func (c *Config) IsTravel() bool {
	return c.LineWidthUM == 0
}
