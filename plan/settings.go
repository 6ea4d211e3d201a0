package plan

// Settings is the view of the machine/material profile the planner
// consumes. Distances are micrometres, times seconds, speeds mm/s,
// fan values whole percent.
type Settings struct {
	MinLayerTimeS        float64
	MinPrintSpeedMMS     float64
	MinFanSpeedLayerTime float64
	MaxFanSpeedLayerTime float64
	FanMinPercent        int
	FanMaxPercent        int
	FirstLayerAllowFan   int
	RetractMinUM         int64
	PerimeterOverlap     float64 // ratio in [0,1]; 1 disables the seam trim
	TravelSpeedMMS       float64
}
