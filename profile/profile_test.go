package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsbrubaker/MatterSlice/plan"
)

func TestLoadAppliesOverDefaults(t *testing.T) {
	doc := `
travel_speed = 200
outer_wall_speed = 25
perimeter_overlap = 0.8
retract_min_travel = 2.0
spiralize = true
`
	p, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 200.0, p.TravelSpeed)
	assert.Equal(t, 25.0, p.OuterWallSpeed)
	// untouched keys keep their defaults
	assert.Equal(t, Default().InnerWallSpeed, p.InnerWallSpeed)

	s := p.Settings()
	assert.Equal(t, int64(2000), s.RetractMinUM)
	assert.Equal(t, 0.8, s.PerimeterOverlap)
	assert.Equal(t, 200.0, s.TravelSpeedMMS)

	cfgs := p.Configs()
	assert.True(t, cfgs.OuterWall.Spiralize)
	assert.Equal(t, plan.TagWallOuter, cfgs.OuterWall.Tag)
	assert.Equal(t, int64(400), cfgs.OuterWall.LineWidthUM)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		desc string
		doc  string
	}{
		{"zero speed", "travel_speed = 0"},
		{"negative speed", "infill_speed = -5"},
		{"overlap too big", "perimeter_overlap = 1.2"},
		{"zero line width", "line_width = 0"},
		{"bad toml", "travel_speed = ["},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := Load(strings.NewReader(c.doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	assert.NoError(t, p.Validate())
}

func TestConfigsAreDistinct(t *testing.T) {
	defaultProfile := Default()
	cfgs := defaultProfile.Configs()
	// identity matters to the planner: no sharing between roles
	assert.NotSame(t, cfgs.OuterWall, cfgs.InnerWall)
	assert.False(t, cfgs.OuterWall.IsTravel())
	assert.False(t, cfgs.Infill.ClosedLoop)
}
