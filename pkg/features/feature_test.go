package features

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func line(pts ...orb.Point) orb.LineString {
	return orb.LineString(pts)
}

func TestOriginOpposite(t *testing.T) {
	assert.Equal(t, OriginB, OriginA.Opposite())
	assert.Equal(t, OriginA, OriginB.Opposite())
	assert.True(t, OriginA.Valid())
	assert.False(t, Origin("C").Valid())
}

func TestFeatureLength(t *testing.T) {
	f := &Feature{
		ID:       "a1",
		Geometry: line(orb.Point{0, 0}, orb.Point{3, 4}),
	}
	assert.InDelta(t, 5.0, f.Length(), 1e-9)
}

func TestInfraLengthDoublesTwoWayTags(t *testing.T) {
	base := line(orb.Point{0, 0}, orb.Point{10, 0})

	tests := []struct {
		name  string
		attrs map[string]string
		want  float64
	}{
		{"no tags", nil, 10},
		{"cycleway lane", map[string]string{"cycleway": "lane"}, 20},
		{"cycleway track", map[string]string{"cycleway": "track"}, 20},
		{"cycleway both", map[string]string{"cycleway:both": "lane"}, 20},
		{"left and right", map[string]string{"cycleway:left": "track", "cycleway:right": "lane"}, 20},
		{"left only", map[string]string{"cycleway:left": "track"}, 10},
		{"unrelated value", map[string]string{"cycleway": "no"}, 10},
		{"opposite lane", map[string]string{"cycleway": "opposite_lane"}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Feature{ID: "x", Geometry: base, Attributes: tt.attrs}
			assert.InDelta(t, tt.want, f.InfraLength(), 1e-9)
		})
	}
}

func TestAttributeCountIgnoresEmptyValues(t *testing.T) {
	f := &Feature{
		ID: "a1",
		Attributes: map[string]string{
			"highway": "cycleway",
			"surface": "asphalt",
			"width":   "",
		},
	}
	assert.Equal(t, 2, f.AttributeCount())

	empty := &Feature{ID: "a2"}
	assert.Equal(t, 0, empty.AttributeCount())
}

func TestClassTitle(t *testing.T) {
	assert.Equal(t, "Cycle Track", ClassCycleTrack.Title())
	assert.Equal(t, "Calm Traffic", ClassCalmTraffic.Title())
}

func TestParseClass(t *testing.T) {
	assert.Equal(t, ClassCycleLane, ParseClass("  Cycle_Lane "))
	assert.Equal(t, ClassUnknown, ParseClass(""))
	assert.Equal(t, Class("greenway"), ParseClass("greenway"))
}
