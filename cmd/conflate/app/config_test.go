package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/features"
)

func baseConfig() *Config {
	return &Config{
		SegmentLength:      10,
		BufferDistance:     15,
		MaxHausdorff:       25,
		AngularThreshold:   35,
		MinMatchedFraction: 0.5,
		BaseModel:          "A",
		CheckMode:          "NoCheck",
	}
}

func TestConflateConfigDefaults(t *testing.T) {
	cfg, err := baseConfig().ConflateConfig()
	require.NoError(t, err)

	assert.Equal(t, features.OriginA, cfg.BaseModel)
	assert.Equal(t, conflation.NoCheck, cfg.CheckMode)
	assert.InDelta(t, 10.0, cfg.SegmentLength, 1e-9)
}

func TestConflateConfigParsesPolicy(t *testing.T) {
	c := baseConfig()
	c.BaseModel = "b"
	c.CheckMode = "auto-then-manual"
	c.MinTimestamp = "2020-01-01"
	c.MinVersion = 3
	c.MinAttributeCount = 2

	cfg, err := c.ConflateConfig()
	require.NoError(t, err)

	assert.Equal(t, features.OriginB, cfg.BaseModel)
	assert.Equal(t, conflation.AutoThenManual, cfg.CheckMode)

	require.NotNil(t, cfg.TrustRules.MinTimestamp)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *cfg.TrustRules.MinTimestamp)
	require.NotNil(t, cfg.TrustRules.MinVersion)
	assert.Equal(t, 3, *cfg.TrustRules.MinVersion)
	assert.Equal(t, 2, cfg.TrustRules.MinAttributeCount)
}

func TestConflateConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad base model", func(c *Config) { c.BaseModel = "C" }},
		{"bad check mode", func(c *Config) { c.CheckMode = "Sometimes" }},
		{"bad timestamp", func(c *Config) { c.MinTimestamp = "recently" }},
		{"negative segment length", func(c *Config) { c.SegmentLength = -1 }},
		{"angle out of range", func(c *Config) { c.AngularThreshold = 91 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseConfig()
			tt.mut(c)
			_, err := c.ConflateConfig()
			assert.True(t, errors.IsInvalidConfig(err))
		})
	}
}

func TestUpdateFromFlags(t *testing.T) {
	c := baseConfig()
	c.UpdateFromFlags(true, false, true, "trace")

	assert.True(t, c.Verbose)
	assert.True(t, c.NoColor)
	assert.Equal(t, "trace", c.LogLevel)

	// An empty flag keeps the configured level.
	c.UpdateFromFlags(false, true, false, "")
	assert.Equal(t, "trace", c.LogLevel)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("2023-04-05T06:07:08Z")
	require.NoError(t, err)
	assert.Equal(t, 2023, ts.Year())

	ts, err = parseTimestamp("2023-04-05")
	require.NoError(t, err)
	assert.Equal(t, time.April, ts.Month())

	_, err = parseTimestamp("yesterday")
	assert.Error(t, err)
}
