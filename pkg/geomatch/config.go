// Package geomatch implements the sub-feature matching core: fixed-length
// segmentation, spatial candidate lookup, Hausdorff and orientation
// scoring, deterministic match resolution, and feature-level reassembly.
package geomatch

import (
	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/errors"
)

// Config holds the matching parameters. All distances are in the unit of
// the projected input coordinates; angles are in degrees.
type Config struct {
	// SegmentLength is the target length L for segmentation. Must be
	// positive.
	SegmentLength float64

	// BufferDistance is the candidate lookup radius B. Segments farther
	// apart than this are never compared.
	BufferDistance float64

	// MaxHausdorff is the admissibility threshold H on the symmetric
	// Hausdorff distance.
	MaxHausdorff float64

	// AngularThreshold is the admissibility threshold on orientation
	// difference, in degrees within [0, 90].
	AngularThreshold float64

	// Workers is the number of parallel matching workers. Zero means one
	// per available CPU.
	Workers int
}

// DefaultConfig returns the domain-tuned default parameters: short
// segments and a generous angular threshold to tolerate fragmented
// networks and wide intersection geometry.
func DefaultConfig() Config {
	return Config{
		SegmentLength:    constants.DefaultSegmentLength,
		BufferDistance:   constants.DefaultBufferDistance,
		MaxHausdorff:     constants.DefaultMaxHausdorff,
		AngularThreshold: constants.DefaultAngularThreshold,
	}
}

// Validate checks every parameter range. Any violation is fatal to the
// run before matching starts.
func (c Config) Validate() error {
	if c.SegmentLength <= 0 {
		return errors.NewConfigError("segment_length", c.SegmentLength, "must be positive")
	}
	if c.BufferDistance < 0 {
		return errors.NewConfigError("buffer_distance", c.BufferDistance, "must be non-negative")
	}
	if c.MaxHausdorff < 0 {
		return errors.NewConfigError("max_hausdorff", c.MaxHausdorff, "must be non-negative")
	}
	if c.AngularThreshold < 0 || c.AngularThreshold > constants.MaxAngularThreshold {
		return errors.NewConfigError("angular_threshold", c.AngularThreshold, "must be within [0, 90] degrees")
	}
	if c.Workers < 0 {
		return errors.NewConfigError("workers", c.Workers, "must be non-negative")
	}
	return nil
}
