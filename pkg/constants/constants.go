// Package constants provides shared constants used throughout the conflate
// codebase. This includes the domain-tuned default matching parameters, file
// permissions, and limits that should be consistent across the application.
package constants

// Matching parameter defaults. Values are in the units of the projected
// coordinate reference system the inputs were prepared in (metres for the
// networks this tool was tuned on). Small segments and a generous angular
// threshold tolerate fragmented networks and wide intersection geometry.
const (
	// DefaultSegmentLength is the target length for feature segmentation
	DefaultSegmentLength = 10.0

	// DefaultBufferDistance is the candidate search radius around a segment
	DefaultBufferDistance = 15.0

	// DefaultMaxHausdorff is the maximum admissible symmetric Hausdorff
	// distance between two candidate segments
	DefaultMaxHausdorff = 25.0

	// DefaultAngularThreshold is the maximum admissible orientation
	// difference between two candidate segments, in degrees
	DefaultAngularThreshold = 35.0

	// DefaultMinMatchedFraction is the matched-length fraction above which a
	// feature counts as matched for the conflation decision engine
	DefaultMinMatchedFraction = 0.5
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxAngularThreshold is the upper bound of the valid angular threshold
	// range; orientation differences are direction-agnostic and fold into
	// [0, 90] degrees
	MaxAngularThreshold = 90.0

	// MinSamplePoints is the minimum number of points sampled along a
	// segment when computing densified distances
	MinSamplePoints = 2

	// MaxSamplePoints caps densification so distance evaluation stays cheap
	// on long or vertex-heavy segments
	MaxSamplePoints = 64

	// LengthEpsilon is the relative tolerance used when comparing summed
	// segment lengths against the owning feature length
	LengthEpsilon = 1e-9
)
