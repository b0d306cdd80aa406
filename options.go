package conflate

import (
	"github.com/rs/zerolog"

	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/geomatch"
	"github.com/velomap/conflate/pkg/logging"
)

// Config carries every pipeline parameter. Distances are in the unit of
// the projected input coordinates; angles in degrees.
type Config struct {
	// SegmentLength is the target segmentation length L.
	SegmentLength float64 `yaml:"segment_length"`

	// BufferDistance is the candidate lookup radius B.
	BufferDistance float64 `yaml:"buffer_distance"`

	// MaxHausdorff is the shape-distance admissibility threshold H.
	MaxHausdorff float64 `yaml:"max_hausdorff"`

	// AngularThreshold is the orientation admissibility threshold in
	// degrees within [0, 90].
	AngularThreshold float64 `yaml:"angular_threshold"`

	// MinMatchedFraction is the matched-length share above which a
	// feature counts as matched.
	MinMatchedFraction float64 `yaml:"min_matched_fraction"`

	// BaseModel selects which dataset keeps its geometry when both
	// sides of a match are accepted.
	BaseModel features.Origin `yaml:"base_model"`

	// CheckMode selects the doubtful-feature procedure.
	CheckMode conflation.CheckMode `yaml:"check_mode"`

	// TrustRules apply when CheckMode is AutoThenManual.
	TrustRules conflation.TrustRules `yaml:"trust_rules"`

	// Workers is the parallel matching worker count. Zero means one per
	// available CPU.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the domain-tuned defaults.
func DefaultConfig() *Config {
	return &Config{
		SegmentLength:      constants.DefaultSegmentLength,
		BufferDistance:     constants.DefaultBufferDistance,
		MaxHausdorff:       constants.DefaultMaxHausdorff,
		AngularThreshold:   constants.DefaultAngularThreshold,
		MinMatchedFraction: constants.DefaultMinMatchedFraction,
		BaseModel:          features.OriginA,
		CheckMode:          conflation.NoCheck,
	}
}

// Validate checks every parameter range.
func (c *Config) Validate() error {
	if err := c.matchConfig().Validate(); err != nil {
		return err
	}
	return c.engineConfig().Validate()
}

// matchConfig projects the matching parameters.
func (c *Config) matchConfig() geomatch.Config {
	return geomatch.Config{
		SegmentLength:    c.SegmentLength,
		BufferDistance:   c.BufferDistance,
		MaxHausdorff:     c.MaxHausdorff,
		AngularThreshold: c.AngularThreshold,
		Workers:          c.Workers,
	}
}

// engineConfig projects the decision policy.
func (c *Config) engineConfig() conflation.Config {
	return conflation.Config{
		BaseModel:          c.BaseModel,
		CheckMode:          c.CheckMode,
		TrustRules:         c.TrustRules,
		MinMatchedFraction: c.MinMatchedFraction,
	}
}

// config is the internal option target: the public parameters plus the
// input bindings.
type config struct {
	*Config

	datasetA *features.Dataset
	datasetB *features.Dataset
	pathA    string
	pathB    string

	logger *zerolog.Logger
}

// defaultConfig returns the internal defaults.
func defaultConfig() *config {
	return &config{
		Config: DefaultConfig(),
		logger: logging.Default(),
	}
}

// Option is a function that configures a Conflator instance.
type Option func(*config) error

// WithConfig replaces the whole parameter set.
func WithConfig(cfg *Config) Option {
	return func(c *config) error {
		if cfg != nil {
			c.Config = cfg
		}
		return nil
	}
}

// WithDatasets supplies both input datasets in memory.
func WithDatasets(a, b *features.Dataset) Option {
	return func(c *config) error {
		c.datasetA = a
		c.datasetB = b
		return nil
	}
}

// WithDatasetFiles supplies both inputs as GeoJSON file paths, loaded
// when the Conflator is created.
func WithDatasetFiles(pathA, pathB string) Option {
	return func(c *config) error {
		c.pathA = pathA
		c.pathB = pathB
		return nil
	}
}

// WithSegmentLength sets the target segmentation length.
func WithSegmentLength(length float64) Option {
	return func(c *config) error {
		c.SegmentLength = length
		return nil
	}
}

// WithBufferDistance sets the candidate lookup radius.
func WithBufferDistance(buffer float64) Option {
	return func(c *config) error {
		c.BufferDistance = buffer
		return nil
	}
}

// WithMaxHausdorff sets the shape-distance threshold.
func WithMaxHausdorff(h float64) Option {
	return func(c *config) error {
		c.MaxHausdorff = h
		return nil
	}
}

// WithAngularThreshold sets the orientation threshold in degrees.
func WithAngularThreshold(degrees float64) Option {
	return func(c *config) error {
		c.AngularThreshold = degrees
		return nil
	}
}

// WithMinMatchedFraction sets the matched-length share above which a
// feature counts as matched.
func WithMinMatchedFraction(fraction float64) Option {
	return func(c *config) error {
		c.MinMatchedFraction = fraction
		return nil
	}
}

// WithBaseModel sets the base-dataset preference.
func WithBaseModel(origin features.Origin) Option {
	return func(c *config) error {
		c.BaseModel = origin
		return nil
	}
}

// WithCheckMode sets the doubtful-feature procedure.
func WithCheckMode(mode conflation.CheckMode) Option {
	return func(c *config) error {
		c.CheckMode = mode
		return nil
	}
}

// WithTrustRules sets the trust policy for AutoThenManual runs.
func WithTrustRules(rules conflation.TrustRules) Option {
	return func(c *config) error {
		c.TrustRules = rules
		return nil
	}
}

// WithWorkers sets the parallel matching worker count.
func WithWorkers(n int) Option {
	return func(c *config) error {
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger used by the pipeline.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}
