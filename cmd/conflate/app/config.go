package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/velomap/conflate"
	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/features"
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files, later overridden by flags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Input and output paths
	InputA  string
	InputB  string
	Output  string
	Report  string
	Reviews string

	// Matching parameters
	SegmentLength      float64
	BufferDistance     float64
	MaxHausdorff       float64
	AngularThreshold   float64
	MinMatchedFraction float64
	Workers            int

	// Conflation policy
	BaseModel         string
	CheckMode         string
	MinTimestamp      string
	MinVersion        int
	MinAttributeCount int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (.conflate.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CONFLATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".conflate")
	}

	// A missing config file is fine; an explicitly named broken one is not.
	if err := viper.ReadInConfig(); err != nil && configFile != "" {
		return nil, errors.NewParseError("yaml", configFile, "reading config file", err)
	}

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		InputA:  viper.GetString("input_a"),
		InputB:  viper.GetString("input_b"),
		Output:  viper.GetString("output"),
		Report:  viper.GetString("report"),
		Reviews: viper.GetString("reviews"),

		SegmentLength:      viper.GetFloat64("segment_length"),
		BufferDistance:     viper.GetFloat64("buffer_distance"),
		MaxHausdorff:       viper.GetFloat64("max_hausdorff"),
		AngularThreshold:   viper.GetFloat64("angular_threshold"),
		MinMatchedFraction: viper.GetFloat64("min_matched_fraction"),
		Workers:            viper.GetInt("workers"),

		BaseModel:         viper.GetString("base_model"),
		CheckMode:         viper.GetString("check_mode"),
		MinTimestamp:      viper.GetString("min_timestamp"),
		MinVersion:        viper.GetInt("min_version"),
		MinAttributeCount: viper.GetInt("min_attribute_count"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// setDefaults registers the domain-tuned defaults with viper.
func setDefaults() {
	viper.SetDefault("segment_length", constants.DefaultSegmentLength)
	viper.SetDefault("buffer_distance", constants.DefaultBufferDistance)
	viper.SetDefault("max_hausdorff", constants.DefaultMaxHausdorff)
	viper.SetDefault("angular_threshold", constants.DefaultAngularThreshold)
	viper.SetDefault("min_matched_fraction", constants.DefaultMinMatchedFraction)
	viper.SetDefault("base_model", string(features.OriginA))
	viper.SetDefault("check_mode", string(conflation.NoCheck))
}

// ConflateConfig builds the validated pipeline configuration.
func (c *Config) ConflateConfig() (*conflate.Config, error) {
	cfg := conflate.DefaultConfig()
	cfg.SegmentLength = c.SegmentLength
	cfg.BufferDistance = c.BufferDistance
	cfg.MaxHausdorff = c.MaxHausdorff
	cfg.AngularThreshold = c.AngularThreshold
	cfg.MinMatchedFraction = c.MinMatchedFraction
	cfg.Workers = c.Workers

	base := features.Origin(strings.ToUpper(strings.TrimSpace(c.BaseModel)))
	if !base.Valid() {
		return nil, errors.NewConfigError("base_model", c.BaseModel, "must be A or B")
	}
	cfg.BaseModel = base

	mode, err := conflation.ParseCheckMode(c.CheckMode)
	if err != nil {
		return nil, err
	}
	cfg.CheckMode = mode

	rules, err := c.trustRules()
	if err != nil {
		return nil, err
	}
	cfg.TrustRules = rules

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// trustRules assembles the trust policy from the flat config fields.
func (c *Config) trustRules() (conflation.TrustRules, error) {
	rules := conflation.TrustRules{
		MinAttributeCount: c.MinAttributeCount,
	}

	if c.MinTimestamp != "" {
		ts, err := parseTimestamp(c.MinTimestamp)
		if err != nil {
			return rules, errors.NewConfigError("min_timestamp", c.MinTimestamp, "must be RFC 3339 or YYYY-MM-DD")
		}
		rules.MinTimestamp = &ts
	}
	if c.MinVersion > 0 {
		v := c.MinVersion
		rules.MinVersion = &v
	}

	return rules, nil
}

// parseTimestamp accepts full RFC 3339 timestamps or plain dates.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}

// UpdateFromFlags updates config values from parsed command flags. This
// is called after cobra parses flags so flag values take precedence over
// config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
