// Package app provides the application context and dependency management
// for the conflate CLI. It centralizes configuration loading, logger
// setup, and construction of the conflation pipeline.
package app

import (
	"github.com/rs/zerolog"

	"github.com/velomap/conflate"
	"github.com/velomap/conflate/pkg/errors"
)

// App represents the conflate application with its dependencies: version
// information, configuration, and the logger shared by all commands.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger
}

// New creates a new App instance with the given version information. The
// app loads its configuration from files and environment before any
// command runs.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Conflator builds a pipeline instance from the application
// configuration and the given extra options.
func (a *App) Conflator(opts ...conflate.Option) (conflate.Conflator, error) {
	cfg, err := a.config.ConflateConfig()
	if err != nil {
		return nil, err
	}

	if a.config.InputA == "" || a.config.InputB == "" {
		return nil, errors.NewConfigError("input", "", "both --input-a and --input-b are required")
	}

	all := append([]conflate.Option{
		conflate.WithConfig(cfg),
		conflate.WithDatasetFiles(a.config.InputA, a.config.InputB),
		conflate.WithLogger(a.logger),
	}, opts...)

	return conflate.New(all...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
