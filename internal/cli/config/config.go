// Package config loads relineage CLI configuration from defaults, an
// optional relineage.yaml, environment variables and command-line flags, in
// that order of increasing precedence.
package config

// CatalogConfig describes the optional live-database catalog source.
type CatalogConfig struct {
	Driver  string   `koanf:"driver"`
	DSN     string   `koanf:"dsn"`
	Name    string   `koanf:"name"`
	Schemas []string `koanf:"schemas"`
}

// Config is the resolved CLI configuration.
type Config struct {
	LogLevel string        `koanf:"log_level"`
	Output   string        `koanf:"output"`
	Catalog  CatalogConfig `koanf:"catalog"`
}

// Defaults.
const (
	DefaultLogLevel = "info"
	DefaultOutput   = "text"
)
