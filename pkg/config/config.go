// Package config loads and validates sbpd's configuration: engine tunables,
// decay defaults, and HTTP transport settings, following this codebase's
// YAML-plus-environment-expansion-plus-merge loading pipeline.
package config

// Config is the umbrella configuration object returned by Initialize.
type Config struct {
	configDir string

	Engine   EngineDefaults
	Decay    DecayDefaults
	HTTP     HTTPDefaults
	Protocol ProtocolConfig
}

// ProtocolConfig carries the wire protocol version advertised on every
// request/response.
type ProtocolConfig struct {
	Version string `yaml:"version,omitempty"`
}

// ConfigDir returns the configuration directory path this Config was loaded
// from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ConfigStats summarizes the loaded configuration for startup logging.
type ConfigStats struct {
	EvaluationPeriodMs int64
	DecayModel         string
	HTTPPort           string
}

// Stats returns a summary suitable for structured logging at startup.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		EvaluationPeriodMs: c.Engine.EvaluationPeriodMs,
		DecayModel:         string(c.Decay.Type),
		HTTPPort:           c.HTTP.Port,
	}
}
