package config

import "github.com/codeready-toolchain/sbp/pkg/decay"

// EngineDefaults mirrors engine.Config's tunables; kept as a separate type
// here (rather than importing pkg/engine) so pkg/config has no dependency on
// the engine package, matching this codebase's convention of a config
// package with no upward imports.
type EngineDefaults struct {
	EvaluationPeriodMs      int64   `yaml:"evaluation_period_ms,omitempty"`
	EmissionHistoryWindowMs int64   `yaml:"emission_history_window_ms,omitempty"`
	DefaultTTLFloor         float64 `yaml:"default_ttl_floor,omitempty"`
	MaxExecutionMs          int64   `yaml:"max_execution_ms,omitempty"`
}

// DecayDefaults describes the decay model applied to an emit() call that
// omits its own decay block.
type DecayDefaults struct {
	Type       decay.ModelType `yaml:"type,omitempty"`
	HalfLifeMs int64           `yaml:"half_life_ms,omitempty"`
}

// HTTPDefaults controls the transport.
type HTTPDefaults struct {
	Port    string `yaml:"port,omitempty"`
	GinMode string `yaml:"gin_mode,omitempty"`
}

// DefaultEngineDefaults matches engine.DefaultConfig's values; duplicated
// here rather than imported, see EngineDefaults' comment.
func DefaultEngineDefaults() EngineDefaults {
	return EngineDefaults{
		EvaluationPeriodMs:      100,
		EmissionHistoryWindowMs: 60000,
		DefaultTTLFloor:         0.01,
		MaxExecutionMs:          30000,
	}
}

func DefaultDecayDefaults() DecayDefaults {
	return DecayDefaults{Type: decay.Exponential, HalfLifeMs: 300000}
}

func DefaultHTTPDefaults() HTTPDefaults {
	return HTTPDefaults{Port: "3000", GinMode: "release"}
}
