package engine

import (
	"github.com/codeready-toolchain/sbp/pkg/decay"
	"github.com/codeready-toolchain/sbp/pkg/pheromone"
	"github.com/codeready-toolchain/sbp/pkg/scent"
)

// Config controls the engine's evaluation loop and defaults. Zero values
// are not valid; use DefaultConfig as a base.
type Config struct {
	// EvaluationPeriodMs is the fixed tick period of the scent evaluation
	// loop.
	EvaluationPeriodMs int64
	// EmissionHistoryWindowMs bounds the sliding window kept for rate
	// predicates.
	EmissionHistoryWindowMs int64
	// DefaultTTLFloor is applied to every pheromone created by Emit.
	DefaultTTLFloor float64
	// MaxExecutionMs advisory-bounds how long a trigger handler may run
	// before its context is cancelled; exceeding it is reported by the
	// handler's own context error, not unwound by the engine.
	MaxExecutionMs int64
	// DefaultDecay is applied to an emit() call that omits its own decay
	// block. The zero value falls back to decay.DefaultModel() (exponential,
	// 5 minute half-life).
	DefaultDecay decay.Model
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		EvaluationPeriodMs:      100,
		EmissionHistoryWindowMs: 60000,
		DefaultTTLFloor:         0.01,
		MaxExecutionMs:          30000,
		DefaultDecay:            decay.DefaultModel(),
	}
}

// RegisterScentParams is the input to Engine.RegisterScent.
type RegisterScentParams struct {
	ScentID           string
	Condition         *scent.Condition
	CooldownMs        int64
	ActivationPayload map[string]any
	ContextTrails     []string
	TriggerMode       scent.TriggerMode
	Hysteresis        float64
	MaxExecutionMs    int64
}

// ConditionSnapshot is the per-scent entry inside a TriggerPayload's
// condition_snapshot map.
type ConditionSnapshot struct {
	Value        float64  `json:"value"`
	PheromoneIDs []string `json:"pheromone_ids"`
}

// TriggerPayload is what a dispatched trigger delivers to its handler (a
// local subscriber or a pushed sbp/trigger notification).
type TriggerPayload struct {
	ScentID           string                       `json:"scent_id"`
	TriggeredAt       int64                        `json:"triggered_at"`
	ConditionSnapshot map[string]ConditionSnapshot `json:"condition_snapshot"`
	ContextPheromones []pheromone.Snapshot         `json:"context_pheromones"`
	ActivationPayload map[string]any               `json:"activation_payload"`
}

// ScentSummary is the per-scent view returned by Inspect.
type ScentSummary struct {
	ID               string `json:"id"`
	TriggerMode      string `json:"trigger_mode"`
	LastConditionMet bool   `json:"last_condition_met"`
	// LastTriggeredAt is nil until the scent has fired at least once.
	LastTriggeredAt *int64 `json:"last_triggered_at"`
}

// EngineStats is the summary block returned by Inspect.
type EngineStats struct {
	TotalPheromones int   `json:"total_pheromones"`
	TotalScents     int   `json:"total_scents"`
	UptimeMs        int64 `json:"uptime_ms"`
}

// InspectResult is the output of Engine.Inspect.
type InspectResult struct {
	Trails map[string]int `json:"trails"`
	Scents []ScentSummary `json:"scents"`
	Stats  EngineStats    `json:"stats"`
}
