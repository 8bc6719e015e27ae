// Package scent implements declarative predicates over the pheromone
// environment ("scents") and the registry that tracks their trigger state.
package scent

import (
	"github.com/codeready-toolchain/sbp/pkg/pheromone"
)

// ConditionType tags the variant of a Condition node.
type ConditionType string

const (
	ThresholdCondition ConditionType = "threshold"
	CompositeCondition ConditionType = "composite"
	RateCondition      ConditionType = "rate"
)

// Condition is a predicate tree node. It is a tagged union expressed as one
// struct (rather than an interface per variant) so the tree round-trips
// through JSON without a custom UnmarshalJSON: Type selects which of the
// remaining fields apply.
//
//   - threshold: Trail, SignalType, Tags, Aggregation, Operator, Value
//   - composite: Operator (and|or|not), Conditions
//   - rate:      Trail, SignalType, Metric, WindowMs, Operator, Value
type Condition struct {
	Type ConditionType `json:"type"`

	// threshold + rate
	Trail      string `json:"trail,omitempty"`
	SignalType string `json:"signal_type,omitempty"`

	// threshold only
	Tags        *pheromone.TagFilter `json:"tags,omitempty"`
	Aggregation string               `json:"aggregation,omitempty"`

	// threshold + composite + rate (meaning depends on Type)
	Operator string  `json:"operator,omitempty"`
	Value    float64 `json:"value,omitempty"`

	// composite only
	Conditions []*Condition `json:"conditions,omitempty"`

	// rate only
	Metric   string `json:"metric,omitempty"`
	WindowMs int64  `json:"window_ms,omitempty"`
}

// Result is what evaluating a Condition against an EvaluationContext
// produces.
type Result struct {
	Met         bool     `json:"met"`
	Value       float64  `json:"value"`
	MatchingIDs []string `json:"matching_pheromone_ids"`
}

// EvaluationContext is the environment a Condition is evaluated against.
type EvaluationContext struct {
	Pheromones      []pheromone.Entry
	Now             int64
	EmissionHistory []pheromone.HistoryEntry
}

// TriggerMode controls when a met/unmet condition actually fires a trigger.
type TriggerMode string

const (
	Level       TriggerMode = "level"
	EdgeRising  TriggerMode = "edge_rising"
	EdgeFalling TriggerMode = "edge_falling"
)

// Scent is a registered, stateful predicate watch.
type Scent struct {
	ID                string
	Condition         *Condition
	CooldownMs        int64
	ActivationPayload map[string]any
	ContextTrails     []string
	TriggerMode       TriggerMode

	// Hysteresis and MaxExecutionMs are accepted and stored but their
	// semantics are not demonstrated by any scenario in this repository;
	// they are advisory fields carried for forward compatibility.
	Hysteresis     float64
	MaxExecutionMs int64

	// Runtime state, guarded by the owning Registry's lock: the evaluation
	// loop writes it through Registry.RecordEvaluation and concurrent
	// readers (inspect) go through Registry.TriggerState. Everything above
	// is immutable after Register and safe to read directly.
	LastTriggeredAt  int64
	LastConditionMet bool
}
