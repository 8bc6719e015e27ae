package scent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/sbp/pkg/decay"
	"github.com/codeready-toolchain/sbp/pkg/pheromone"
)

func entry(id, trail, typ string, intensity float64) pheromone.Entry {
	return pheromone.Entry{
		ID:               id,
		Trail:            trail,
		Type:             typ,
		EmittedAt:        0,
		LastReinforcedAt: 0,
		InitialIntensity: intensity,
		DecayModel:       decay.Model{Type: decay.Immortal},
		TTLFloor:         0.01,
	}
}

func TestEvaluateThreshold_SumAggregation(t *testing.T) {
	ctx := EvaluationContext{
		Pheromones: []pheromone.Entry{
			entry("p1", "incidents", "error_spike", 0.4),
			entry("p2", "incidents", "error_spike", 0.5),
			entry("p3", "other", "error_spike", 0.9),
		},
		Now: 0,
	}
	cond := &Condition{
		Type: ThresholdCondition, Trail: "incidents", SignalType: "*",
		Aggregation: "sum", Operator: ">=", Value: 0.8,
	}
	res := Evaluate(cond, ctx)
	assert.True(t, res.Met)
	assert.InDelta(t, 0.9, res.Value, 1e-9)
	assert.ElementsMatch(t, []string{"p1", "p2"}, res.MatchingIDs)
}

func TestEvaluateThreshold_SignalTypeFilter(t *testing.T) {
	ctx := EvaluationContext{
		Pheromones: []pheromone.Entry{
			entry("p1", "t", "a", 0.9),
			entry("p2", "t", "b", 0.9),
		},
		Now: 0,
	}
	cond := &Condition{Type: ThresholdCondition, Trail: "t", SignalType: "a", Aggregation: "count", Operator: "==", Value: 1}
	res := Evaluate(cond, ctx)
	assert.True(t, res.Met)
	assert.Equal(t, []string{"p1"}, res.MatchingIDs)
}

func TestEvaluateComposite_AndNot(t *testing.T) {
	ctx := EvaluationContext{
		Pheromones: []pheromone.Entry{
			entry("p1", "a", "x", 0.9),
		},
		Now: 0,
	}
	high := &Condition{Type: ThresholdCondition, Trail: "a", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1}
	low := &Condition{Type: ThresholdCondition, Trail: "b", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1}

	and := &Condition{Type: CompositeCondition, Operator: "and", Conditions: []*Condition{high, low}}
	res := Evaluate(and, ctx)
	assert.False(t, res.Met, "and requires both children true")

	not := &Condition{Type: CompositeCondition, Operator: "not", Conditions: []*Condition{low}}
	res2 := Evaluate(not, ctx)
	assert.True(t, res2.Met, "not inverts an unmet child")
}

func TestEvaluateComposite_EmptyChildrenNotMet(t *testing.T) {
	c := &Condition{Type: CompositeCondition, Operator: "and", Conditions: nil}
	res := Evaluate(c, EvaluationContext{})
	assert.False(t, res.Met)
}

func TestEvaluateComposite_MatchingIdsAreUnionRegardlessOfVerdict(t *testing.T) {
	ctx := EvaluationContext{
		Pheromones: []pheromone.Entry{entry("p1", "a", "x", 0.9)},
		Now:        0,
	}
	c1 := &Condition{Type: ThresholdCondition, Trail: "a", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1}
	c2 := &Condition{Type: ThresholdCondition, Trail: "a", SignalType: "*", Aggregation: "any", Operator: "<", Value: 0}
	or := &Condition{Type: CompositeCondition, Operator: "or", Conditions: []*Condition{c1, c2}}
	res := Evaluate(or, ctx)
	assert.Contains(t, res.MatchingIDs, "p1")
}

func TestEvaluateRate_EmissionsPerSecond(t *testing.T) {
	ctx := EvaluationContext{
		Now: 10000,
		EmissionHistory: []pheromone.HistoryEntry{
			{Trail: "t", Type: "x", Timestamp: 9000},
			{Trail: "t", Type: "x", Timestamp: 9500},
			{Trail: "t", Type: "y", Timestamp: 9500},
			{Trail: "other", Type: "x", Timestamp: 9500},
		},
	}
	cond := &Condition{
		Type: RateCondition, Trail: "t", SignalType: "*",
		Metric: "emissions_per_second", WindowMs: 2000, Operator: ">=", Value: 1.0,
	}
	res := Evaluate(cond, ctx)
	assert.True(t, res.Met)
	assert.InDelta(t, 1.5, res.Value, 1e-9)
}

func TestRegistry_RegisterResetsStateOnReregister(t *testing.T) {
	r := NewRegistry()
	cond := &Condition{Type: ThresholdCondition, Trail: "t", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1}

	status, _, err := r.Register(&Scent{ID: "s1", Condition: cond, TriggerMode: Level}, EvaluationContext{})
	assert.NoError(t, err)
	assert.Equal(t, "registered", status)

	s, _ := r.Get("s1")
	s.LastTriggeredAt = 500
	s.LastConditionMet = true

	status2, _, err := r.Register(&Scent{ID: "s1", Condition: cond, TriggerMode: Level}, EvaluationContext{})
	assert.NoError(t, err)
	assert.Equal(t, "updated", status2)

	s2, _ := r.Get("s1")
	assert.Equal(t, int64(-1), s2.LastTriggeredAt)
	assert.False(t, s2.LastConditionMet)
}

func TestRegistry_RejectsCompositeNotWithoutExactlyOneChild(t *testing.T) {
	r := NewRegistry()
	cond := &Condition{Type: CompositeCondition, Operator: "not", Conditions: nil}
	_, _, err := r.Register(&Scent{ID: "s1", Condition: cond}, EvaluationContext{})
	assert.Error(t, err)
}

func TestRegistry_RejectsUnsupportedRateMetric(t *testing.T) {
	r := NewRegistry()
	cond := &Condition{Type: RateCondition, Trail: "t", Metric: "intensity_delta", WindowMs: 1000, Operator: ">", Value: 0}
	_, _, err := r.Register(&Scent{ID: "s1", Condition: cond}, EvaluationContext{})
	assert.ErrorContains(t, err, "unsupported metric")
}

func TestRegistry_RejectsMalformedConditions(t *testing.T) {
	cases := map[string]*Condition{
		"rate without window": {Type: RateCondition, Trail: "t", Metric: "emissions_per_second", Operator: ">", Value: 1},
		"unknown aggregation": {Type: ThresholdCondition, Trail: "t", SignalType: "*", Aggregation: "median", Operator: ">=", Value: 0.5},
		"unknown operator":    {Type: ThresholdCondition, Trail: "t", SignalType: "*", Aggregation: "max", Operator: "~=", Value: 0.5},
		"unknown composite":   {Type: CompositeCondition, Operator: "xor", Conditions: []*Condition{{Type: ThresholdCondition, Trail: "t", Aggregation: "any", Operator: ">=", Value: 1}}},
		"unknown type":        {Type: "fuzzy", Trail: "t"},
	}
	for name, cond := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry()
			_, _, err := r.Register(&Scent{ID: "s1", Condition: cond}, EvaluationContext{})
			assert.ErrorIs(t, err, ErrInvalidCondition)
		})
	}
}

func TestRegistry_DeregisterReportsNotFound(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Deregister("missing"))
}
