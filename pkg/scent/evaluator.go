package scent

import (
	"github.com/codeready-toolchain/sbp/pkg/pheromone"
)

// maxConditionDepth bounds recursion through composite conditions, both as
// a defensive stack-depth limit and to reject pathological client input.
const maxConditionDepth = 32

// Evaluate walks a condition tree and reports whether it is met.
func Evaluate(c *Condition, ctx EvaluationContext) Result {
	return evaluate(c, ctx, 0)
}

func evaluate(c *Condition, ctx EvaluationContext, depth int) Result {
	if c == nil || depth > maxConditionDepth {
		return Result{}
	}
	switch c.Type {
	case ThresholdCondition:
		return evaluateThreshold(c, ctx)
	case CompositeCondition:
		return evaluateComposite(c, ctx, depth)
	case RateCondition:
		return evaluateRate(c, ctx)
	}
	return Result{}
}

func compare(a float64, op string, b float64) bool {
	switch op {
	case ">=":
		return a >= b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case "<":
		return a < b
	case "==":
		return a == b
	case "!=":
		return a != b
	}
	return false
}

func evaluateThreshold(c *Condition, ctx EvaluationContext) Result {
	var matching []pheromone.Entry
	for _, p := range ctx.Pheromones {
		if p.Trail != c.Trail {
			continue
		}
		if c.SignalType != "*" && p.Type != c.SignalType {
			continue
		}
		if p.Evaporated(ctx.Now) {
			continue
		}
		if c.Tags != nil && !pheromone.MatchTags(p.Tags, c.Tags) {
			continue
		}
		matching = append(matching, p)
	}

	agg := 0.0
	switch c.Aggregation {
	case "sum":
		for _, p := range matching {
			agg += p.Intensity(ctx.Now)
		}
	case "max":
		for _, p := range matching {
			if v := p.Intensity(ctx.Now); v > agg {
				agg = v
			}
		}
	case "avg":
		if len(matching) > 0 {
			sum := 0.0
			for _, p := range matching {
				sum += p.Intensity(ctx.Now)
			}
			agg = sum / float64(len(matching))
		}
	case "count":
		agg = float64(len(matching))
	case "any":
		if len(matching) > 0 {
			agg = 1.0
		}
	}

	ids := make([]string, len(matching))
	for i, p := range matching {
		ids[i] = p.ID
	}

	return Result{
		Met:         compare(agg, c.Operator, c.Value),
		Value:       agg,
		MatchingIDs: ids,
	}
}

func evaluateComposite(c *Condition, ctx EvaluationContext, depth int) Result {
	if len(c.Conditions) == 0 {
		return Result{Met: false, Value: 0}
	}

	results := make([]Result, len(c.Conditions))
	for i, sub := range c.Conditions {
		results[i] = evaluate(sub, ctx, depth+1)
	}

	// Matching ids are the union of every child's matches, regardless of
	// which children were actually true — a "not" or "or" branch that
	// didn't hold still contributed the pheromones it looked at.
	idSet := make(map[string]struct{})
	for _, r := range results {
		for _, id := range r.MatchingIDs {
			idSet[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var met bool
	switch c.Operator {
	case "and":
		met = true
		for _, r := range results {
			if !r.Met {
				met = false
				break
			}
		}
	case "or":
		for _, r := range results {
			if r.Met {
				met = true
				break
			}
		}
	case "not":
		met = !results[0].Met
	}

	count := 0
	for _, r := range results {
		if r.Met {
			count++
		}
	}

	return Result{Met: met, Value: float64(count), MatchingIDs: ids}
}

func evaluateRate(c *Condition, ctx EvaluationContext) Result {
	windowStart := ctx.Now - c.WindowMs

	var relevant []pheromone.HistoryEntry
	for _, e := range ctx.EmissionHistory {
		if e.Trail != c.Trail {
			continue
		}
		if c.SignalType != "*" && e.Type != c.SignalType {
			continue
		}
		if e.Timestamp < windowStart {
			continue
		}
		relevant = append(relevant, e)
	}

	value := 0.0
	switch c.Metric {
	case "emissions_per_second":
		windowSeconds := float64(c.WindowMs) / 1000.0
		if windowSeconds > 0 {
			value = float64(len(relevant)) / windowSeconds
		}
	default:
		// intensity_delta and anything else is rejected at registration
		// time (see validateCondition); this branch is unreachable for a
		// condition tree that passed validation.
		value = float64(len(relevant))
	}

	return Result{Met: compare(value, c.Operator, c.Value), Value: value}
}
