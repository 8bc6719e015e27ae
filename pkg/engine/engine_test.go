package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/sbp/pkg/pheromone"
	"github.com/codeready-toolchain/sbp/pkg/scent"
)

func newTestEngine() *Engine {
	return New(DefaultConfig(), nil)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "condition not met before timeout")
}

func TestRegisterScent_ImmediateEvaluation(t *testing.T) {
	e := newTestEngine()
	e.Emit(pheromone.EmitParams{Trail: "incidents", Type: "error_spike", Intensity: 0.9, Payload: map[string]any{}}, 0)

	status, met, err := e.RegisterScent(RegisterScentParams{
		ScentID: "s1",
		Condition: &scent.Condition{
			Type: scent.ThresholdCondition, Trail: "incidents", SignalType: "*",
			Aggregation: "max", Operator: ">=", Value: 0.5,
		},
		TriggerMode: scent.Level,
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "registered", status)
	assert.True(t, met)
}

func TestTick_LevelModeTriggersRepeatedlyPastCooldown(t *testing.T) {
	e := newTestEngine()
	e.Emit(pheromone.EmitParams{Trail: "incidents", Type: "error_spike", Intensity: 0.9, Payload: map[string]any{}}, 0)

	var triggerTimes []int64
	var mu sync.Mutex
	done := make(chan struct{}, 10)

	e.RegisterScent(RegisterScentParams{
		ScentID: "s1",
		Condition: &scent.Condition{
			Type: scent.ThresholdCondition, Trail: "incidents", SignalType: "*",
			Aggregation: "max", Operator: ">=", Value: 0.5,
		},
		TriggerMode: scent.Level,
		CooldownMs:  1000,
	}, 0)
	e.Subscribe("s1", func(_ context.Context, p TriggerPayload) error {
		mu.Lock()
		triggerTimes = append(triggerTimes, p.TriggeredAt)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	e.Tick(0)
	<-done
	e.Tick(500) // still within cooldown
	e.Tick(1000)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, triggerTimes, 2)
	assert.GreaterOrEqual(t, triggerTimes[1]-triggerTimes[0], int64(1000))
}

func TestTick_EdgeRisingFiresOnceUntilConditionFalls(t *testing.T) {
	e := newTestEngine()
	var fireCount int32
	done := make(chan struct{}, 10)

	e.RegisterScent(RegisterScentParams{
		ScentID: "s1",
		Condition: &scent.Condition{
			Type: scent.ThresholdCondition, Trail: "t", SignalType: "*",
			Aggregation: "any", Operator: ">=", Value: 1,
		},
		TriggerMode: scent.EdgeRising,
	}, 0)
	e.Subscribe("s1", func(_ context.Context, _ TriggerPayload) error {
		atomic.AddInt32(&fireCount, 1)
		done <- struct{}{}
		return nil
	})

	e.Emit(pheromone.EmitParams{Trail: "t", Type: "x", Intensity: 0.9, Payload: map[string]any{}}, 0)
	e.Tick(0)
	<-done
	e.Tick(10) // condition still met, but no new rising edge
	e.Tick(20)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fireCount))
}

func TestTick_CompositeAndNot(t *testing.T) {
	e := newTestEngine()
	e.Emit(pheromone.EmitParams{Trail: "a", Type: "x", Intensity: 0.9, Payload: map[string]any{}}, 0)

	aHigh := &scent.Condition{Type: scent.ThresholdCondition, Trail: "a", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1}
	bHigh := &scent.Condition{Type: scent.ThresholdCondition, Trail: "b", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1}
	notB := &scent.Condition{Type: scent.CompositeCondition, Operator: "not", Conditions: []*scent.Condition{bHigh}}
	cond := &scent.Condition{Type: scent.CompositeCondition, Operator: "and", Conditions: []*scent.Condition{aHigh, notB}}

	_, met, err := e.RegisterScent(RegisterScentParams{ScentID: "s1", Condition: cond, TriggerMode: scent.Level}, 0)
	require.NoError(t, err)
	assert.True(t, met)
}

func TestDeregisterScent_StopsDispatch(t *testing.T) {
	e := newTestEngine()
	e.Emit(pheromone.EmitParams{Trail: "t", Type: "x", Intensity: 0.9, Payload: map[string]any{}}, 0)
	e.RegisterScent(RegisterScentParams{
		ScentID:     "s1",
		Condition:   &scent.Condition{Type: scent.ThresholdCondition, Trail: "t", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1},
		TriggerMode: scent.Level,
	}, 0)
	fired := make(chan struct{}, 1)
	e.Subscribe("s1", func(_ context.Context, _ TriggerPayload) error {
		fired <- struct{}{}
		return nil
	})

	status := e.DeregisterScent("s1")
	assert.Equal(t, "deregistered", status)
	assert.Equal(t, "not_found", e.DeregisterScent("s1"))

	insp := e.Inspect(0)
	assert.Equal(t, 0, insp.Stats.TotalScents)

	// The condition is still met, but a deregistered scent must not fire.
	e.Tick(0)
	select {
	case <-fired:
		t.Fatal("deregistered scent should not dispatch a trigger")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInspect_ConcurrentWithRunningLoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvaluationPeriodMs = 1
	e := New(cfg, nil)

	now := time.Now().UnixMilli()
	e.Emit(pheromone.EmitParams{Trail: "t", Type: "x", Intensity: 0.9, Payload: map[string]any{}}, now)
	e.RegisterScent(RegisterScentParams{
		ScentID:     "s1",
		Condition:   &scent.Condition{Type: scent.ThresholdCondition, Trail: "t", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1},
		TriggerMode: scent.Level,
	}, now)

	e.Start(now)
	defer e.Stop()

	// Poll inspect while the loop keeps triggering s1 and updating its
	// runtime state; run with -race to verify the registry lock covers the
	// handoff between the loop and concurrent readers.
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		insp := e.Inspect(time.Now().UnixMilli())
		require.Equal(t, 1, insp.Stats.TotalScents)
	}
}

func TestStartStop_LoopRunsAndStopsCleanly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvaluationPeriodMs = 5
	e := New(cfg, nil)

	var ticks int32
	// The running loop evaluates at wall-clock time, so the pheromone must be
	// emitted at wall-clock time too or it has long evaporated by the first tick.
	now := time.Now().UnixMilli()
	e.Emit(pheromone.EmitParams{Trail: "t", Type: "x", Intensity: 0.9, Payload: map[string]any{}}, now)
	e.RegisterScent(RegisterScentParams{
		ScentID:     "s1",
		Condition:   &scent.Condition{Type: scent.ThresholdCondition, Trail: "t", SignalType: "*", Aggregation: "any", Operator: ">=", Value: 1},
		TriggerMode: scent.EdgeRising,
	}, now)
	e.Subscribe("s1", func(_ context.Context, _ TriggerPayload) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})

	e.Start(time.Now().UnixMilli())
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&ticks) >= 1 })
	e.Stop()
}
