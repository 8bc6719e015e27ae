// Package engine composes the pheromone store and scent registry into the
// running blackboard: a periodic evaluation loop, trigger dispatch and
// lifecycle management.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/sbp/pkg/decay"
	"github.com/codeready-toolchain/sbp/pkg/pheromone"
	"github.com/codeready-toolchain/sbp/pkg/scent"
)

// TriggerHandler receives a dispatched trigger. Handler errors are logged
// and swallowed; they never propagate to or block the evaluation loop.
type TriggerHandler func(context.Context, TriggerPayload) error

// Engine owns a pheromone store, a scent registry, and the background
// evaluation loop that ties them together. Construct with New and drive its
// lifecycle with Start/Stop; there is no package-level shared instance.
type Engine struct {
	Store    *pheromone.Store
	Registry *scent.Registry

	config Config
	logger *slog.Logger

	handlersMu sync.RWMutex
	handlers   map[string]TriggerHandler

	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	started   bool
	startTime int64
}

// New constructs an Engine. Start must be called before the evaluation loop
// runs; until then Emit/Sniff/RegisterScent etc. work but scents never fire.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	defaultDecay := cfg.DefaultDecay
	if defaultDecay.Type == "" {
		defaultDecay = decay.DefaultModel()
	}
	return &Engine{
		Store:    pheromone.NewStore(cfg.EmissionHistoryWindowMs, cfg.DefaultTTLFloor, defaultDecay),
		Registry: scent.NewRegistry(),
		config:   cfg,
		logger:   logger,
		handlers: make(map[string]TriggerHandler),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the evaluation loop goroutine. now is the epoch-ms start
// time recorded for Inspect's uptime_ms. Calling Start twice is a no-op.
func (e *Engine) Start(now int64) {
	if e.started {
		return
	}
	e.started = true
	e.startTime = now

	e.wg.Add(1)
	go e.loop()
}

// Stop signals the evaluation loop to exit and waits for the current tick
// (if any) to finish. Safe to call multiple times.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) loop() {
	defer e.wg.Done()

	period := time.Duration(e.config.EvaluationPeriodMs) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						e.logger.Error("recovered from panic in evaluation loop", "panic", r)
					}
				}()
				e.Tick(nowMs())
			}()
		}
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// Tick runs one evaluation pass: scent evaluation, trigger dispatch, and
// garbage collection. Exported so tests can drive the loop deterministically
// with an injected "now" instead of sleeping in real time.
func (e *Engine) Tick(now int64) {
	pheromones := e.Store.Snapshot()
	history := e.Store.History()
	ctx := scent.EvaluationContext{Pheromones: pheromones, Now: now, EmissionHistory: history}

	for _, s := range e.Registry.Snapshot() {
		lastTriggeredAt, lastMet := e.Registry.TriggerState(s)
		if lastTriggeredAt >= 0 && now-lastTriggeredAt < s.CooldownMs {
			// Cooldown suppresses evaluation entirely: last_condition_met is
			// left untouched, so an edge crossed during cooldown is lost.
			// This is deliberate (see the trigger-dispatch design notes).
			// LastTriggeredAt is -1 until the scent has fired at least once,
			// so a freshly registered scent is never cooldown-suppressed.
			continue
		}

		result := scent.Evaluate(s.Condition, ctx)
		met := result.Met

		shouldTrigger := false
		switch s.TriggerMode {
		case scent.Level:
			shouldTrigger = met
		case scent.EdgeRising:
			shouldTrigger = met && !lastMet
		case scent.EdgeFalling:
			shouldTrigger = !met && lastMet
		}

		e.Registry.RecordEvaluation(s, met, now, shouldTrigger)

		if shouldTrigger {
			e.dispatchTrigger(s, result, now)
		}
	}

	e.Store.PruneHistory(now)
	e.Store.GC(now)
}

func (e *Engine) dispatchTrigger(s *scent.Scent, result scent.Result, now int64) {
	idSet := make(map[string]struct{}, len(result.MatchingIDs))
	for _, id := range result.MatchingIDs {
		idSet[id] = struct{}{}
	}

	var contextPheromones []pheromone.Snapshot
	live := e.Store.Snapshot()
	if len(s.ContextTrails) > 0 {
		for _, p := range live {
			if containsStr(s.ContextTrails, p.Trail) && !p.Evaporated(now) {
				contextPheromones = append(contextPheromones, p.Snapshot(now))
			}
		}
	} else {
		for _, p := range live {
			if _, ok := idSet[p.ID]; ok {
				contextPheromones = append(contextPheromones, p.Snapshot(now))
			}
		}
	}

	payload := TriggerPayload{
		ScentID:     s.ID,
		TriggeredAt: now,
		ConditionSnapshot: map[string]ConditionSnapshot{
			s.ID: {Value: result.Value, PheromoneIDs: result.MatchingIDs},
		},
		ContextPheromones: contextPheromones,
		ActivationPayload: s.ActivationPayload,
	}

	e.handlersMu.RLock()
	handler := e.handlers[s.ID]
	e.handlersMu.RUnlock()
	if handler == nil {
		return
	}

	maxExecMs := e.config.MaxExecutionMs
	if maxExecMs <= 0 {
		maxExecMs = DefaultConfig().MaxExecutionMs
	}

	// Delivery is best-effort and decoupled from the evaluation loop: the
	// handler runs on its own goroutine so a slow or hung subscriber never
	// stalls the next tick.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("trigger handler panicked", "scent_id", s.ID, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(maxExecMs)*time.Millisecond)
		defer cancel()
		if err := handler(ctx, payload); err != nil {
			e.logger.Error("trigger handler error", "scent_id", s.ID, "error", err)
		}
	}()
}

func containsStr(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// Subscribe installs the handler invoked when scentID fires. A scent with no
// handler simply drops its triggers.
func (e *Engine) Subscribe(scentID string, handler TriggerHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers[scentID] = handler
}

// Unsubscribe removes any handler for scentID.
func (e *Engine) Unsubscribe(scentID string) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	delete(e.handlers, scentID)
}

// Emit delegates to the pheromone store.
func (e *Engine) Emit(p pheromone.EmitParams, now int64) (pheromone.EmitResult, error) {
	return e.Store.Emit(p, now)
}

// Sniff delegates to the pheromone store.
func (e *Engine) Sniff(p pheromone.SniffParams, now int64) pheromone.SniffResult {
	return e.Store.Sniff(p, now)
}

// Evaporate delegates to the pheromone store.
func (e *Engine) Evaporate(p pheromone.EvaporateParams, now int64) pheromone.EvaporateResult {
	return e.Store.Evaporate(p, now)
}

// RegisterScent validates and installs a scent, evaluating its condition
// immediately against the current environment.
func (e *Engine) RegisterScent(p RegisterScentParams, now int64) (status string, met bool, err error) {
	mode := p.TriggerMode
	if mode == "" {
		mode = scent.Level
	}

	s := &scent.Scent{
		ID:                p.ScentID,
		Condition:         p.Condition,
		CooldownMs:        p.CooldownMs,
		ActivationPayload: p.ActivationPayload,
		ContextTrails:     p.ContextTrails,
		TriggerMode:       mode,
		Hysteresis:        p.Hysteresis,
		MaxExecutionMs:    p.MaxExecutionMs,
	}

	ctx := scent.EvaluationContext{
		Pheromones:      e.Store.Snapshot(),
		Now:             now,
		EmissionHistory: e.Store.History(),
	}
	return e.Registry.Register(s, ctx)
}

// DeregisterScent removes a scent and its handler. Returns "deregistered" or
// "not_found".
func (e *Engine) DeregisterScent(scentID string) string {
	if e.Registry.Deregister(scentID) {
		e.Unsubscribe(scentID)
		return "deregistered"
	}
	return "not_found"
}

// Inspect returns a live snapshot of trail occupancy, registered scents and
// overall engine statistics.
func (e *Engine) Inspect(now int64) InspectResult {
	var scents []ScentSummary
	for _, s := range e.Registry.Snapshot() {
		lastTriggeredAt, lastMet := e.Registry.TriggerState(s)
		var lastTriggered *int64
		if lastTriggeredAt >= 0 {
			v := lastTriggeredAt
			lastTriggered = &v
		}
		scents = append(scents, ScentSummary{
			ID:               s.ID,
			TriggerMode:      string(s.TriggerMode),
			LastConditionMet: lastMet,
			LastTriggeredAt:  lastTriggered,
		})
	}

	return InspectResult{
		Trails: e.Store.TrailCounts(now),
		Scents: scents,
		Stats: EngineStats{
			TotalPheromones: e.Store.Count(now),
			TotalScents:     e.Registry.Count(),
			UptimeMs:        now - e.startTime,
		},
	}
}
