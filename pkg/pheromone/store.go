package pheromone

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/sbp/pkg/decay"
)

// Store is the in-memory, concurrency-safe pheromone blackboard. Reads
// (Sniff, Snapshot) take a read lock; mutations (Emit, Evaporate, GC) take
// a write lock, so sniffers never observe a half-applied merge.
type Store struct {
	mu              sync.RWMutex
	pheromones      map[string]*Entry
	history         []HistoryEntry
	historyWindowMs int64
	defaultTTLFloor float64
	defaultDecay    decay.Model
}

// NewStore creates an empty store. historyWindowMs bounds the emission
// history ring used by rate predicates; defaultTTLFloor is applied to every
// pheromone created by Emit. The zero Model (empty ModelType) falls back to
// decay.DefaultModel(); callers that configure their own default decay (see
// pkg/config's DecayDefaults) pass it in directly.
func NewStore(historyWindowMs int64, defaultTTLFloor float64, defaultDecay ...decay.Model) *Store {
	model := decay.DefaultModel()
	if len(defaultDecay) > 0 && defaultDecay[0].Type != "" {
		model = defaultDecay[0]
	}
	return &Store{
		pheromones:      make(map[string]*Entry),
		historyWindowMs: historyWindowMs,
		defaultTTLFloor: defaultTTLFloor,
		defaultDecay:    model,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// Emit deposits or reinforces a pheromone. See MergeStrategy for the merge
// semantics applied when an existing, non-evaporated pheromone shares the
// same (trail, type, canonical payload hash).
func (s *Store) Emit(p EmitParams, now int64) (EmitResult, error) {
	if p.Trail == "" {
		return EmitResult{}, newValidationError("trail", errors.New("trail is required"))
	}
	if p.Type == "" {
		return EmitResult{}, newValidationError("type", errors.New("type is required"))
	}

	model := s.defaultDecay
	if p.Decay != nil {
		model = *p.Decay
	}
	if err := model.Validate(); err != nil {
		return EmitResult{}, newValidationError("decay", err)
	}

	strategy := p.MergeStrategy
	if strategy == "" {
		strategy = Reinforce
	}
	switch strategy {
	case Reinforce, Replace, Max, Add, New:
	default:
		return EmitResult{}, newValidationError("merge_strategy", fmt.Errorf("unknown merge strategy %q", strategy))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, HistoryEntry{Trail: p.Trail, Type: p.Type, Timestamp: now})
	s.pruneHistoryLocked(now)

	payloadHash := CanonicalHash(p.Payload)
	clamped := clamp01(p.Intensity)

	var existing *Entry
	if strategy != New {
		for _, e := range s.pheromones {
			if e.Trail == p.Trail && e.Type == p.Type &&
				CanonicalHash(e.Payload) == payloadHash && !e.Evaporated(now) {
				existing = e
				break
			}
		}
	}

	if existing != nil {
		prev := existing.Intensity(now)
		action := "reinforced"

		switch strategy {
		case Reinforce:
			existing.InitialIntensity = clamped
			existing.LastReinforcedAt = now
		case Replace:
			existing.InitialIntensity = clamped
			existing.LastReinforcedAt = now
			existing.Payload = p.Payload
			existing.Tags = p.Tags
			action = "replaced"
		case Max:
			existing.InitialIntensity = math.Max(prev, clamped)
			existing.LastReinforcedAt = now
			action = "merged"
		case Add:
			existing.InitialIntensity = math.Min(1.0, prev+clamped)
			existing.LastReinforcedAt = now
			action = "merged"
		}

		return EmitResult{
			PheromoneID:       existing.ID,
			Action:            action,
			PreviousIntensity: prev,
			NewIntensity:      existing.Intensity(now),
		}, nil
	}

	id := uuid.NewString()
	entry := &Entry{
		ID:               id,
		Trail:            p.Trail,
		Type:             p.Type,
		EmittedAt:        now,
		LastReinforcedAt: now,
		InitialIntensity: clamped,
		DecayModel:       model,
		Payload:          p.Payload,
		SourceAgent:      p.SourceAgent,
		Tags:             p.Tags,
		TTLFloor:         s.defaultTTLFloor,
	}
	s.pheromones[id] = entry

	return EmitResult{PheromoneID: id, Action: "created", NewIntensity: clamped}, nil
}

// Sniff returns a decay-applied, intensity-sorted (descending) view of the
// pheromones matching params, plus per (trail, type) aggregate statistics
// computed over the full matching set before any limit is applied.
func (s *Store) Sniff(p SniffParams, now int64) SniffResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type bucket struct {
		count int
		sum   float64
		max   float64
	}

	var results []Snapshot
	buckets := make(map[string]*bucket)

	for _, e := range s.pheromones {
		if len(p.Trails) > 0 && !containsStr(p.Trails, e.Trail) {
			continue
		}
		if len(p.Types) > 0 && !containsStr(p.Types, e.Type) {
			continue
		}

		intensity := e.Intensity(now)

		if !p.IncludeEvaporated && decay.Evaporated(intensity, e.TTLFloor) {
			continue
		}
		if intensity < p.MinIntensity {
			continue
		}
		if p.MaxAgeMs > 0 && now-e.EmittedAt > p.MaxAgeMs {
			continue
		}
		if p.Tags != nil && !MatchTags(e.Tags, p.Tags) {
			continue
		}

		results = append(results, Snapshot{
			ID:               e.ID,
			Trail:            e.Trail,
			Type:             e.Type,
			CurrentIntensity: intensity,
			Payload:          e.Payload,
			AgeMs:            now - e.EmittedAt,
			Tags:             e.Tags,
		})

		key := e.Trail + "/" + e.Type
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		b.sum += intensity
		if intensity > b.max {
			b.max = intensity
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CurrentIntensity > results[j].CurrentIntensity
	})

	aggregates := make(map[string]AggregateStats, len(buckets))
	for key, b := range buckets {
		avg := 0.0
		if b.count > 0 {
			avg = b.sum / float64(b.count)
		}
		aggregates[key] = AggregateStats{
			Count:        b.count,
			SumIntensity: b.sum,
			MaxIntensity: b.max,
			AvgIntensity: avg,
		}
	}

	if p.Limit > 0 && len(results) > p.Limit {
		results = results[:p.Limit]
	}

	return SniffResult{Timestamp: now, Pheromones: results, Aggregates: aggregates}
}

// Evaporate removes pheromones matching every specified selector (a
// pheromone must satisfy ALL given predicates to be removed, not just one).
// below_intensity uses a strict "<" comparison: a pheromone exactly at the
// threshold is not removed.
func (s *Store) Evaporate(p EvaporateParams, now int64) EvaporateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	trailSet := make(map[string]struct{})
	for id, e := range s.pheromones {
		if p.Trail != "" && e.Trail != p.Trail {
			continue
		}
		if len(p.Types) > 0 && !containsStr(p.Types, e.Type) {
			continue
		}
		if p.Tags != nil && !MatchTags(e.Tags, p.Tags) {
			continue
		}
		if p.BelowIntensity > 0 && !(e.Intensity(now) < p.BelowIntensity) {
			continue
		}
		if p.OlderThanMs > 0 && !(now-e.EmittedAt > p.OlderThanMs) {
			continue
		}

		removed = append(removed, id)
		trailSet[e.Trail] = struct{}{}
		delete(s.pheromones, id)
	}

	trails := make([]string, 0, len(trailSet))
	for t := range trailSet {
		trails = append(trails, t)
	}
	sort.Strings(trails)

	return EvaporateResult{RemovedCount: len(removed), RemovedIDs: removed, TrailsAffected: trails}
}

// GC removes pheromones that have decayed below their TTL floor. It is
// idempotent: calling it twice in a row with the same now and without an
// intervening Emit removes nothing on the second call.
func (s *Store) GC(now int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.pheromones {
		if e.Evaporated(now) {
			delete(s.pheromones, id)
			removed++
		}
	}
	return removed
}

// Snapshot returns a point-in-time copy of every entry held, for use by the
// predicate evaluator. Entries that have evaporated but not yet been removed
// by GC are included; callers filter them with Entry.Evaporated. The slice is
// safe to range over without holding any lock; the Entry values are copies.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.pheromones))
	for _, e := range s.pheromones {
		out = append(out, *e)
	}
	return out
}

// History returns a copy of the emission history ring.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// PruneHistory drops emission history entries older than the configured
// sliding window.
func (s *Store) PruneHistory(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneHistoryLocked(now)
}

func (s *Store) pruneHistoryLocked(now int64) {
	cutoff := now - s.historyWindowMs
	kept := s.history[:0]
	for _, e := range s.history {
		if e.Timestamp >= cutoff {
			kept = append(kept, e)
		}
	}
	s.history = kept
}

// Count returns the number of live (non-evaporated) pheromones at now.
func (s *Store) Count(now int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.pheromones {
		if !e.Evaporated(now) {
			n++
		}
	}
	return n
}

// TrailCounts returns the number of live pheromones per trail at now.
func (s *Store) TrailCounts(now int64) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, e := range s.pheromones {
		if !e.Evaporated(now) {
			out[e.Trail]++
		}
	}
	return out
}
