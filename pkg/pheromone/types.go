// Package pheromone implements the pheromone store: emission, decay-aware
// sniffing, evaporation and the emission history used by rate predicates.
package pheromone

import (
	"github.com/codeready-toolchain/sbp/pkg/decay"
)

// MergeStrategy controls how emit() combines a new signal with an existing,
// non-evaporated pheromone that shares the same (trail, type, payload hash).
type MergeStrategy string

const (
	Reinforce MergeStrategy = "reinforce"
	Replace   MergeStrategy = "replace"
	Max       MergeStrategy = "max"
	Add       MergeStrategy = "add"
	New       MergeStrategy = "new"
)

// TagFilter expresses tag-based filtering: any/all/none. An unset field
// imposes no constraint.
type TagFilter struct {
	Any  []string `json:"any,omitempty"`
	All  []string `json:"all,omitempty"`
	None []string `json:"none,omitempty"`
}

// Entry is a pheromone as held in the store. Its intensity is not stored
// directly; it is always recomputed from InitialIntensity, LastReinforcedAt
// and DecayModel against a caller-supplied "now".
type Entry struct {
	ID               string         `json:"id"`
	Trail            string         `json:"trail"`
	Type             string         `json:"type"`
	EmittedAt        int64          `json:"emitted_at"`
	LastReinforcedAt int64          `json:"last_reinforced_at"`
	InitialIntensity float64        `json:"initial_intensity"`
	DecayModel       decay.Model    `json:"decay_model"`
	Payload          map[string]any `json:"payload"`
	SourceAgent      string         `json:"source_agent,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	TTLFloor         float64        `json:"ttl_floor"`
}

// Intensity returns the entry's current intensity at time now.
func (e Entry) Intensity(now int64) float64 {
	return decay.Intensity(e.InitialIntensity, e.LastReinforcedAt, now, e.DecayModel)
}

// Evaporated reports whether the entry has decayed below its TTL floor.
func (e Entry) Evaporated(now int64) bool {
	return decay.Evaporated(e.Intensity(now), e.TTLFloor)
}

// Snapshot returns the wire-facing view of an entry at time now.
func (e Entry) Snapshot(now int64) Snapshot {
	return Snapshot{
		ID:               e.ID,
		Trail:            e.Trail,
		Type:             e.Type,
		CurrentIntensity: e.Intensity(now),
		Payload:          e.Payload,
		AgeMs:            now - e.EmittedAt,
		Tags:             e.Tags,
	}
}

// Snapshot is the read-only, decay-applied view of a pheromone returned by
// sniff() and embedded in trigger payloads.
type Snapshot struct {
	ID               string         `json:"id"`
	Trail            string         `json:"trail"`
	Type             string         `json:"type"`
	CurrentIntensity float64        `json:"current_intensity"`
	Payload          map[string]any `json:"payload"`
	AgeMs            int64          `json:"age_ms"`
	Tags             []string       `json:"tags,omitempty"`
}

// HistoryEntry is one append-only emission record, used only by rate
// predicates and pruned on a sliding window.
type HistoryEntry struct {
	Trail     string `json:"trail"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// EmitParams is the input to Store.Emit.
type EmitParams struct {
	Trail         string
	Type          string
	Intensity     float64
	Decay         *decay.Model
	Payload       map[string]any
	SourceAgent   string
	Tags          []string
	MergeStrategy MergeStrategy
}

// EmitResult reports what Store.Emit did.
type EmitResult struct {
	PheromoneID       string  `json:"pheromone_id"`
	Action            string  `json:"action"` // created, reinforced, replaced, merged
	PreviousIntensity float64 `json:"previous_intensity,omitempty"`
	NewIntensity      float64 `json:"new_intensity"`
}

// SniffParams is the input to Store.Sniff.
type SniffParams struct {
	Trails            []string
	Types             []string
	Tags              *TagFilter
	MinIntensity      float64
	MaxAgeMs          int64
	IncludeEvaporated bool
	Limit             int
}

// AggregateStats summarizes one trail/type bucket returned alongside
// sniff() results.
type AggregateStats struct {
	Count        int     `json:"count"`
	SumIntensity float64 `json:"sum_intensity"`
	MaxIntensity float64 `json:"max_intensity"`
	AvgIntensity float64 `json:"avg_intensity"`
}

// SniffResult is the output of Store.Sniff.
type SniffResult struct {
	Timestamp  int64                     `json:"timestamp"`
	Pheromones []Snapshot                `json:"pheromones"`
	Aggregates map[string]AggregateStats `json:"aggregates"`
}

// EvaporateParams is the input to Store.Evaporate. Every specified selector
// must hold for a pheromone to be removed (logical AND); an entirely empty
// EvaporateParams matches every pheromone in the store, including evaporated
// entries that GC has not yet removed.
type EvaporateParams struct {
	Trail          string
	Types          []string
	Tags           *TagFilter
	BelowIntensity float64
	OlderThanMs    int64
}

// EvaporateResult reports what Store.Evaporate removed.
type EvaporateResult struct {
	RemovedCount   int      `json:"evaporated_count"`
	RemovedIDs     []string `json:"removed_ids"`
	TrailsAffected []string `json:"trails_affected"`
}
