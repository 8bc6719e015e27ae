package api

import (
	"github.com/codeready-toolchain/sbp/pkg/decay"
	"github.com/codeready-toolchain/sbp/pkg/pheromone"
	"github.com/codeready-toolchain/sbp/pkg/scent"
)

// emitParams is the wire shape of sbp/emit's params.
type emitParams struct {
	Trail         string                  `json:"trail"`
	Type          string                  `json:"type"`
	Intensity     float64                 `json:"intensity"`
	Decay         *decay.Model            `json:"decay,omitempty"`
	Payload       map[string]any          `json:"payload,omitempty"`
	Tags          []string                `json:"tags,omitempty"`
	MergeStrategy pheromone.MergeStrategy `json:"merge_strategy,omitempty"`
	SourceAgent   string                  `json:"source_agent,omitempty"`
}

func (p emitParams) toStoreParams() pheromone.EmitParams {
	return pheromone.EmitParams{
		Trail:         p.Trail,
		Type:          p.Type,
		Intensity:     p.Intensity,
		Decay:         p.Decay,
		Payload:       p.Payload,
		Tags:          p.Tags,
		MergeStrategy: p.MergeStrategy,
		SourceAgent:   p.SourceAgent,
	}
}

// sniffParams is the wire shape of sbp/sniff's params.
type sniffParams struct {
	Trails            []string             `json:"trails,omitempty"`
	Types             []string             `json:"types,omitempty"`
	MinIntensity      float64              `json:"min_intensity,omitempty"`
	MaxAgeMs          int64                `json:"max_age_ms,omitempty"`
	Tags              *pheromone.TagFilter `json:"tags,omitempty"`
	Limit             int                  `json:"limit,omitempty"`
	IncludeEvaporated bool                 `json:"include_evaporated,omitempty"`
}

func (p sniffParams) toStoreParams() pheromone.SniffParams {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	return pheromone.SniffParams{
		Trails:            p.Trails,
		Types:             p.Types,
		MinIntensity:      p.MinIntensity,
		MaxAgeMs:          p.MaxAgeMs,
		Tags:              p.Tags,
		Limit:             limit,
		IncludeEvaporated: p.IncludeEvaporated,
	}
}

// evaporateParams is the wire shape of sbp/evaporate's params.
type evaporateParams struct {
	Trail          string               `json:"trail,omitempty"`
	Types          []string             `json:"types,omitempty"`
	OlderThanMs    int64                `json:"older_than_ms,omitempty"`
	BelowIntensity float64              `json:"below_intensity,omitempty"`
	Tags           *pheromone.TagFilter `json:"tags,omitempty"`
}

func (p evaporateParams) toStoreParams() pheromone.EvaporateParams {
	return pheromone.EvaporateParams{
		Trail:          p.Trail,
		Types:          p.Types,
		Tags:           p.Tags,
		OlderThanMs:    p.OlderThanMs,
		BelowIntensity: p.BelowIntensity,
	}
}

// registerScentParams is the wire shape of sbp/register_scent's params.
type registerScentParams struct {
	ScentID           string            `json:"scent_id"`
	AgentEndpoint     string            `json:"agent_endpoint,omitempty"`
	Condition         *scent.Condition  `json:"condition"`
	CooldownMs        int64             `json:"cooldown_ms,omitempty"`
	ActivationPayload map[string]any    `json:"activation_payload,omitempty"`
	TriggerMode       scent.TriggerMode `json:"trigger_mode,omitempty"`
	Hysteresis        float64           `json:"hysteresis,omitempty"`
	MaxExecutionMs    int64             `json:"max_execution_ms,omitempty"`
	ContextTrails     []string          `json:"context_trails,omitempty"`
}

// deregisterScentParams is the wire shape of sbp/deregister_scent's params.
type deregisterScentParams struct {
	ScentID string `json:"scent_id"`
}

// inspectParams is the wire shape of sbp/inspect's params.
type inspectParams struct {
	Include []string `json:"include,omitempty"`
}

func (p inspectParams) wants(section string) bool {
	if len(p.Include) == 0 {
		return true
	}
	for _, s := range p.Include {
		if s == section {
			return true
		}
	}
	return false
}

// subscribeParams is the wire shape of both sbp/subscribe and
// sbp/unsubscribe's params.
type subscribeParams struct {
	ScentID string `json:"scent_id"`
}
