package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/sbp/pkg/engine"
	"github.com/codeready-toolchain/sbp/pkg/rpc"
)

// dispatch routes one decoded JSON-RPC request to the matching engine
// operation and builds its response envelope. sessionID is the caller's
// Sbp-Session-Id header, used only by subscribe/unsubscribe.
func (s *Server) dispatch(req rpc.Request, sessionID string) rpc.Response {
	now := time.Now().UnixMilli()

	switch req.Method {
	case "sbp/emit":
		return s.handleEmit(req, now)
	case "sbp/sniff":
		return s.handleSniff(req, now)
	case "sbp/register_scent":
		return s.handleRegisterScent(req, now)
	case "sbp/deregister_scent":
		return s.handleDeregisterScent(req)
	case "sbp/evaporate":
		return s.handleEvaporate(req, now)
	case "sbp/inspect":
		return s.handleInspect(req, now)
	case "sbp/subscribe":
		return s.handleSubscribe(req, sessionID)
	case "sbp/unsubscribe":
		return s.handleUnsubscribe(req, sessionID)
	default:
		return rpc.Fail(req.ID, rpc.MethodNotFound(req.Method))
	}
}

func decodeParams[T any](raw []byte) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}

func (s *Server) handleEmit(req rpc.Request, now int64) rpc.Response {
	p, err := decodeParams[emitParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	result, err := s.engine.Emit(p.toStoreParams(), now)
	if err != nil {
		return rpc.Fail(req.ID, rpc.FromDomainError(err))
	}
	return rpc.Success(req.ID, result)
}

func (s *Server) handleSniff(req rpc.Request, now int64) rpc.Response {
	p, err := decodeParams[sniffParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	return rpc.Success(req.ID, s.engine.Sniff(p.toStoreParams(), now))
}

func (s *Server) handleEvaporate(req rpc.Request, now int64) rpc.Response {
	p, err := decodeParams[evaporateParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	return rpc.Success(req.ID, s.engine.Evaporate(p.toStoreParams(), now))
}

func (s *Server) handleRegisterScent(req rpc.Request, now int64) rpc.Response {
	p, err := decodeParams[registerScentParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	if p.ScentID == "" {
		return rpc.Fail(req.ID, rpc.InvalidParams("scent_id is required"))
	}
	if p.CooldownMs < 0 {
		return rpc.Fail(req.ID, rpc.InvalidParams("cooldown_ms must be >= 0"))
	}

	status, met, err := s.engine.RegisterScent(engine.RegisterScentParams{
		ScentID:           p.ScentID,
		Condition:         p.Condition,
		CooldownMs:        p.CooldownMs,
		ActivationPayload: p.ActivationPayload,
		ContextTrails:     p.ContextTrails,
		TriggerMode:       p.TriggerMode,
		Hysteresis:        p.Hysteresis,
		MaxExecutionMs:    p.MaxExecutionMs,
	}, now)
	if err != nil {
		return rpc.Fail(req.ID, rpc.FromDomainError(err))
	}

	// Every registered scent forwards its triggers into the push-channel
	// manager; sbp/subscribe then controls which sessions actually receive
	// them. Re-registering an existing scent_id reinstalls the same
	// forwarding handler, which is harmless.
	scentID := p.ScentID
	s.engine.Subscribe(scentID, func(_ context.Context, payload engine.TriggerPayload) error {
		s.events.Publish(scentID, payload)
		return nil
	})

	return rpc.Success(req.ID, map[string]any{
		"scent_id":                p.ScentID,
		"status":                  status,
		"current_condition_state": map[string]any{"met": met},
	})
}

func (s *Server) handleDeregisterScent(req rpc.Request) rpc.Response {
	p, err := decodeParams[deregisterScentParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	status := s.engine.DeregisterScent(p.ScentID)
	return rpc.Success(req.ID, map[string]any{"scent_id": p.ScentID, "status": status})
}

func (s *Server) handleInspect(req rpc.Request, now int64) rpc.Response {
	p, err := decodeParams[inspectParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	full := s.engine.Inspect(now)

	result := map[string]any{"timestamp": now}
	if p.wants("trails") {
		result["trails"] = full.Trails
	}
	if p.wants("scents") {
		result["scents"] = full.Scents
	}
	if p.wants("stats") {
		result["stats"] = full.Stats
	}
	return rpc.Success(req.ID, result)
}

func (s *Server) handleSubscribe(req rpc.Request, sessionID string) rpc.Response {
	p, err := decodeParams[subscribeParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	if sessionID == "" {
		return rpc.Fail(req.ID, rpc.InvalidParams("Sbp-Session-Id header is required to subscribe"))
	}
	if !s.events.Subscribe(sessionID, p.ScentID) {
		return rpc.Fail(req.ID, rpc.InvalidParams("unknown session: connect the push channel (GET /sbp) first"))
	}
	return rpc.Success(req.ID, map[string]any{"subscribed": p.ScentID})
}

func (s *Server) handleUnsubscribe(req rpc.Request, sessionID string) rpc.Response {
	p, err := decodeParams[subscribeParams](req.Params)
	if err != nil {
		return rpc.Fail(req.ID, rpc.InvalidParams(err.Error()))
	}
	s.events.Unsubscribe(sessionID, p.ScentID)
	return rpc.Success(req.ID, map[string]any{"unsubscribed": p.ScentID})
}
