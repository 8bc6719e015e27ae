package api

import (
	"github.com/gin-gonic/gin"
)

// Protocol headers: a version advertised on every request/response, a
// session id the server mints on first contact and the client echoes
// thereafter, and an agent id carried for observability only.
const (
	headerProtocolVersion = "Sbp-Protocol-Version"
	headerSessionID       = "Sbp-Session-Id"
	headerAgentID         = "Sbp-Agent-Id"
)

// protocolHeaders stamps the protocol version on every response and records
// the caller's agent id (if present) in the gin context under ctxAgentID
// without otherwise acting on it; it carries
// no authentication semantics, matching this engine's explicit non-goal of
// authentication/transport security.
func (s *Server) protocolHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(headerProtocolVersion, s.protocolVersion)
		if agentID := c.GetHeader(headerAgentID); agentID != "" {
			c.Set(ctxAgentID, agentID)
		}
		c.Next()
	}
}

// securityHeaders sets a minimal set of defensive response headers,
// mirroring this codebase's standard security-headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

const ctxAgentID = "sbp_agent_id"
