// Package api exposes the blackboard engine over HTTP: a JSON-RPC 2.0
// endpoint for the sbp/* operations and a server-sent-event push channel
// for trigger notifications, built on gin-gonic/gin as this codebase's
// other HTTP entrypoints are.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/sbp/pkg/engine"
	"github.com/codeready-toolchain/sbp/pkg/events"
	"github.com/codeready-toolchain/sbp/pkg/rpc"
)

// Server is the HTTP surface over one Engine.
type Server struct {
	router          *gin.Engine
	httpServer      *http.Server
	engine          *engine.Engine
	events          *events.Manager
	protocolVersion string
	logger          *slog.Logger
}

// NewServer wires a gin router exposing POST/GET /sbp over eng and mgr.
func NewServer(eng *engine.Engine, mgr *events.Manager, protocolVersion string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if protocolVersion == "" {
		protocolVersion = "0.1"
	}

	s := &Server{
		router:          gin.New(),
		engine:          eng,
		events:          mgr,
		protocolVersion: protocolVersion,
		logger:          logger,
	}

	s.router.Use(gin.Recovery(), securityHeaders(), s.protocolHeaders())
	s.setupRoutes()
	return s
}

// Router exposes the underlying gin engine, e.g. for httptest.NewServer in
// tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.POST("/sbp", s.rpcHandler)
	s.router.GET("/sbp", s.sseHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"protocol_version": s.protocolVersion,
		"sessions":         s.events.SessionCount(),
	})
}

// rpcHandler decodes one JSON-RPC 2.0 envelope from the request body and
// dispatches it to the matching engine operation.
func (s *Server) rpcHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, rpc.Fail("", rpc.ParseError(err.Error())))
		return
	}

	var req rpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusOK, rpc.Fail("", rpc.ParseError(err.Error())))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != rpc.ProtocolVersion {
		c.JSON(http.StatusOK, rpc.Fail(req.ID, rpc.NewError(rpc.CodeInvalidRequest, "unsupported jsonrpc version", nil)))
		return
	}

	sessionID := c.GetHeader(headerSessionID)
	resp := s.dispatch(req, sessionID)
	c.JSON(http.StatusOK, resp)
}

// Start runs the HTTP server on addr, blocking until it stops or errors.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on a pre-created listener, used by tests that
// need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.router}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
