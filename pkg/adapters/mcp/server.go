// Package mcp exposes the workflow engine as an MCP server, so agent
// frameworks can drive IPTU payment conversations as a tool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lucasmbraga/taxflow"
	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/pkg/domain"
)

// TurnResponse is the structured result of one workflow turn.
type TurnResponse struct {
	State    *domain.State `json:"state" jsonschema_description:"The session state after the turn"`
	Prompt   string        `json:"prompt,omitempty" jsonschema_description:"The question the user must answer next"`
	Schema   string        `json:"schema,omitempty" jsonschema_description:"The payload schema the next turn must carry"`
	Terminal bool          `json:"terminal" jsonschema_description:"Whether the workflow finished"`
}

// Engine is the part of the workflow engine the MCP surface needs.
type Engine interface {
	Execute(ctx context.Context, sessionID string, payload map[string]any) (*domain.State, error)
	Session(ctx context.Context, sessionID string) (*domain.State, error)
	List(ctx context.Context) ([]string, error)
}

// Server wraps the engine and exposes it over MCP.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("taxflow-mcp", strings.TrimSpace(taxflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: iptu_payment
	turnTool := mcp.NewTool("iptu_payment",
		mcp.WithDescription("Advance an IPTU payment conversation by one turn. "+
			"Call with an empty payload to start; each response carries the question "+
			"and the payload schema the next call must answer."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session id")),
		mcp.WithString("payload", mcp.Description("JSON object answering the pending question (optional on the first turn)")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleTurn))

	// TOOL: get_session
	sessionTool := mcp.NewTool("get_session",
		mcp.WithDescription("Inspect the current state of an IPTU payment session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session id")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(sessionTool, mcp.NewStructuredToolHandler(s.handleGetSession))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the known IPTU payment session ids."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, _ := args["session_id"].(string)

	var payload map[string]any
	if raw, ok := args["payload"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return TurnResponse{}, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}

	st, err := s.engine.Execute(ctx, sessionID, payload)
	if err != nil {
		s.logger.Error("MCP turn failed", "session_id", sessionID, "err", err)
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}

	return toTurnResponse(st), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, _ := args["session_id"].(string)

	st, err := s.engine.Session(ctx, sessionID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("session lookup failed: %w", err)
	}
	return toTurnResponse(st), nil
}

func toTurnResponse(st *domain.State) TurnResponse {
	resp := TurnResponse{
		State:    st,
		Terminal: st.Status == domain.StatusCompleted,
	}
	if st.Prompt != nil {
		resp.Prompt = st.Prompt.Description
		if st.Prompt.ErrorMessage != "" {
			resp.Prompt = st.Prompt.ErrorMessage + "\n\n" + resp.Prompt
		}
		resp.Schema = st.Prompt.PayloadSchema
	}
	return resp
}

func (s *Server) registerResources() {
	// EXPOSE: taxflow://sessions
	s.mcpServer.AddResource(mcp.NewResource("taxflow://sessions", "Active IPTU Payment Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "taxflow://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
