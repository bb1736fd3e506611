package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/petal-labs/chartmogul-mcp/tool"
)

// DefaultName is the server identity announced to MCP hosts.
const DefaultName = "mcp-chartmogul"

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("server: duplicate tool name")

// Config configures a Server instance.
type Config struct {
	Name         string
	Version      string
	Instructions string
	CORSOrigin   string
	MaxBody      int64
	Logger       *slog.Logger

	// Upstream reports the scheduled upstream health status for /health.
	Upstream func() string
}

// Server binds wrapped operations to MCP tools.
type Server struct {
	mcp        *mcpserver.MCPServer
	name       string
	version    string
	corsOrigin string
	maxBody    int64
	logger     *slog.Logger
	upstream   func() string

	mu    sync.Mutex
	tools []string
	index map[string]tool.WrappedOperation
}

// New creates a Server with no tools registered.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = DefaultName
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = "dev"
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	opts := []mcpserver.ServerOption{
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	}
	if instructions := strings.TrimSpace(cfg.Instructions); instructions != "" {
		opts = append(opts, mcpserver.WithInstructions(instructions))
	}

	return &Server{
		mcp:        mcpserver.NewMCPServer(name, version, opts...),
		name:       name,
		version:    version,
		corsOrigin: corsOrigin,
		maxBody:    maxBody,
		logger:     logger,
		upstream:   cfg.Upstream,
		index:      make(map[string]tool.WrappedOperation),
	}
}

// Register adds each operation as a tool, in order. Registration stops at the
// first invalid or duplicate name; earlier tools stay registered.
func (s *Server) Register(ops ...tool.WrappedOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		name := op.Name()
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("server: tool name is required")
		}
		if _, exists := s.index[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		s.mcp.AddTool(ToolDefinition(op), s.handler(op))
		s.index[name] = op
		s.tools = append(s.tools, name)
		s.logger.Debug("registered tool", slog.String("tool", name))
	}
	return nil
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tools...)
}

// Lookup returns the operation registered under name.
func (s *Server) Lookup(name string) (tool.WrappedOperation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.index[name]
	return op, ok
}

// MCPServer exposes the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcp }

func (s *Server) Name() string    { return s.name }
func (s *Server) Version() string { return s.version }
