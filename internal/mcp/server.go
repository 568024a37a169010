// Package mcp exposes Engram operations as MCP tools over stdio, so agent
// clients can record events and query captured context directly.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/engramdev/engram/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"event_ingest": {
		def:     eventIngestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIngest },
	},
	"cluster_run": {
		def:     clusterRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCluster },
	},
	"context_search": {
		def:     contextSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"session_recent": {
		def:     sessionRecentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionRecent },
	},
	"decision_record": {
		def:     decisionRecordToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDecisionRecord },
	},
	"decision_list": {
		def:     decisionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDecisionList },
	},
	"decision_delete": {
		def:     decisionDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDecisionDelete },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with Engram tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"engram",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	for _, name := range env.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s := NewServer(env, version)
	return server.ServeStdio(s)
}
