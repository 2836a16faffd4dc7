// Package mcp exposes inbox triage as MCP tools over stdio.
package mcp

import (
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"submission_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"submission_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"submission_set_status": {
		def:     setStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetStatus },
	},
	"submission_clear_inbox": {
		def:     clearInboxToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClearInbox },
	},
}

// AllToolNames returns every tool name in sorted order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
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

// NewServer creates an MCP server with the submission tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(st store.Store, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"autocare",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st)

	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		slog.Warn("unknown tool in disabled_tools", "tool", name)
	}
	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
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
func Run(st store.Store, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(st, cfg, version))
}
