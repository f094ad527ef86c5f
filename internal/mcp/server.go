package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/coursedesk/internal/config"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"history", "plan", "selection", "advisor"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
	// needsRemote tools are registered only when a remote backend is configured.
	needsRemote bool
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"history_list": {
		def:     historyListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryList },
	},
	"history_add": {
		def:     historyAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryAdd },
	},
	"history_remove": {
		def:     historyRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryRemove },
	},
	"history_clear": {
		def:     historyClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryClear },
	},
	"plan_show": {
		def:     planShowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanShow },
	},
	"plan_parse": {
		def:     planParseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanParse },
	},
	"plan_set": {
		def:     planSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanSet },
	},
	"plan_add_course": {
		def:     planAddCourseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanAddCourse },
	},
	"plan_remove_course": {
		def:     planRemoveCourseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanRemoveCourse },
	},
	"plan_clear": {
		def:     planClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanClear },
	},
	"plan_toggle": {
		def:     planToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanToggle },
	},
	"selection_toggle": {
		def:     selectionToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSelectionToggle },
	},
	"selection_list": {
		def:     selectionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSelectionList },
	},
	"selection_clear": {
		def:     selectionClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSelectionClear },
	},
	"advisor_ask": {
		def:         advisorAskToolDef,
		handler:     func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdvisorAsk },
		needsRemote: true,
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

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "plan_show" → "plan").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with coursedesk tools registered over sess.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes are
// excluded, and advisor tools are skipped when invoker is nil.
func NewServer(sess *session.Session, invoker remote.Invoker, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"coursedesk",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(sess, invoker, cfg)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		if entry.needsRemote && invoker == nil {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(sess *session.Session, invoker remote.Invoker, cfg *config.Config, version string) error {
	s := NewServer(sess, invoker, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
