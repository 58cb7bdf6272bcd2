// Package mcpserver exposes the memory pool and reminder engine as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/store"
)

// Deps holds dependencies for the MCP server.
type Deps struct {
	DB     *store.DB
	Engine *engine.Engine
	Scorer interface{ Submit() } // optional
}

// New creates an MCP server with every nudge tool and resource registered.
func New(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nudge",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("nudge: remembers tasks, notes, events and people, and decides when to remind about them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("add_memory",
			mcp.WithDescription("Store a task, note, event or person to be remembered and reminded about."),
			mcp.WithString("title", mcp.Description("Short title"), mcp.Required()),
			mcp.WithString("type", mcp.Description("task, note, event or person (default note)")),
			mcp.WithString("detail", mcp.Description("Optional free text")),
			mcp.WithString("due_date", mcp.Description("Optional due date, YYYY-MM-DD")),
			mcp.WithArray("tags", mcp.Description("Optional tags")),
		),
		addMemory(deps),
	)

	s.AddTool(
		mcp.NewTool("list_memories",
			mcp.WithDescription("List pending memories, most urgent first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		listMemories(deps),
	)

	s.AddTool(
		mcp.NewTool("complete_memory",
			mcp.WithDescription("Mark the pending memory whose title best matches the query as done."),
			mcp.WithString("query", mcp.Description("Words from the memory title"), mcp.Required()),
		),
		completeMemory(deps),
	)

	s.AddTool(
		mcp.NewTool("snooze_memory",
			mcp.WithDescription("Silence reminders for the best-matching pending memory for a few hours."),
			mcp.WithString("query", mcp.Description("Words from the memory title"), mcp.Required()),
		),
		snoozeMemory(deps),
	)

	s.AddTool(
		mcp.NewTool("trigger_reminders",
			mcp.WithDescription("Run one reminder decision now and deliver whatever it selects."),
		),
		triggerReminders(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"nudge://memories",
			"All memories",
			mcp.WithResourceDescription("Every stored memory as JSON, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		memoriesResource(deps),
	)

	return s
}

func addMemory(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return toolError("title is required"), nil
		}

		it := store.Item{
			ID:      store.NewID(),
			Type:    req.GetString("type", ""),
			Title:   title,
			Detail:  req.GetString("detail", ""),
			DueDate: req.GetString("due_date", ""),
			Tags:    req.GetStringSlice("tags", nil),
		}
		if err := deps.DB.Upsert(&it); err != nil {
			return toolError(fmt.Sprintf("failed to save: %v", err)), nil
		}
		if deps.Scorer != nil {
			deps.Scorer.Submit()
		}
		return toolText(fmt.Sprintf("Stored %s %q as %s", it.Type, it.Title, it.ID)), nil
	}
}

func listMemories(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}

		undone, err := deps.DB.GetUndone()
		if err != nil {
			return toolError(fmt.Sprintf("list failed: %v", err)), nil
		}
		if len(undone) > limit {
			undone = undone[:limit]
		}
		if undone == nil {
			undone = []store.Item{}
		}

		b, err := json.Marshal(undone)
		if err != nil {
			return toolError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

// match resolves a title query the same way WhatsApp replies are resolved.
func match(deps Deps, req mcp.CallToolRequest) (*store.Item, *mcp.CallToolResult) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, toolError("query is required")
	}
	undone, err := deps.DB.GetUndone()
	if err != nil {
		return nil, toolError(fmt.Sprintf("lookup failed: %v", err))
	}
	it := engine.FuzzyMatch(query, undone)
	if it == nil {
		return nil, toolError(fmt.Sprintf("no pending memory matches %q", query))
	}
	return it, nil
}

func completeMemory(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		it, failed := match(deps, req)
		if failed != nil {
			return failed, nil
		}
		if err := deps.DB.MarkDone(it.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return toolError("memory was deleted"), nil
			}
			return toolError(fmt.Sprintf("mark done failed: %v", err)), nil
		}
		return toolText(fmt.Sprintf("Marked as done: %s", it.Title)), nil
	}
}

func snoozeMemory(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		it, failed := match(deps, req)
		if failed != nil {
			return failed, nil
		}
		if err := deps.Engine.Snoozer.Snooze(ctx, *it); err != nil {
			return toolError(fmt.Sprintf("snooze failed: %v", err)), nil
		}
		return toolText(fmt.Sprintf("Snoozed %s for %d hours", it.Title, deps.Engine.Policy().SnoozeHours)), nil
	}
}

func triggerReminders(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := deps.Engine.RunReminders(ctx)
		if err != nil {
			return toolError(fmt.Sprintf("run %s failed: %v", res.RunID, err)), nil
		}
		b, err := json.Marshal(res)
		if err != nil {
			return toolError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func memoriesResource(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		items, err := deps.DB.GetAll()
		if err != nil {
			return nil, fmt.Errorf("failed to list memories: %w", err)
		}
		if items == nil {
			items = []store.Item{}
		}
		b, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal memories: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
