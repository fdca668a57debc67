package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"chatwarden/internal/biz/repo"
)

// WardenMCPServer exposes read-only moderation ledger tools over MCP so an
// operator's agent can audit punishments and cooldown state.
type WardenMCPServer struct {
	server   *mcp.Server
	ledger   repo.LedgerRepo
	cooldown time.Duration
}

// NewServer creates a new warden MCP server backed by the ledger.
func NewServer(ledger repo.LedgerRepo, cooldown time.Duration) *WardenMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "warden-tools",
		Version: "v1.0.0",
	}, nil)

	s := &WardenMCPServer{
		server:   server,
		ledger:   ledger,
		cooldown: cooldown,
	}
	s.registerTools()
	return s
}

func (s *WardenMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "warden_recent_violations",
		Description: "List the most recent punishments recorded in the moderation ledger, newest first.",
	}, s.handleRecentViolations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "warden_cooldown_status",
		Description: "Check whether a user in a group is currently inside the punishment cooldown window.",
	}, s.handleCooldownStatus)
}

// Run serves MCP over stdio until the context is canceled.
func (s *WardenMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ViolationEntry is one ledger row in tool output.
type ViolationEntry struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Count    int    `json:"count"`
	Reason   string `json:"reason"`
	LastTime string `json:"last_time"`
}

// RecentViolationsInput is the input for warden_recent_violations.
type RecentViolationsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Maximum number of entries to return (default 20)"`
}

// RecentViolationsOutput is the output for warden_recent_violations.
type RecentViolationsOutput struct {
	Violations []ViolationEntry `json:"violations"`
	Error      string           `json:"error,omitempty"`
}

func (s *WardenMCPServer) handleRecentViolations(ctx context.Context, req *mcp.CallToolRequest, input RecentViolationsInput) (*mcp.CallToolResult, RecentViolationsOutput, error) {
	records, err := s.ledger.Recent(ctx, input.Limit)
	if err != nil {
		return nil, RecentViolationsOutput{Error: err.Error()}, nil
	}

	entries := make([]ViolationEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, ViolationEntry{
			GroupID:  rec.GroupID,
			UserID:   rec.UserID,
			Count:    rec.Count,
			Reason:   rec.Reason,
			LastTime: rec.LastTime.Format(time.RFC3339),
		})
	}
	return nil, RecentViolationsOutput{Violations: entries}, nil
}

// CooldownStatusInput is the input for warden_cooldown_status.
type CooldownStatusInput struct {
	GroupID string `json:"group_id" jsonschema:"description=The group to check"`
	UserID  string `json:"user_id" jsonschema:"description=The user to check"`
}

// CooldownStatusOutput is the output for warden_cooldown_status.
type CooldownStatusOutput struct {
	Found      bool   `json:"found"`
	InCooldown bool   `json:"in_cooldown"`
	Count      int    `json:"count,omitempty"`
	LastTime   string `json:"last_time,omitempty"`
	Remaining  string `json:"remaining,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *WardenMCPServer) handleCooldownStatus(ctx context.Context, req *mcp.CallToolRequest, input CooldownStatusInput) (*mcp.CallToolResult, CooldownStatusOutput, error) {
	if input.GroupID == "" || input.UserID == "" {
		return nil, CooldownStatusOutput{Error: "group_id and user_id are required"}, nil
	}

	rec, err := s.ledger.Get(ctx, input.GroupID, input.UserID)
	if err != nil {
		return nil, CooldownStatusOutput{Error: err.Error()}, nil
	}
	if rec == nil {
		return nil, CooldownStatusOutput{Found: false}, nil
	}

	elapsed := time.Since(rec.LastTime)
	out := CooldownStatusOutput{
		Found:    true,
		Count:    rec.Count,
		LastTime: rec.LastTime.Format(time.RFC3339),
	}
	if elapsed < s.cooldown {
		out.InCooldown = true
		out.Remaining = fmt.Sprintf("%v", (s.cooldown - elapsed).Round(time.Second))
	}
	return nil, out, nil
}
