package summary

import "ghdigest/server/internal/mcp"

// ToolDefinition describes the single callable this server exposes.
func ToolDefinition() mcp.Tool {
	return mcp.Tool{
		Name:        "send_daily_github_summary",
		Description: "Generate and send a daily GitHub activity summary for the specified user to Slack.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"user": {Type: "string", Description: "GitHub username whose activity should be summarized"},
			},
			Required: []string{"user"},
		},
	}
}
