package summary

import (
	"testing"

	"ghdigest/server/internal/mcp"
)

func TestPayload(t *testing.T) {
	tests := []struct {
		name string
		res  *mcp.ToolCallResult
		want string // "" means nil payload
	}{
		{
			name: "nil result",
			res:  nil,
		},
		{
			name: "error-flagged result",
			res:  &mcp.ToolCallResult{IsError: true, Content: []mcp.ContentBlock{{Type: "text", Text: `{"ok":true}`}}},
		},
		{
			name: "no content",
			res:  &mcp.ToolCallResult{},
		},
		{
			name: "no text block",
			res:  &mcp.ToolCallResult{Content: []mcp.ContentBlock{{Type: "image", Text: ""}}},
		},
		{
			name: "empty text",
			res:  &mcp.ToolCallResult{Content: []mcp.ContentBlock{{Type: "text", Text: ""}}},
		},
		{
			name: "tool-reported error text",
			res:  &mcp.ToolCallResult{Content: []mcp.ContentBlock{{Type: "text", Text: "Error: repository not found"}}},
		},
		{
			name: "unparsable text",
			res:  &mcp.ToolCallResult{Content: []mcp.ContentBlock{{Type: "text", Text: "{not json"}}},
		},
		{
			name: "valid payload",
			res:  &mcp.ToolCallResult{Content: []mcp.ContentBlock{{Type: "text", Text: `{"items":[]}`}}},
			want: `{"items":[]}`,
		},
		{
			name: "first text block wins",
			res: &mcp.ToolCallResult{Content: []mcp.ContentBlock{
				{Type: "image", Text: "ignored"},
				{Type: "text", Text: `[1,2,3]`},
				{Type: "text", Text: `"second"`},
			}},
			want: `[1,2,3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payload(tt.res)
			if tt.want == "" {
				if got != nil {
					t.Errorf("payload() = %q, want nil", got)
				}
				return
			}
			if string(got) != tt.want {
				t.Errorf("payload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeInto(t *testing.T) {
	res := &mcp.ToolCallResult{Content: []mcp.ContentBlock{{Type: "text", Text: `{"items":[{"name":"proj"}]}`}}}
	var out struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	if !decodeInto(res, &out) {
		t.Fatal("decodeInto() = false, want true")
	}
	if len(out.Items) != 1 || out.Items[0].Name != "proj" {
		t.Errorf("decoded %+v", out)
	}

	// Shape mismatches degrade to "no data", same as the other failure paths.
	var wrong []string
	if decodeInto(res, &wrong) {
		t.Error("decodeInto() = true for mismatched shape")
	}
}
