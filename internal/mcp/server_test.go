package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-faster/errors"

	"ghdigest/server/internal/jsonrpc"
)

func testHandler() *Handler {
	h := NewHandler(ServerInfo{Name: "ghdigest", Version: "test"})
	h.Register(Tool{
		Name:        "echo",
		Description: "Echo the user argument back.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"user": {Type: "string"},
			},
			Required: []string{"user"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		user := args["user"].(string)
		if user == "boom" {
			return "", errors.New("backend unavailable")
		}
		return "hello " + user, nil
	})
	return h
}

func TestHandler_Initialize(t *testing.T) {
	h := testHandler()
	result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{Method: "initialize", ID: 1})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	init, ok := result.(*InitializeResult)
	if !ok {
		t.Fatalf("result type = %T", result)
	}
	if init.ProtocolVersion != ProtocolVersion {
		t.Errorf("protocol version = %q", init.ProtocolVersion)
	}
	if init.Capabilities.Tools == nil {
		t.Error("tools capability not advertised")
	}
}

func TestHandler_ToolsList(t *testing.T) {
	h := testHandler()
	result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{Method: "tools/list", ID: 2})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	list := result.(*ToolsListResult)
	if len(list.Tools) != 1 || list.Tools[0].Name != "echo" {
		t.Errorf("tools = %+v", list.Tools)
	}
}

func TestHandler_ToolCall(t *testing.T) {
	tests := []struct {
		name        string
		params      interface{}
		wantRPCCode int
		wantText    string
		wantIsError bool
	}{
		{
			name:     "success",
			params:   map[string]any{"name": "echo", "arguments": map[string]any{"user": "alice"}},
			wantText: "hello alice",
		},
		{
			name:        "tool failure becomes isError result",
			params:      map[string]any{"name": "echo", "arguments": map[string]any{"user": "boom"}},
			wantText:    "Error: backend unavailable",
			wantIsError: true,
		},
		{
			name:        "unknown tool",
			params:      map[string]any{"name": "missing", "arguments": map[string]any{}},
			wantRPCCode: InvalidParams,
		},
		{
			name:        "missing required argument",
			params:      map[string]any{"name": "echo", "arguments": map[string]any{}},
			wantRPCCode: InvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler()
			result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{Method: "tools/call", ID: 3, Params: tt.params})
			if tt.wantRPCCode != 0 {
				if rpcErr == nil {
					t.Fatal("expected rpc error")
				}
				if rpcErr.Code != tt.wantRPCCode {
					t.Errorf("code = %d, want %d", rpcErr.Code, tt.wantRPCCode)
				}
				return
			}
			if rpcErr != nil {
				t.Fatalf("unexpected error: %v", rpcErr)
			}
			res := result.(*ToolCallResult)
			if res.IsError != tt.wantIsError {
				t.Errorf("isError = %v, want %v", res.IsError, tt.wantIsError)
			}
			if len(res.Content) != 1 || res.Content[0].Text != tt.wantText {
				t.Errorf("content = %+v, want text %q", res.Content, tt.wantText)
			}
		})
	}
}

func TestHandler_MethodNotFound(t *testing.T) {
	h := testHandler()
	_, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{Method: "resources/list", ID: 4})
	if rpcErr == nil || rpcErr.Code != MethodNotFound {
		t.Errorf("rpcErr = %v, want method not found", rpcErr)
	}
}

func TestServe_Stdio(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json at all`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"user":"alice"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := Serve(context.Background(), strings.NewReader(in), &out, testHandler()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var responses []jsonrpc.Response
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp jsonrpc.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}

	// initialize response, parse error, tool call response; the
	// notification and blank line produce nothing.
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("initialize failed: %v", responses[0].Error)
	}
	if responses[1].Error == nil || responses[1].Error.Code != ParseError {
		t.Errorf("expected parse error, got %+v", responses[1])
	}
	if responses[2].Error != nil {
		t.Errorf("tool call failed: %v", responses[2].Error)
	}
}
