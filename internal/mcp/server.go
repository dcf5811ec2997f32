package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"ghdigest/server/internal/jsonrpc"
)

// RequestProcessor processes JSON-RPC requests.
// Implemented by the MCP handler.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error)
}

// ToolFunc executes a registered tool and returns its text result.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Handler routes MCP requests to registered tools.
type Handler struct {
	info  ServerInfo
	tools []Tool
	funcs map[string]ToolFunc
}

func NewHandler(info ServerInfo) *Handler {
	return &Handler{
		info:  info,
		funcs: make(map[string]ToolFunc),
	}
}

// Register adds a tool definition and its implementation.
func (h *Handler) Register(tool Tool, fn ToolFunc) {
	h.tools = append(h.tools, tool)
	h.funcs[tool.Name] = fn
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
// Called by the stdio transport loop.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(), nil
	case "initialized", "notifications/initialized":
		return nil, nil
	case "tools/list":
		return &ToolsListResult{Tools: h.tools}, nil
	case "tools/call":
		return h.handleToolCall(ctx, req)
	case "ping":
		return struct{}{}, nil
	default:
		return nil, &jsonrpc.Error{Code: MethodNotFound, Message: "Method not found"}
	}
}

func (h *Handler) handleInitialize() *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: h.info,
	}
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*ToolCallResult, *jsonrpc.Error) {
	paramsBytes, err := json.Marshal(req.Params)
	if err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params"}
	}

	var params ToolCallParams
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure"}
	}

	fn, ok := h.funcs[params.Name]
	if !ok {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
	}

	tool, _ := findTool(h.tools, params.Name)
	args, err := ValidateParams(tool.InputSchema, params.Arguments)
	if err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: err.Error()}
	}

	text, err := fn(ctx, args)
	if err != nil {
		// Tool failures are reported in-band, not as protocol errors.
		log.Error().Err(err).Str("tool", params.Name).Msg("tool execution failed")
		return ErrorResult(err.Error()), nil
	}
	return TextResult(text), nil
}

// findTool looks up a tool by name from a tool list.
func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Serve runs the newline-delimited JSON-RPC loop over r/w until r is
// exhausted or ctx is done. Responses are only written for requests that
// carry an ID; notifications are processed silently.
func Serve(ctx context.Context, r io.Reader, w io.Writer, processor RequestProcessor) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonrpc.Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp := jsonrpc.Response{
				JSONRPC: "2.0",
				Error:   &jsonrpc.Error{Code: ParseError, Message: "Parse error"},
			}
			if err := enc.Encode(resp); err != nil {
				return err
			}
			continue
		}

		log.Debug().Str("method", req.Method).Interface("id", req.ID).Msg("received request")

		result, rpcErr := processor.ProcessRequest(ctx, &req)
		if req.ID == nil {
			continue
		}

		resp := jsonrpc.Response{JSONRPC: "2.0", ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
