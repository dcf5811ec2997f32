package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sync"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"ghdigest/server/internal/jsonrpc"
)

// ServerSpec describes how to launch a backend MCP server process.
type ServerSpec struct {
	Command string
	Args    []string
	Env     map[string]string // appended to the current environment
}

// Client is an MCP client speaking newline-delimited JSON-RPC over the
// stdin/stdout of a spawned backend process. Round-trips are serialised:
// the single connection is never used by two calls concurrently.
type Client struct {
	cmd    *exec.Cmd
	stdin  *json.Encoder
	in     *bufio.Scanner
	closer func() error

	mu     sync.Mutex
	nextID int64

	toolCalls metric.Int64Counter
}

// clientResponse is the client-side wire shape. Result is kept raw so each
// call site can decode into its own type.
type clientResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc.Error  `json:"error,omitempty"`
}

// Dial starts the backend process and performs the initialize handshake.
// The returned client must be closed to reap the process.
func Dial(ctx context.Context, spec ServerSpec) (*Client, error) {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", spec.Command)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	toolCalls, _ := otel.Meter("ghdigest/server/internal/mcp").Int64Counter(
		"mcp.client.tool_calls",
		metric.WithDescription("Tool calls issued to backend MCP servers"),
	)

	c := &Client{
		cmd:       cmd,
		stdin:     json.NewEncoder(stdin),
		in:        scanner,
		closer:    stdin.Close,
		toolCalls: toolCalls,
	}

	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      ClientInfo{Name: "ghdigest", Version: "0.1.0"},
	}
	var res InitializeResult
	if err := c.call(ctx, "initialize", params, &res); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "initialize")
	}
	if err := c.notify("notifications/initialized"); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "initialized notification")
	}
	return c, nil
}

// CallTool invokes a tool on the backend. A JSON-RPC error response comes
// back as a Go error carrying the backend's message; tool-level failures
// arrive inside the result and are the decoder's business.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	c.toolCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", name)))

	var res ToolCallResult
	if err := c.call(ctx, "tools/call", ToolCallParams{Name: name, Arguments: args}, &res); err != nil {
		return nil, errors.Wrapf(err, "call tool %s", name)
	}
	return &res, nil
}

// Close shuts the backend's stdin and waits for the process to exit.
func (c *Client) Close() error {
	if err := c.closer(); err != nil {
		c.cmd.Process.Kill()
		c.cmd.Wait()
		return err
	}
	return c.cmd.Wait()
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	c.nextID++
	id := c.nextID
	req := jsonrpc.Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.stdin.Encode(req); err != nil {
		return errors.Wrap(err, "write request")
	}

	for c.in.Scan() {
		line := c.in.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp clientResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // not a frame we understand, keep scanning
		}
		// Server-initiated requests and notifications are not ours to answer.
		if resp.Method != "" || !matchID(resp.ID, id) {
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && resp.Result != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return errors.Wrap(err, "decode result")
			}
		}
		return nil
	}
	if err := c.in.Err(); err != nil {
		return errors.Wrap(err, "read response")
	}
	return errors.New("connection closed before response")
}

func (c *Client) notify(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := jsonrpc.Request{JSONRPC: "2.0", Method: method}
	if err := c.stdin.Encode(req); err != nil {
		return errors.Wrap(err, "write notification")
	}
	return nil
}

// matchID compares a decoded wire ID against the int64 we sent.
// JSON numbers decode as float64.
func matchID(got interface{}, want int64) bool {
	switch v := got.(type) {
	case float64:
		return int64(v) == want
	case int64:
		return v == want
	default:
		return false
	}
}
