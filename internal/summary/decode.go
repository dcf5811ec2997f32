package summary

import (
	"encoding/json"
	"strings"

	"github.com/go-faster/jx"
	"github.com/rs/zerolog/log"

	"ghdigest/server/internal/mcp"
)

// payload extracts the JSON payload from a tool-call result. Every failure
// path degrades to nil so callers read a bad query as "no data", never as
// an abort.
func payload(res *mcp.ToolCallResult) []byte {
	if res == nil || res.IsError {
		log.Warn().Msg("tool call returned an error result")
		return nil
	}

	var text string
	for _, block := range res.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		log.Warn().Msg("no text content in tool response")
		return nil
	}
	if strings.HasPrefix(text, "Error:") {
		log.Warn().Str("text", text).Msg("tool reported an error")
		return nil
	}

	data := []byte(text)
	if !jx.Valid(data) {
		log.Warn().Msg("failed to parse JSON from tool response")
		return nil
	}
	return data
}

// decodeInto parses a tool result payload into out. False means the query
// produced no usable data for this invocation.
func decodeInto(res *mcp.ToolCallResult, out any) bool {
	data := payload(res)
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Msg("tool response payload has unexpected shape")
		return false
	}
	return true
}
