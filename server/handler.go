package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/petal-labs/chartmogul-mcp/tool"
)

// sentinelText is the body of a failed call: the "no result" value with no
// error detail.
const sentinelText = "null"

func (s *Server) handler(op tool.WrappedOperation) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		value, ok := op.Call(ctx, req.GetArguments())
		if !ok {
			result := mcp.NewToolResultText(sentinelText)
			result.IsError = true
			return result, nil
		}
		return s.encodeResult(op.Name(), value), nil
	}
}

func (s *Server) encodeResult(name string, value any) *mcp.CallToolResult {
	encoded, err := json.Marshal(value)
	if err != nil {
		// Serialize output is plain data, so this only fires on values such as NaN.
		s.logger.Warn("encoding tool result",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		encoded, _ = json.Marshal(fmt.Sprint(value))
	}
	return mcp.NewToolResultText(string(encoded))
}
