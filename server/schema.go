package server

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/petal-labs/chartmogul-mcp/tool"
)

// ToolDefinition renders an operation's identity and parameters as an MCP tool.
func ToolDefinition(op tool.WrappedOperation) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(op.Description())}
	for _, p := range op.Params() {
		opts = append(opts, paramOption(p))
	}

	hints := op.Annotations()
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(hints.ReadOnly),
		mcp.WithDestructiveHintAnnotation(hints.Destructive),
		mcp.WithIdempotentHintAnnotation(hints.Idempotent),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	return mcp.NewTool(op.Name(), opts...)
}

func paramOption(p tool.Param) mcp.ToolOption {
	props := []mcp.PropertyOption{}
	if p.Description != "" {
		props = append(props, mcp.Description(p.Description))
	}
	if p.Required {
		props = append(props, mcp.Required())
	}

	switch p.Type {
	case tool.ParamInteger, tool.ParamNumber:
		if n, ok := numericDefault(p.Default); ok {
			props = append(props, mcp.DefaultNumber(n))
		}
		return mcp.WithNumber(p.Name, props...)
	case tool.ParamBoolean:
		if b, ok := p.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(b))
		}
		return mcp.WithBoolean(p.Name, props...)
	case tool.ParamObject:
		return mcp.WithObject(p.Name, props...)
	case tool.ParamStringArray:
		props = append(props, mcp.Items(map[string]any{"type": "string"}))
		return mcp.WithArray(p.Name, props...)
	default:
		if s, ok := p.Default.(string); ok {
			props = append(props, mcp.DefaultString(s))
		}
		return mcp.WithString(p.Name, props...)
	}
}

func numericDefault(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
