package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/catalog"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

// NewToolsCmd creates the "tools" subcommand, which lists the catalog without
// contacting ChartMogul.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "List the tools this server exposes, or show one tool's parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTools,
	}
	cmd.Flags().Bool("json", false, "Print tool definitions as JSON")
	return cmd
}

func runTools(cmd *cobra.Command, args []string) error {
	ops := catalog.Operations(nil)
	if len(args) == 1 {
		for _, op := range ops {
			if op.Name == args[0] {
				return printTool(cmd, op)
			}
		}
		return exitError(exitValidation, "tool %q is not in the catalog", args[0])
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		defs := make([]map[string]any, 0, len(ops))
		for _, op := range ops {
			defs = append(defs, toolJSON(op))
		}
		return writeIndented(cmd, defs)
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tPARAMS\tHINTS")
	for _, op := range ops {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", op.Name, paramSummary(op.Params), hintSummary(op.Annotations))
	}
	return writer.Flush()
}

func printTool(cmd *cobra.Command, op tool.Operation) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeIndented(cmd, toolJSON(op))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n  %s\n\n", op.Name, op.Description)
	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "PARAM\tTYPE\tREQUIRED\tDEFAULT\tDESCRIPTION")
	for _, p := range op.Params {
		def := "-"
		if p.Default != nil {
			def = fmt.Sprint(p.Default)
		}
		fmt.Fprintf(writer, "%s\t%s\t%t\t%s\t%s\n", p.Name, p.Type, p.Required, def, p.Description)
	}
	return writer.Flush()
}

func toolJSON(op tool.Operation) map[string]any {
	params := make([]map[string]any, 0, len(op.Params))
	for _, p := range op.Params {
		entry := map[string]any{"name": p.Name, "type": string(p.Type), "required": p.Required}
		if p.Description != "" {
			entry["description"] = p.Description
		}
		if p.Default != nil {
			entry["default"] = p.Default
		}
		params = append(params, entry)
	}
	return map[string]any{
		"name":        op.Name,
		"description": op.Description,
		"params":      params,
		"read_only":   op.Annotations.ReadOnly,
		"destructive": op.Annotations.Destructive,
	}
}

func paramSummary(params []tool.Param) string {
	if len(params) == 0 {
		return "-"
	}
	names := make([]string, 0, len(params))
	for _, p := range params {
		if p.Required {
			names = append(names, p.Name+"*")
		} else {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ",")
}

func hintSummary(a tool.Annotations) string {
	var hints []string
	if a.ReadOnly {
		hints = append(hints, "read-only")
	}
	if a.Destructive {
		hints = append(hints, "destructive")
	}
	if a.Idempotent && !a.ReadOnly {
		hints = append(hints, "idempotent")
	}
	if len(hints) == 0 {
		return "-"
	}
	return strings.Join(hints, ",")
}

func writeIndented(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	_, _ = cmd.OutOrStdout().Write(append(data, '\n'))
	return nil
}
