package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/catalog"
	"github.com/petal-labs/chartmogul-mcp/mcpclient"
)

// NewProbeCmd creates the "probe" subcommand.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect to a running server as an MCP client and verify its tools",
		Long: "Probe initializes an MCP session, lists tools and optionally calls one. " +
			"Without --url it spawns this binary with \"serve --transport stdio\".",
		Args: cobra.NoArgs,
		RunE: runProbe,
	}
	cmd.Flags().String("url", "", "Streamable HTTP endpoint, e.g. http://127.0.0.1:8080/mcp")
	cmd.Flags().String("command", "", "Server command to spawn over stdio (default: this binary)")
	cmd.Flags().StringArray("arg", nil, "Argument for --command (repeatable)")
	cmd.Flags().StringArray("header", nil, "HTTP header KEY=VALUE (repeatable)")
	cmd.Flags().String("call", "", "Tool to call after listing")
	cmd.Flags().String("args", "", "JSON object of arguments for --call")
	cmd.Flags().Duration("timeout", 30*time.Second, "Overall probe timeout")
	return cmd
}

func runProbe(cmd *cobra.Command, _ []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	call, err := probeCall(cmd)
	if err != nil {
		return err
	}

	transport, err := probeTransport(ctx, cmd)
	if err != nil {
		return err
	}
	client := mcpclient.NewClient(transport, mcpclient.Options{
		ClientInfo: mcpclient.ClientInfo{Name: "chartmogul-mcp-probe", Version: versionOf(cmd)},
	})
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = client.Close(closeCtx)
	}()

	expected := make([]string, 0, 20)
	for _, op := range catalog.Operations(nil) {
		expected = append(expected, op.Name)
	}
	report, err := mcpclient.Probe(ctx, client, call, expected)
	if err != nil {
		return exitError(exitRuntime, "probe failed: %v", err)
	}
	return printProbeReport(cmd, report)
}

func probeCall(cmd *cobra.Command) (*mcpclient.ToolsCallParams, error) {
	name, _ := cmd.Flags().GetString("call")
	rawArgs, _ := cmd.Flags().GetString("args")
	name = strings.TrimSpace(name)
	if name == "" {
		if strings.TrimSpace(rawArgs) != "" {
			return nil, exitError(exitValidation, "--args requires --call")
		}
		return nil, nil
	}
	params := &mcpclient.ToolsCallParams{Name: name}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &params.Arguments); err != nil {
			return nil, exitError(exitValidation, "--args must be a JSON object: %v", err)
		}
	}
	return params, nil
}

func probeTransport(ctx context.Context, cmd *cobra.Command) (mcpclient.Transport, error) {
	url, _ := cmd.Flags().GetString("url")
	if strings.TrimSpace(url) != "" {
		headerValues, _ := cmd.Flags().GetStringArray("header")
		headers, err := parseKeyValues(headerValues)
		if err != nil {
			return nil, exitError(exitValidation, "invalid --header: %v", err)
		}
		transport, err := mcpclient.NewHTTPTransport(mcpclient.HTTPConfig{Endpoint: url, Headers: headers})
		if err != nil {
			return nil, exitError(exitValidation, "%v", err)
		}
		return transport, nil
	}

	command, _ := cmd.Flags().GetString("command")
	args, _ := cmd.Flags().GetStringArray("arg")
	if strings.TrimSpace(command) == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, exitError(exitRuntime, "resolving executable: %v", err)
		}
		command = self
		args = []string{"serve", "--transport", "stdio", "--no-journal", "--no-health"}
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			args = append(args, "--config", path)
		}
		if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
			args = append(args, "--env-file", envFile)
		}
	}
	transport, err := mcpclient.NewStdioTransport(ctx, mcpclient.StdioConfig{
		Command: command,
		Args:    args,
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, exitError(exitRuntime, "starting server: %v", err)
	}
	return transport, nil
}

func printProbeReport(cmd *cobra.Command, report mcpclient.ProbeReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server:  %s %s (protocol %s)\n", report.Server.ServerInfo.Name, report.Server.ServerInfo.Version, report.Server.ProtocolVersion)
	fmt.Fprintf(out, "Timing:  initialize %s, tools/list %s\n", report.InitTime.Round(time.Millisecond), report.ListTime.Round(time.Millisecond))

	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "TOOL\tREQUIRED")
	for _, t := range report.Tools {
		required := strings.Join(t.Required(), ",")
		if required == "" {
			required = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\n", t.Name, required)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if report.Call != nil {
		status := "ok"
		if report.Call.IsError {
			status = "failed"
		}
		fmt.Fprintf(out, "Call:    %s in %s\n%s\n", status, report.CallTime.Round(time.Millisecond), report.Call.Text())
	}
	if len(report.MissingFor) > 0 {
		return exitError(exitValidation, "server is missing %d tool(s): %s", len(report.MissingFor), strings.Join(report.MissingFor, ", "))
	}
	if report.Call != nil && report.Call.IsError {
		return exitError(exitUpstream, "tool call returned an error result")
	}
	return nil
}

func parseKeyValues(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", raw)
		}
		out[key] = value
	}
	return out, nil
}
