package mcpclient

import (
	"context"
	"fmt"
	"time"
)

// ProbeReport summarizes one probe run against a server.
type ProbeReport struct {
	Server     InitializeResult
	Tools      []Tool
	Call       *ToolsCallResult
	InitTime   time.Duration
	ListTime   time.Duration
	CallTime   time.Duration
	MissingFor []string
}

// Probe initializes the session, lists tools, and optionally calls one. When
// expect is non-empty, names absent from the tool list are reported in
// MissingFor.
func Probe(ctx context.Context, client *Client, call *ToolsCallParams, expect []string) (ProbeReport, error) {
	var report ProbeReport

	start := time.Now()
	server, err := client.Initialize(ctx)
	if err != nil {
		return report, err
	}
	report.Server = server
	report.InitTime = time.Since(start)

	start = time.Now()
	tools, err := client.ListTools(ctx)
	if err != nil {
		return report, err
	}
	report.Tools = tools
	report.ListTime = time.Since(start)

	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}
	for _, name := range expect {
		if !known[name] {
			report.MissingFor = append(report.MissingFor, name)
		}
	}

	if call == nil {
		return report, nil
	}
	if !known[call.Name] {
		return report, fmt.Errorf("mcpclient: server does not expose tool %q", call.Name)
	}
	start = time.Now()
	result, err := client.CallTool(ctx, *call)
	if err != nil {
		return report, err
	}
	report.Call = &result
	report.CallTime = time.Since(start)
	return report, nil
}
