package mcpclient

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/petal-labs/chartmogul-mcp/server"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

func TestProbeAgainstHTTPServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	srv := server.New(server.Config{Version: "probe-test", Logger: logger})
	account := tool.NewOperation("retrieve_account", "Retrieve account information from the ChartMogul API.", nil,
		func(tool.Args) tool.Task[map[string]any] {
			return tool.Resolved(map[string]any{"id": "acc_1"})
		})
	if err := srv.Register(tool.Adapt(account, tool.WithLogger(logger))); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	httpServer := httptest.NewServer(srv.Handler(server.DefaultEndpointPath))
	defer httpServer.Close()

	transport, err := NewHTTPTransport(HTTPConfig{Endpoint: httpServer.URL + server.DefaultEndpointPath})
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	client := NewClient(transport, Options{})
	defer client.Close(context.Background())

	report, err := Probe(context.Background(), client, &ToolsCallParams{Name: "retrieve_account"}, []string{"retrieve_account", "ltv_metrics"})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if report.Server.ServerInfo.Name != server.DefaultName {
		t.Fatalf("server name = %q, want %q", report.Server.ServerInfo.Name, server.DefaultName)
	}
	if len(report.Tools) != 1 || report.Tools[0].Name != "retrieve_account" {
		t.Fatalf("tools = %+v, want retrieve_account", report.Tools)
	}
	if len(report.MissingFor) != 1 || report.MissingFor[0] != "ltv_metrics" {
		t.Fatalf("MissingFor = %v, want [ltv_metrics]", report.MissingFor)
	}
	if report.Call == nil || report.Call.IsError || report.Call.Text() != `{"id":"acc_1"}` {
		t.Fatalf("call = %+v, want {\"id\":\"acc_1\"}", report.Call)
	}
}

func TestProbeUnknownTool(t *testing.T) {
	transport := &mockTransport{
		handler: func(req Message) []Message {
			switch req.Method {
			case "initialize":
				return []Message{reply(t, req, InitializeResult{ServerInfo: ServerInfo{Name: "x"}})}
			default:
				return []Message{reply(t, req, ToolsListResult{})}
			}
		},
	}
	_, err := Probe(context.Background(), NewClient(transport, Options{}), &ToolsCallParams{Name: "nope"}, nil)
	if err == nil {
		t.Fatal("Probe() error = nil, want unknown tool error")
	}
}
