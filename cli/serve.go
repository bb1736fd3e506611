package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/server"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"
	defaultAddr    = "127.0.0.1:8080"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ChartMogul tools over MCP (stdio or streamable HTTP)",
		RunE:  runServe,
	}

	cmd.Flags().String("transport", "", "Transport: stdio | http (default: stdio)")
	cmd.Flags().String("addr", "", "HTTP listen address (default: 127.0.0.1:8080)")
	cmd.Flags().String("endpoint", server.DefaultEndpointPath, "HTTP path of the MCP endpoint")
	cmd.Flags().String("cors-origin", "", "Allowed CORS origin for HTTP transport")
	cmd.Flags().Int64("max-body", 0, "Max HTTP request body size in bytes (default: 1 MiB)")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Bool("no-journal", false, "Do not record invocations in the journal")
	cmd.Flags().Bool("no-health", false, "Disable scheduled upstream health checks")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	noHealth, _ := cmd.Flags().GetBool("no-health")
	corsOrigin, _ := cmd.Flags().GetString("cors-origin")
	maxBody, _ := cmd.Flags().GetInt64("max-body")

	a, err := newApp(cmd, appOptions{
		journal:    !noJournal,
		health:     !noHealth,
		corsOrigin: corsOrigin,
		maxBody:    maxBody,
	})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	transport := resolveTransport(cmd, a.cfg.Server.Transport)
	if transport != transportStdio && transport != transportHTTP {
		return exitError(exitValidation, "unknown transport %q (want stdio or http)", transport)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return exitError(exitRuntime, "starting health scheduler: %v", err)
	}

	if transport == transportStdio {
		a.logger.Info("serving MCP over stdio", "tools", len(a.server.Tools()))
		if err := a.server.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
			return exitError(exitRuntime, "stdio server error: %v", err)
		}
		return nil
	}
	return serveHTTP(ctx, cmd, a)
}

func resolveTransport(cmd *cobra.Command, configured string) string {
	transport, _ := cmd.Flags().GetString("transport")
	if strings.TrimSpace(transport) == "" {
		transport = configured
	}
	transport = strings.ToLower(strings.TrimSpace(transport))
	if transport == "" {
		return transportStdio
	}
	return transport
}

func serveHTTP(ctx context.Context, cmd *cobra.Command, a *app) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if addr == "" {
		addr = defaultAddr
	}
	endpoint, _ := cmd.Flags().GetString("endpoint")
	if !cmd.Flags().Changed("endpoint") && a.cfg.Server.EndpointPath != "" {
		endpoint = a.cfg.Server.EndpointPath
	}
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      a.server.Handler(endpoint),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "chartmogul-mcp listening on http://%s%s\n", addr, endpoint)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.ErrOrStderr(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}
