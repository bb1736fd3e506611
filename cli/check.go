package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/chartmogul"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

// NewCheckCmd creates the "check" subcommand.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and ChartMogul credentials",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	cmd.Flags().Duration("timeout", 15*time.Second, "Overall timeout for the check")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	return checkWith(cmd)
}

func checkWith(cmd *cobra.Command, clientOpts ...chartmogul.Option) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return exitError(exitConfig, "configuration error: %v", err)
	}
	client, err := chartmogul.NewClient(clientCfg, clientOpts...)
	if err != nil {
		return exitError(exitConfig, "configuration error: %v", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return exitError(upstreamExitCode(err), "ping failed (%s): %v", tool.ErrorType(err), err)
	}
	account, err := client.RetrieveAccount(ctx)
	if err != nil {
		return exitError(upstreamExitCode(err), "retrieving account failed (%s): %v", tool.ErrorType(err), err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		payload := map[string]any{
			"ok":       true,
			"base_url": clientCfg.BaseURL(),
			"config":   cfg.Path,
			"account":  tool.Serialize(account),
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "encoding result: %v", err)
		}
		_, _ = out.Write(append(data, '\n'))
		return nil
	}

	fmt.Fprintf(out, "API:      %s\n", clientCfg.BaseURL())
	if cfg.Path != "" {
		fmt.Fprintf(out, "Config:   %s\n", cfg.Path)
	}
	fmt.Fprintf(out, "Account:  %s (%s)\n", account.Name, account.ID)
	if account.Currency != "" {
		fmt.Fprintf(out, "Currency: %s\n", account.Currency)
	}
	fmt.Fprintln(out, "OK")
	return nil
}
