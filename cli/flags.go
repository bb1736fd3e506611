// Package cli implements the chartmogul-mcp command tree.
package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/config"
)

// AddGlobalFlags registers the persistent flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	root.PersistentFlags().Bool("quiet", false, "Suppress all log output except errors")
	root.PersistentFlags().String("config", "", "Path to chartmogul-mcp.yaml (default: ./chartmogul-mcp.yaml, then ~/.chartmogul-mcp/config.yaml)")
	root.PersistentFlags().String("env-file", "", "Path to a dotenv file (default: ./.env when present)")
}

// NewCommands returns every subcommand in display order.
func NewCommands() []*cobra.Command {
	return []*cobra.Command{
		NewServeCmd(),
		NewCheckCmd(),
		NewToolsCmd(),
		NewProbeCmd(),
		NewHistoryCmd(),
	}
}

func loadConfig(cmd *cobra.Command, requireToken bool) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.Options{
		Path:              path,
		EnvFile:           envFile,
		AllowMissingToken: !requireToken,
	})
	if err != nil {
		return config.Config{}, exitError(exitConfig, "configuration error: %v", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to w (stderr) because
// stdout carries MCP frames in stdio mode.
func newLogger(cmd *cobra.Command, w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func versionOf(cmd *cobra.Command) string {
	if v := cmd.Root().Version; v != "" {
		return v
	}
	return "dev"
}
