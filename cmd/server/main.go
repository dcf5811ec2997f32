package main

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ghdigest/server/internal/config"
	"ghdigest/server/internal/mcp"
	"ghdigest/server/internal/summary"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "ghdigest",
	Short: "MCP server that posts a daily GitHub activity summary to Slack",
	Long: `ghdigest exposes a single MCP tool, send_daily_github_summary, which
aggregates a user's GitHub activity for the current UTC day (pull requests,
issues, commits, updated branches) and posts the summary to a Slack channel.
It speaks newline-delimited JSON-RPC on stdin/stdout.`,
	SilenceUsage: true,
	RunE:         run,
}

func run(cmd *cobra.Command, args []string) error {
	// stdout is the protocol channel; everything we log goes to stderr.
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	if debug, _ := cmd.Flags().GetBool("debug"); !debug {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	handler := mcp.NewHandler(mcp.ServerInfo{Name: "ghdigest", Version: version})
	svc := summary.NewService(cfg)
	handler.Register(summary.ToolDefinition(), svc.ToolFunc())

	log.Info().Str("version", version).Msg("serving MCP on stdio")
	return mcp.Serve(cmd.Context(), os.Stdin, os.Stdout, handler)
}

func main() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
