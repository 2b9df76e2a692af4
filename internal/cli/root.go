// Package cli defines the eventify command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventify/internal/config"
)

var version = "dev"

// NewRootCmd builds the eventify command with its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventify",
		Short: "Campus event registration service",
		Long: `Eventify serves the event registration API: admins publish events,
students register and unregister, and attendees download certificates.

Configuration is read from the environment (EVENTIFY_*, DB_*, PORT).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// newLogger builds the process logger from cfg. Config validation has
// already rejected unknown levels and formats.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", "eventify"))
}

func stderrLogger() *slog.Logger {
	return newLogger(config.LogConfig{Level: "info", Format: "text"}, os.Stderr)
}
