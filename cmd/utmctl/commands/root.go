package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/spf13/cobra"

	"utmlens/internal"
	"utmlens/internal/config"
	"utmlens/internal/settings"
	"utmlens/internal/store"
)

const defaultShutdownTimeout = 30 * time.Second

var (
	// Version is set at build time via ldflags.
	Version = "dev"

	verbose bool
	cfg     *config.Config
	app     *internal.Application
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "utmctl",
	Short:         "utmctl manages a utmlens database",
	Long:          `Admin tool for utmlens: run migrations, seed rules and demo data, try normalization rules against raw parameters and inspect attribution and channel metrics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.GetConfig()
		if verbose {
			cfg.LogLevel = config.LogLevelDebug
		}

		logger = cartridge.NewLogger(cfg, nil)

		var err error
		app, err = internal.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return app.Shutdown(ctx)
	},
}

// Execute runs the command line against ctx, which is cancelled on
// SIGINT and SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(migrateCmd, seedCmd, normalizeCmd, attributeCmd, reportCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the utmctl version",
	// no database needed
	PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "utmctl", Version)
	},
}

func openStore() *store.Store {
	return store.New(app.DBManager.GetConnection(), logger)
}

// attributionDefaults reads the stored defaults, falling back to the
// configured ones.
func attributionDefaults() settings.AttributionDefaults {
	fallback := settings.DefaultsFromConfig(cfg)
	d, err := settings.GetAttributionDefaults(app.DBManager.GetConnection(), fallback)
	if err != nil {
		logger.Warn("Failed to load attribution defaults", slog.Any("error", err))
		return fallback
	}
	return d
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
