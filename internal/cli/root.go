// Package cli implements the ordersctl command line tool.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orderimport/internal/config"
	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/logging"
	"github.com/JonMunkholm/orderimport/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	getenv func(string) string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command. Configuration comes from the
// same environment variables as the server.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{getenv: os.Getenv})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ordersctl",
		Short: "Import fixed-width order files and query orders",
		Long: `ordersctl imports fixed-width order files into the configured database
and lists the stored orders grouped by customer.

The database is selected with DB_DRIVER (postgres, sqlite, memory) and
DATABASE_URL, exactly as for the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}

// session is what a command needs once configuration is loaded.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend store.Backend
	service *core.Service
}

func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFrom(o.getenv)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	level := cfg.Logging.Level
	if o.Verbose {
		level = "debug"
	}
	// Results go to stdout, so logs must not.
	logger := logging.New(cmd.ErrOrStderr(), level, cfg.Logging.Format)

	return cfg, logger, nil
}

// open loads configuration, connects to the backend and builds the service.
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, logger, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	svc := core.NewService(backend, core.ServiceConfig{
		ChunkSize:     cfg.Import.ChunkSize,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWaitTime:   cfg.Import.MaxWaitTime,
		ImportTimeout: cfg.Import.Timeout,
	}, logger, nil)

	return &session{cfg: cfg, logger: logger, backend: backend, service: svc}, nil
}

func (s *session) close() {
	if err := s.backend.Close(); err != nil {
		s.logger.Warn("close database", "error", err)
	}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
