package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orderimport/internal/store"
)

// MigrateResult reports an applied schema.
type MigrateResult struct {
	Driver string `json:"driver" yaml:"driver"`
	Status string `json:"status" yaml:"status"`
}

func newMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		Long: `Create the customers, orders, order line item and import ledger tables
if they do not exist. Running it again is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts)
		},
	}
}

func runMigrate(cmd *cobra.Command, opts *RootOptions) error {
	cfg, logger, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false
	backend, err := store.Open(cmd.Context(), dbCfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer backend.Close()

	if err := backend.Migrate(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "migrate", err)
	}
	logger.Info("schema applied", "driver", dbCfg.Driver)

	result := MigrateResult{Driver: dbCfg.Driver, Status: "ok"}
	return opts.formatter(cmd).Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "schema up to date (%s)\n", result.Driver)
	})
}
