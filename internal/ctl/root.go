// Package ctl implements checkpostctl, the operator command line for the
// checkpost server: schema migration, network provisioning, ad-hoc overdue
// scans and SMS payload inspection.
package ctl

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/config"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// RootOptions holds the flags shared by every subcommand.
type RootOptions struct {
	DSN     string
	Verbose bool
}

// openDB is a test seam for the database connection.
var openDB = repomanager.OpenDB

// NewRootCommand creates the checkpostctl command tree.
func NewRootCommand() *cobra.Command {
	defaults := &config.Config{}
	defaults.LoadDefaults()

	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "checkpostctl",
		Short: "Operate a checkpost server database",
		Long: `checkpostctl provisions segments, checkposts and rangers, applies
schema migrations and runs one-off overdue scans against the server's
PostgreSQL database. The sms subcommands work offline.`,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", defaults.DatabaseDSN, "PostgreSQL DSN of the checkpost server")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAddSegmentCommand(opts))
	cmd.AddCommand(NewAddCheckpostCommand(opts))
	cmd.AddCommand(NewAddRangerCommand(opts))
	cmd.AddCommand(NewRevokeRangerCommand(opts))
	cmd.AddCommand(NewScanOverdueCommand(opts))
	cmd.AddCommand(NewAlertsCommand(opts))
	cmd.AddCommand(NewClassifyCommand())
	cmd.AddCommand(NewSMSCommand())

	return cmd
}

func (o *RootOptions) logger(w io.Writer) logging.Logger {
	if !o.Verbose {
		return logging.Nop{}
	}
	return logging.NewText(w, slog.LevelDebug)
}

// withDB opens the configured database, hands it to fn and closes it.
func (o *RootOptions) withDB(ctx context.Context, fn func(db *sql.DB, rm repomanager.RepositoryManager) error) error {
	db, err := openDB(ctx, o.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, repomanager.NewPostgresRepositoryManager())
}
