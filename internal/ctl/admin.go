package ctl

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/server"
	"github.com/dmitrijs2005/checkpost/internal/server/config"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				if err := rm.RunMigrations(cmd.Context(), db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			})
		},
	}
}

type addSegmentOptions struct {
	name                     string
	distance, maxKmh, minKmh float64
}

func NewAddSegmentCommand(root *RootOptions) *cobra.Command {
	opts := &addSegmentOptions{}

	cmd := &cobra.Command{
		Use:   "add-segment",
		Short: "Create a road segment between two checkposts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &models.Segment{Name: opts.name, DistanceKm: opts.distance, MaxSpeedKmh: opts.maxKmh, MinSpeedKmh: opts.minKmh}
			if opts.name == "" {
				return fmt.Errorf("--name is required")
			}
			if err := s.Bounds().Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				created, err := rm.Segments(db).Create(cmd.Context(), s)
				if err != nil {
					return err
				}
				b := created.Bounds()
				fmt.Fprintf(cmd.OutOrStdout(), "Segment %d %q: %.1f km, travel %.1f to %.1f min\n",
					created.ID, created.Name, created.DistanceKm, b.MinTravelMinutes(), b.MaxTravelMinutes())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "segment name")
	cmd.Flags().Float64Var(&opts.distance, "distance", 0, "road distance in km")
	cmd.Flags().Float64Var(&opts.maxKmh, "max", 0, "speed limit in km/h")
	cmd.Flags().Float64Var(&opts.minKmh, "min", 0, "minimum average speed in km/h")
	return cmd
}

type addCheckpostOptions struct {
	code, name string
	segmentID  int64
}

func NewAddCheckpostCommand(root *RootOptions) *cobra.Command {
	opts := &addCheckpostOptions{}

	cmd := &cobra.Command{
		Use:   "add-checkpost",
		Short: "Create a checkpost on a segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.code == "" || opts.segmentID <= 0 {
				return fmt.Errorf("--code and --segment are required")
			}
			cmd.SilenceUsage = true

			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				if _, err := rm.Segments(db).Get(cmd.Context(), opts.segmentID); err != nil {
					return fmt.Errorf("segment %d: %w", opts.segmentID, err)
				}
				c, err := rm.Checkposts(db).Create(cmd.Context(), &models.Checkpost{Code: opts.code, Name: opts.name, SegmentID: opts.segmentID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checkpost %d %s on segment %d\n", c.ID, c.Code, c.SegmentID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.code, "code", "", "short code carried in SMS reports")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().Int64Var(&opts.segmentID, "segment", 0, "segment id")
	return cmd
}

type addRangerOptions struct {
	name, phone, pin string
	checkpostID      int64
}

func NewAddRangerCommand(root *RootOptions) *cobra.Command {
	opts := &addRangerOptions{}

	cmd := &cobra.Command{
		Use:   "add-ranger",
		Short: "Register a ranger at a checkpost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				svc := newServices(db, rm, root, cmd)
				r, err := svc.Rangers.Register(cmd.Context(), opts.name, opts.phone, opts.checkpostID, opts.pin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ranger %d %s (%s) at checkpost %d\n", r.ID, r.Name, r.Phone, r.CheckpostID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "ranger name")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "phone number SMS reports come from")
	cmd.Flags().StringVar(&opts.pin, "pin", "", "login PIN")
	cmd.Flags().Int64Var(&opts.checkpostID, "checkpost", 0, "checkpost id")
	return cmd
}

func NewRevokeRangerCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-ranger <ranger_id>",
		Short: "Sign a ranger out of every device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("ranger id must be a number: %q", args[0])
			}
			cmd.SilenceUsage = true
			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				n, err := newServices(db, rm, root, cmd).Rangers.RevokeSessions(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) revoked\n", n)
				return nil
			})
		},
	}
}

func NewScanOverdueCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan-overdue",
		Short: "Raise alerts for entries past their expected exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				n, err := newServices(db, rm, root, cmd).Alerts.ScanOverdue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d alert(s) raised\n", n)
				return nil
			})
		},
	}
}

func NewAlertsCommand(root *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List open overstay alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return root.withDB(cmd.Context(), func(db *sql.DB, rm repomanager.RepositoryManager) error {
				list, err := newServices(db, rm, root, cmd).Alerts.ListOpen(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(w, "No open alerts")
					return nil
				}
				for _, a := range list {
					fmt.Fprintf(w, "#%d entry %d, due %s\n", a.ID, a.EntryPassageID, a.DeadlineAt.UTC().Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of alerts")
	return cmd
}

// newServices wires the server services the way the server does, with
// metrics that are never exported.
func newServices(db *sql.DB, rm repomanager.RepositoryManager, root *RootOptions, cmd *cobra.Command) *server.Services {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = root.DSN
	return server.NewServices(db, rm, cfg, metrics.NewUnregistered(), root.logger(cmd.ErrOrStderr()))
}
