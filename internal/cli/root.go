// Package cli implements the posctl command tree.
package cli

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/pos-orders/internal/domain/order"
	"github.com/xenking/pos-orders/internal/seed"
	"github.com/xenking/pos-orders/pkg/health"
)

// Backend is the set of store operations posctl drives.
type Backend interface {
	EnsureSchema(ctx context.Context) error
	Place(ctx context.Context, o order.NewOrder) (order.ID, error)
	List(ctx context.Context) ([]order.Summary, error)
	Get(ctx context.Context, id order.ID) (*order.Detail, error)
	Stats(ctx context.Context) (*order.Stats, error)
	Seed(ctx context.Context, fx *seed.Fixture) (*seed.Result, error)
	Doctor(ctx context.Context) health.Report
	Close()
}

// OpenFunc connects a Backend. Commands call it only once they run, so help
// and flag errors never touch the database.
type OpenFunc func(ctx context.Context) (Backend, error)

type root struct {
	open   OpenFunc
	output string
}

// NewRootCmd returns the posctl root command.
func NewRootCmd(open OpenFunc) *cobra.Command {
	r := &root{open: open}

	cmd := &cobra.Command{
		Use:           "posctl",
		Short:         "Manage point-of-sale orders",
		Long:          "posctl creates and inspects point-of-sale orders stored in PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parseFormat(r.output); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(zctx.With(ctx, zap.String("run_id", uuid.NewString())))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&r.output, "output", "o", string(formatTable), "Output format: table or json")

	cmd.AddCommand(newSchemaCmd(r))
	cmd.AddCommand(newOrderCmd(r))
	cmd.AddCommand(newStatsCmd(r))
	cmd.AddCommand(newSeedCmd(r))
	cmd.AddCommand(newDoctorCmd(r))
	return cmd
}

// run opens the backend, calls fn and closes the backend.
func (r *root) run(cmd *cobra.Command, fn func(ctx context.Context, b Backend, p *printer) error) error {
	f, err := parseFormat(r.output)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := r.open(ctx)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer b.Close()

	return fn(ctx, b, newPrinter(cmd.OutOrStdout(), f))
}

func newSchemaCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the orders relation if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				if err := b.EnsureSchema(ctx); err != nil {
					return err
				}
				return p.Status("Orders schema ready")
			})
		},
	}
}

func newStatsCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show order totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				st, err := b.Stats(ctx)
				if err != nil {
					return err
				}
				return p.Stats(st)
			})
		},
	}
}

func newSeedCmd(r *root) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create all tables and load a YAML fixture",
		Long:  "Create the users, customers, menu_items, orders and order_items tables and load a fixture file. Files ending in .gz are decompressed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := seed.Load(file)
			if err != nil {
				return err
			}
			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				res, err := b.Seed(ctx, fx)
				if err != nil {
					return err
				}
				return p.Seeded(res)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "db/seed/fixture.yaml", "Fixture file (.yaml or .yaml.gz)")

	return cmd
}

func newDoctorCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check database connectivity and schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				report := b.Doctor(ctx)
				if err := p.Report(report); err != nil {
					return err
				}
				if failures := report.Failures(); len(failures) > 0 {
					return errors.Errorf("%d of %d checks failed", len(failures), len(report))
				}
				return nil
			})
		},
	}
}
