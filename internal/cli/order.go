package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/xenking/pos-orders/internal/domain/order"
)

func newOrderCmd(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Create and inspect orders",
	}
	cmd.AddCommand(newOrderCreateCmd(r))
	cmd.AddCommand(newOrderListCmd(r))
	cmd.AddCommand(newOrderGetCmd(r))
	return cmd
}

func newOrderCreateCmd(r *root) *cobra.Command {
	var (
		userID, customerID   int64
		at                   string
		total, subtotal, tax string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an order header",
		Long:  "Create an order for a user and customer. Line items are recorded separately by the checkout flow.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := order.NewOrder{
				UserID:     userID,
				CustomerID: customerID,
				Timestamp:  time.Now().UTC(),
			}
			if at != "" {
				ts, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return errors.Wrap(err, "parse --at")
				}
				o.Timestamp = ts
			}

			var err error
			if o.Amounts.Total, err = parseAmount("total", total); err != nil {
				return err
			}
			if o.Amounts.Subtotal, err = parseAmount("subtotal", subtotal); err != nil {
				return err
			}
			if o.Amounts.Tax, err = parseAmount("tax", tax); err != nil {
				return err
			}

			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				id, err := b.Place(ctx, o)
				if err != nil {
					return err
				}
				return p.Created(id)
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Cashier user id")
	cmd.Flags().Int64Var(&customerID, "customer", 0, "Customer id")
	cmd.Flags().StringVar(&at, "at", "", "Order time in RFC 3339 (default now)")
	cmd.Flags().StringVar(&total, "total", "", "Total amount")
	cmd.Flags().StringVar(&subtotal, "subtotal", "", "Subtotal amount")
	cmd.Flags().StringVar(&tax, "tax", "", "Tax amount")
	for _, name := range []string{"user", "customer", "total", "subtotal", "tax"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newOrderListCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List orders with their line items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				summaries, err := b.List(ctx)
				if err != nil {
					return err
				}
				return p.Summaries(summaries)
			})
		},
	}
}

func newOrderGetCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one order with catalog prices of its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Errorf("invalid order id %q", args[0])
			}
			return r.run(cmd, func(ctx context.Context, b Backend, p *printer) error {
				d, err := b.Get(ctx, order.ID(raw))
				if err != nil {
					return err
				}
				return p.Detail(d)
			})
		},
	}
}

func parseAmount(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse --%s", name)
	}
	return d, nil
}
