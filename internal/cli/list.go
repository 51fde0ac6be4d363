package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orderimport/internal/core"
)

type listOptions struct {
	orderID string
	minDate string
	maxDate string
}

func newListCommand(rootOpts *RootOptions) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders grouped by customer",
		Long: `List stored orders grouped by customer.

--min-date and --max-date (YYYY-MM-DD) select an inclusive range and only
apply when both are given. --order-id narrows the result to one order id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.orderID, "order-id", "", "only this order id")
	cmd.Flags().StringVar(&opts.minDate, "min-date", "", "range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.maxDate, "max-date", "", "range end, YYYY-MM-DD")

	return cmd
}

func runList(cmd *cobra.Command, rootOpts *RootOptions, opts listOptions) error {
	filter, err := core.ParseOrderFilter(opts.orderID, opts.minDate, opts.maxDate)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	sess, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	views, err := sess.service.ListOrders(cmd.Context(), filter)
	if errors.Is(err, core.ErrNotFound) {
		return NewExitError(ExitFailure, core.FormatUserError(err))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "list orders", err)
	}

	return rootOpts.formatter(cmd).Render(views, func(w io.Writer) {
		printViews(w, views)
	})
}

func printViews(w io.Writer, views []core.CustomerOrdersView) {
	for _, c := range views {
		fmt.Fprintf(w, "%d %s\n", c.UserID, c.Name)
		for _, o := range c.Orders {
			fmt.Fprintf(w, "  order %d  %s  total %s\n", o.OrderID, o.Date, o.Total)
			for _, p := range o.Products {
				fmt.Fprintf(w, "    product %d  %s\n", p.ProductID, p.Value)
			}
		}
	}
}
