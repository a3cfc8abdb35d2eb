package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one order by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				order, err := a.svc.ShowOrder(ctx, args[0])
				if err != nil {
					return writeErr(cmd, "show", err)
				}
				return writeOK(cmd, "show", orderToPayload(order))
			})
		},
	}
}
