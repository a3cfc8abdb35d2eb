package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newFulfillCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fulfill <order-id> <auth-code>",
		Short: "Fulfill a pending order",
		Long:  "Transition a PENDING order to FULFILLED. Requires the six-digit authorization code; a wrong code is rejected before the store is read.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				order, err := a.svc.FulfillOrder(ctx, args[0], args[1])
				if err != nil {
					return writeErr(cmd, "fulfill", err)
				}
				return writeOK(cmd, "fulfill", orderToPayload(order))
			})
		},
	}
}
