package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newPlaceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "place <mobile> <message>",
		Short: "Place an order from a text message",
		Long:  "Validate the mobile, parse the message, price the items against the catalogue and store a new PENDING order.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				order, err := a.svc.PlaceOrder(ctx, args[0], args[1])
				if err != nil {
					return writeErr(cmd, "place", err)
				}
				return writeOK(cmd, "place", orderToPayload(order))
			})
		},
	}
}
