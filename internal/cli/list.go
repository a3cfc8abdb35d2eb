package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type groupPayload struct {
	Mobile string         `json:"mobile"`
	Orders []orderPayload `json:"orders"`
}

func newListCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outstanding orders grouped by mobile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "lines" {
				return fmt.Errorf("unknown format %q: want json or lines", format)
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				groups, err := a.svc.ListOutstanding(ctx)
				if err != nil {
					return writeErr(cmd, "list", err)
				}

				if format == "lines" {
					out := cmd.OutOrStdout()
					for _, group := range groups {
						fmt.Fprintf(out, "%s:\n", group.Mobile)
						for _, order := range group.Orders {
							fmt.Fprintf(out, "  %s  %dp  %s\n",
								order.OrderID, order.TotalPence,
								order.CreatedAt.UTC().Format(timeLayout))
						}
					}
					return nil
				}

				payload := make([]groupPayload, 0, len(groups))
				total := 0
				for _, group := range groups {
					g := groupPayload{Mobile: group.Mobile, Orders: make([]orderPayload, 0, len(group.Orders))}
					for _, order := range group.Orders {
						g.Orders = append(g.Orders, orderToPayload(order))
						total++
					}
					payload = append(payload, g)
				}
				return writeOK(cmd, "list", map[string]any{
					"groups":       payload,
					"total_orders": total,
				})
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or lines")
	return cmd
}
