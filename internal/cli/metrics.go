package cli

import (
	"context"

	"github.com/Ulixes-8/orderflow/internal/metrics"

	"github.com/spf13/cobra"
)

type metricsPayload struct {
	MessagesProcessedTotal int                              `json:"messages_processed_total"`
	OrdersCreatedTotal     int                              `json:"orders_created_total"`
	OrdersRejectedTotal    int                              `json:"orders_rejected_total"`
	OrdersFulfilledTotal   int                              `json:"orders_fulfilled_total"`
	ErrorsTotal            int                              `json:"errors_total"`
	ErrorsByCode           map[string]int                   `json:"errors_by_code"`
	Timings                map[string]metrics.SeriesSummary `json:"timings"`
}

func newMetricsCmd(opts *options) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show accumulated operation metrics",
		Long:  "Print the counters and timing summaries accumulated across invocations. --reset clears the snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if reset {
					a.metrics.Reset()
					return writeOK(cmd, "metrics", map[string]any{"reset": true})
				}

				payload := metricsPayload{
					MessagesProcessedTotal: a.metrics.MessagesProcessedTotal,
					OrdersCreatedTotal:     a.metrics.OrdersCreatedTotal,
					OrdersRejectedTotal:    a.metrics.OrdersRejectedTotal,
					OrdersFulfilledTotal:   a.metrics.OrdersFulfilledTotal,
					ErrorsTotal:            a.metrics.ErrorsTotal,
					ErrorsByCode:           a.metrics.ErrorsByCode,
					Timings:                a.metrics.Summary(),
				}
				return writeOK(cmd, "metrics", payload)
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the metrics snapshot")
	return cmd
}
