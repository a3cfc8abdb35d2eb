package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ulixes-8/orderflow/internal/service"

	"github.com/spf13/cobra"
)

type batchLinePayload struct {
	Line   int           `json:"line"`
	Mobile string        `json:"mobile,omitempty"`
	Order  *orderPayload `json:"order,omitempty"`
	Error  *errorPayload `json:"error,omitempty"`
}

func newBatchCmd(opts *options) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Place orders from a batch file",
		Long:  "Process newline-delimited \"mobile|message\" lines from a file or stdin. Blank lines and # comments are skipped; lines fail independently.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if input == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(input)
			}
			if err != nil {
				return fmt.Errorf("failed to read batch input: %w", err)
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
				result, err := a.svc.PlaceBatch(ctx, lines)
				if err != nil {
					return writeErr(cmd, "batch", err)
				}
				return writeOK(cmd, "batch", batchToPayload(result))
			})
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "Batch file path, or - for stdin")
	return cmd
}

func batchToPayload(result service.BatchResult) map[string]any {
	results := make([]batchLinePayload, 0, len(result.Results))
	for _, r := range result.Results {
		p := batchLinePayload{Line: r.Line, Mobile: r.Mobile}
		if r.Order != nil {
			order := orderToPayload(*r.Order)
			p.Order = &order
		}
		if r.Err != nil {
			p.Error = &errorPayload{
				Code:    r.Err.Code,
				Message: r.Err.Message,
				Details: r.Err.Details,
			}
		}
		results = append(results, p)
	}
	return map[string]any{
		"results": results,
		"summary": map[string]int{
			"lines_processed": result.Accepted + result.Rejected,
			"lines_succeeded": result.Accepted,
			"lines_failed":    result.Rejected,
		},
	}
}
