package cli

import (
	"encoding/json"
	"fmt"

	"github.com/Ulixes-8/orderflow/internal/entities"

	"github.com/spf13/cobra"
)

// envelope is the single stdout contract: every command prints exactly one of
// these, success or failure.
type envelope struct {
	OK      bool          `json:"ok"`
	Command string        `json:"command"`
	Data    any           `json:"data,omitempty"`
	Error   *errorPayload `json:"error,omitempty"`
}

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type linePayload struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPricePence int    `json:"unit_price_pence"`
	LineTotalPence int    `json:"line_total_pence"`
}

type orderPayload struct {
	OrderID        string        `json:"order_id"`
	Mobile         string        `json:"mobile"`
	Status         string        `json:"status"`
	CreatedAtUTC   string        `json:"created_at_utc"`
	FulfilledAtUTC *string       `json:"fulfilled_at_utc"`
	Lines          []linePayload `json:"lines"`
	TotalPence     int           `json:"total_pence"`
	RawMessage     string        `json:"raw_message"`
}

const timeLayout = "2006-01-02T15:04:05Z"

func orderToPayload(o entities.Order) orderPayload {
	p := orderPayload{
		OrderID:      o.OrderID,
		Mobile:       o.Mobile,
		Status:       string(o.Status),
		CreatedAtUTC: o.CreatedAt.UTC().Format(timeLayout),
		Lines:        make([]linePayload, 0, len(o.Lines)),
		TotalPence:   o.TotalPence,
		RawMessage:   o.RawMessage,
	}
	if o.FulfilledAt != nil {
		at := o.FulfilledAt.UTC().Format(timeLayout)
		p.FulfilledAtUTC = &at
	}
	for _, line := range o.Lines {
		p.Lines = append(p.Lines, linePayload{
			SKU:            line.SKU,
			Qty:            line.Qty,
			UnitPricePence: line.UnitPricePence,
			LineTotalPence: line.LineTotalPence,
		})
	}
	return p
}

func writeOK(cmd *cobra.Command, command string, data any) error {
	return writeEnvelope(cmd, envelope{OK: true, Command: command, Data: data})
}

// writeErr prints the failure envelope and returns an exitError carrying the
// process exit code for the error class.
func writeErr(cmd *cobra.Command, command string, err error) error {
	appErr, ok := entities.AsError(err)
	if !ok {
		appErr = entities.NewError(entities.CodeInternalError, err.Error())
	}
	e := envelope{
		OK:      false,
		Command: command,
		Error: &errorPayload{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	}
	if err := writeEnvelope(cmd, e); err != nil {
		return err
	}
	return &exitError{code: exitCodeFor(appErr.Code), msg: appErr.Error()}
}

func writeEnvelope(cmd *cobra.Command, e envelope) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// exitError carries a process exit code through cobra without a second print.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCodeFor(code string) int {
	switch code {
	case entities.CodeUnauthorized:
		return 3
	case entities.CodeOrderNotFound:
		return 4
	case entities.CodeOrderAlreadyFulfilled:
		return 5
	case entities.CodeDatabaseError, entities.CodeInternalError:
		return 1
	default:
		return 2
	}
}
