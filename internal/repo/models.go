package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Ulixes-8/orderflow/internal/entities"
)

// Timestamps are stored as second-granularity UTC text.
const timeLayout = "2006-01-02T15:04:05Z"

type Order struct {
	OrderID     string         `db:"order_id"`
	Mobile      string         `db:"mobile"`
	RawMessage  string         `db:"raw_message"`
	Status      string         `db:"status"`
	CreatedAt   string         `db:"created_at"`
	FulfilledAt sql.NullString `db:"fulfilled_at"`
	TotalPence  int            `db:"total_pence"`
}

type OrderLine struct {
	OrderID        string `db:"order_id"`
	Position       int    `db:"position"`
	SKU            string `db:"sku"`
	Qty            int    `db:"qty"`
	UnitPricePence int    `db:"unit_price_pence"`
	LineTotalPence int    `db:"line_total_pence"`
}

func OrderToRow(o entities.Order) Order {
	row := Order{
		OrderID:    o.OrderID,
		Mobile:     o.Mobile,
		RawMessage: o.RawMessage,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.UTC().Format(timeLayout),
		TotalPence: o.TotalPence,
	}
	if o.FulfilledAt != nil {
		row.FulfilledAt = sql.NullString{String: o.FulfilledAt.UTC().Format(timeLayout), Valid: true}
	}
	return row
}

func LineToRow(orderID string, position int, l entities.OrderLine) OrderLine {
	return OrderLine{
		OrderID:        orderID,
		Position:       position,
		SKU:            l.SKU,
		Qty:            l.Qty,
		UnitPricePence: l.UnitPricePence,
		LineTotalPence: l.LineTotalPence,
	}
}

func OrderToEntity(o Order, lines []OrderLine) (entities.Order, error) {
	createdAt, err := time.Parse(timeLayout, o.CreatedAt)
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to parse created_at for %s: %w", o.OrderID, err)
	}

	order := entities.Order{
		OrderID:    o.OrderID,
		Mobile:     o.Mobile,
		RawMessage: o.RawMessage,
		Status:     entities.Status(o.Status),
		CreatedAt:  createdAt,
		TotalPence: o.TotalPence,
	}

	if o.FulfilledAt.Valid {
		fulfilledAt, err := time.Parse(timeLayout, o.FulfilledAt.String)
		if err != nil {
			return entities.Order{}, fmt.Errorf("failed to parse fulfilled_at for %s: %w", o.OrderID, err)
		}
		order.FulfilledAt = &fulfilledAt
	}

	if len(lines) > 0 {
		order.Lines = make([]entities.OrderLine, 0, len(lines))
		for _, line := range lines {
			order.Lines = append(order.Lines, entities.OrderLine{
				SKU:            line.SKU,
				Qty:            line.Qty,
				UnitPricePence: line.UnitPricePence,
				LineTotalPence: line.LineTotalPence,
			})
		}
	}

	return order, nil
}
