package entities

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusFulfilled Status = "FULFILLED"
)

// OrderLine is one priced line within an order. Lines are unique per SKU;
// duplicate SKUs in a message aggregate before assembly.
type OrderLine struct {
	SKU            string
	Qty            int
	UnitPricePence int
	LineTotalPence int
}

// Order is the central entity. Lines keep first-seen SKU order.
// FulfilledAt is nil while the order is PENDING.
type Order struct {
	OrderID     string
	Mobile      string
	RawMessage  string
	Lines       []OrderLine
	Status      Status
	CreatedAt   time.Time
	FulfilledAt *time.Time
	TotalPence  int
}

// Verify checks the arithmetic and state invariants that must hold for every
// order crossing a read or write boundary. It returns the first violation.
func (o Order) Verify() error {
	if o.Status != StatusPending && o.Status != StatusFulfilled {
		return fmt.Errorf("invalid status %q", o.Status)
	}
	if o.Status == StatusPending && o.FulfilledAt != nil {
		return fmt.Errorf("pending order %s has fulfilled_at set", o.OrderID)
	}
	if o.Status == StatusFulfilled && o.FulfilledAt == nil {
		return fmt.Errorf("fulfilled order %s has no fulfilled_at", o.OrderID)
	}
	total := 0
	for _, line := range o.Lines {
		if line.Qty < 1 {
			return fmt.Errorf("line %s has qty %d", line.SKU, line.Qty)
		}
		if want := line.Qty * line.UnitPricePence; line.LineTotalPence != want {
			return fmt.Errorf("line %s total is %d, want %d", line.SKU, line.LineTotalPence, want)
		}
		total += line.LineTotalPence
	}
	if total != o.TotalPence {
		return fmt.Errorf("order total is %d, lines sum to %d", o.TotalPence, total)
	}
	return nil
}
