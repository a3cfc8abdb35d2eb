package repo

import (
	"context"
	"sync"
	"time"

	"github.com/Ulixes-8/orderflow/internal/entities"
)

// memoryRepo keeps orders in process memory with the same contract as the
// SQLite repository. Useful for tests and throwaway runs.
type memoryRepo struct {
	mu     sync.Mutex
	orders map[string]entities.Order
	seq    []string
}

func NewMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[string]entities.Order)}
}

func (r *memoryRepo) CreateOrder(_ context.Context, o entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.OrderID]; ok {
		return entities.ErrOrderAlreadyExists
	}
	r.orders[o.OrderID] = cloneOrder(o)
	r.seq = append(r.seq, o.OrderID)
	return nil
}

func (r *memoryRepo) GetOrderByID(_ context.Context, orderID string) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memoryRepo) ListOutstanding(_ context.Context) ([]entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]entities.Order, 0)
	for _, id := range r.seq {
		o := r.orders[id]
		if o.Status == entities.StatusPending {
			result = append(result, cloneOrder(o))
		}
	}
	return result, nil
}

func (r *memoryRepo) FulfillOrder(_ context.Context, orderID string, fulfilledAt time.Time) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if o.Status == entities.StatusFulfilled {
		return entities.Order{}, entities.ErrOrderAlreadyFulfilled
	}

	at := fulfilledAt.UTC().Truncate(time.Second)
	o.Status = entities.StatusFulfilled
	o.FulfilledAt = &at
	r.orders[orderID] = o
	return cloneOrder(o), nil
}

func cloneOrder(o entities.Order) entities.Order {
	clone := o
	if o.Lines != nil {
		clone.Lines = make([]entities.OrderLine, len(o.Lines))
		copy(clone.Lines, o.Lines)
	}
	if o.FulfilledAt != nil {
		at := *o.FulfilledAt
		clone.FulfilledAt = &at
	}
	return clone
}
