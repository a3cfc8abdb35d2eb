package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Ulixes-8/orderflow/internal/entities"
	"github.com/Ulixes-8/orderflow/pkg/trm"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type sqliteRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewSQLiteRepo(db *sqlx.DB) *sqliteRepo {
	return &sqliteRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (r *sqliteRepo) CreateOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Select("1").
		From("orders").
		Where(sq.Eq{"order_id": o.OrderID}).
		MustSql()

	var exists int
	err := r.getContext(ctx, &exists, query, args...)
	if err == nil {
		return entities.ErrOrderAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check order id: %w", err)
	}

	row := OrderToRow(o)
	query, args = r.qb.Insert("orders").
		Columns("order_id", "mobile", "raw_message", "status",
			"created_at", "fulfilled_at", "total_pence").
		Values(row.OrderID, row.Mobile, row.RawMessage, row.Status,
			row.CreatedAt, row.FulfilledAt, row.TotalPence).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if len(o.Lines) == 0 {
		return nil
	}

	q := r.qb.Insert("order_lines").
		Columns("order_id", "position", "sku", "qty",
			"unit_price_pence", "line_total_pence")
	for i, line := range o.Lines {
		lr := LineToRow(o.OrderID, i, line)
		q = q.Values(lr.OrderID, lr.Position, lr.SKU, lr.Qty,
			lr.UnitPricePence, lr.LineTotalPence)
	}

	query, args = q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order lines: %w", err)
	}
	return nil
}

func (r *sqliteRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	query, args := r.qb.Select("order_id", "mobile", "raw_message", "status",
		"created_at", "fulfilled_at", "total_pence").
		From("orders").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	query, args = r.qb.Select("order_id", "position", "sku", "qty",
		"unit_price_pence", "line_total_pence").
		From("order_lines").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("position").
		MustSql()

	var lines []OrderLine
	if err := r.selectContext(ctx, &lines, query, args...); err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order lines: %w", err)
	}

	return OrderToEntity(order, lines)
}

// ListOutstanding returns every PENDING order, oldest first, with lines in
// message order.
func (r *sqliteRepo) ListOutstanding(ctx context.Context) ([]entities.Order, error) {
	query, args := r.qb.Select("order_id", "mobile", "raw_message", "status",
		"created_at", "fulfilled_at", "total_pence").
		From("orders").
		Where(sq.Eq{"status": string(entities.StatusPending)}).
		OrderBy("created_at", "order_id").
		MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}

	if len(orders) == 0 {
		return []entities.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i, order := range orders {
		ids[i] = order.OrderID
	}

	query, args = r.qb.Select("order_id", "position", "sku", "qty",
		"unit_price_pence", "line_total_pence").
		From("order_lines").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("order_id", "position").
		MustSql()

	var lines []OrderLine
	if err := r.selectContext(ctx, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select order lines: %w", err)
	}
	linesMap := make(map[string][]OrderLine, len(ids))
	for _, line := range lines {
		linesMap[line.OrderID] = append(linesMap[line.OrderID], line)
	}

	result := make([]entities.Order, 0, len(orders))
	for _, order := range orders {
		entity, err := OrderToEntity(order, linesMap[order.OrderID])
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}

	return result, nil
}

// FulfillOrder moves a PENDING order to FULFILLED in a single conditional
// update, so a concurrent fulfill of the same order cannot both win. When the
// update touches no rows the current status decides between not-found and
// already-fulfilled.
func (r *sqliteRepo) FulfillOrder(ctx context.Context, orderID string, fulfilledAt time.Time) (entities.Order, error) {
	query, args := r.qb.Update("orders").
		Set("status", string(entities.StatusFulfilled)).
		Set("fulfilled_at", fulfilledAt.UTC().Format(timeLayout)).
		Where(sq.Eq{"order_id": orderID, "status": string(entities.StatusPending)}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to fulfill order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		query, args = r.qb.Select("status").
			From("orders").
			Where(sq.Eq{"order_id": orderID}).
			MustSql()

		var status string
		err := r.getContext(ctx, &status, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Order{}, entities.ErrOrderNotFound
		}
		if err != nil {
			return entities.Order{}, fmt.Errorf("failed to get order status: %w", err)
		}
		if status == string(entities.StatusFulfilled) {
			return entities.Order{}, entities.ErrOrderAlreadyFulfilled
		}
		return entities.Order{}, fmt.Errorf("order %s in unexpected status %s", orderID, status)
	}

	return r.GetOrderByID(ctx, orderID)
}

func (r *sqliteRepo) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *sqliteRepo) getContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return r.db.GetContext(ctx, dest, query, args...)
}

func (r *sqliteRepo) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return r.db.SelectContext(ctx, dest, query, args...)
}
