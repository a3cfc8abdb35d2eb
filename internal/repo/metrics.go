package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ulixes-8/orderflow/internal/metrics"

	sq "github.com/Masterminds/squirrel"
)

// LoadMetrics returns the persisted collector snapshot, or a fresh collector
// when none has been saved yet.
func (r *sqliteRepo) LoadMetrics(ctx context.Context) (*metrics.Collector, error) {
	query, args := r.qb.Select("data").
		From("metrics_snapshot").
		Where(sq.Eq{"id": 1}).
		MustSql()

	var data string
	err := r.getContext(ctx, &data, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return metrics.NewCollector(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics snapshot: %w", err)
	}

	collector := metrics.NewCollector()
	if err := json.Unmarshal([]byte(data), collector); err != nil {
		return nil, fmt.Errorf("failed to decode metrics snapshot: %w", err)
	}
	return collector, nil
}

func (r *sqliteRepo) SaveMetrics(ctx context.Context, c *metrics.Collector) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode metrics snapshot: %w", err)
	}

	query, args := r.qb.Insert("metrics_snapshot").
		Columns("id", "data").
		Values(1, string(data)).
		Suffix("ON CONFLICT (id) DO UPDATE SET data = excluded.data").
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save metrics snapshot: %w", err)
	}
	return nil
}
