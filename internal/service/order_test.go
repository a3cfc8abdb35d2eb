package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Ulixes-8/orderflow/internal/catalog"
	"github.com/Ulixes-8/orderflow/internal/entities"
	"github.com/Ulixes-8/orderflow/internal/metrics"
	"github.com/Ulixes-8/orderflow/internal/repo"
	"github.com/Ulixes-8/orderflow/internal/service"
	"github.com/Ulixes-8/orderflow/pkg/trm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthCode = "123456"

type passthroughTx struct{}

func (passthroughTx) Commit() error   { return nil }
func (passthroughTx) Rollback() error { return nil }

// fakeTxManager runs callbacks directly; the memory repository has no
// transactions to manage.
type fakeTxManager struct{}

func (fakeTxManager) BeginTx(ctx context.Context) (context.Context, trm.Transaction, error) {
	return ctx, passthroughTx{}, nil
}

func (fakeTxManager) Do(ctx context.Context, cb func(ctx context.Context) error) error {
	return cb(ctx)
}

// countingRepo counts every repository call so tests can assert that a code
// path never touched the store.
type countingRepo struct {
	inner service.OrderRepo
	calls int
}

func (r *countingRepo) CreateOrder(ctx context.Context, o entities.Order) error {
	r.calls++
	return r.inner.CreateOrder(ctx, o)
}

func (r *countingRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	r.calls++
	return r.inner.GetOrderByID(ctx, orderID)
}

func (r *countingRepo) ListOutstanding(ctx context.Context) ([]entities.Order, error) {
	r.calls++
	return r.inner.ListOutstanding(ctx)
}

func (r *countingRepo) FulfillOrder(ctx context.Context, orderID string, at time.Time) (entities.Order, error) {
	r.calls++
	return r.inner.FulfillOrder(ctx, orderID, at)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// seqIDs hands out ids from a fixed list, cycling when exhausted.
type seqIDs struct {
	ids []string
	i   int
}

func (g *seqIDs) NewOrderID() string {
	id := g.ids[g.i%len(g.ids)]
	g.i++
	return id
}

type testEnv struct {
	svc interface {
		PlaceOrder(ctx context.Context, mobile, message string) (entities.Order, error)
		ListOutstanding(ctx context.Context) ([]service.OutstandingGroup, error)
		ShowOrder(ctx context.Context, rawID string) (entities.Order, error)
		FulfillOrder(ctx context.Context, rawID, rawAuthCode string) (entities.Order, error)
		PlaceBatch(ctx context.Context, lines []string) (service.BatchResult, error)
	}
	repo    *countingRepo
	metrics *metrics.Collector
	clock   fixedClock
}

func newTestEnv(t *testing.T, ids ...string) testEnv {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"ORD-AAAA0001", "ORD-AAAA0002", "ORD-AAAA0003", "ORD-AAAA0004", "ORD-AAAA0005"}
	}

	cat, err := catalog.Load("")
	require.NoError(t, err)

	counting := &countingRepo{inner: repo.NewMemoryRepo()}
	collector := metrics.NewCollector()
	clock := fixedClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewOrderService(logger, fakeTxManager{}, counting, cat, collector, testAuthCode, service.DefaultLimits()).
		WithClock(clock).
		WithIDGenerator(&seqIDs{ids: ids})

	return testEnv{svc: svc, repo: counting, metrics: collector, clock: clock}
}

func assertCode(t *testing.T, err error, code string) *entities.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := entities.AsError(err)
	require.True(t, ok, "error %v is not a tagged error", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestPlaceOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE=2 TEA")
	require.NoError(t, err)

	assert.Equal(t, "ORD-AAAA0001", order.OrderID)
	assert.Equal(t, "+447911123456", order.Mobile)
	assert.Equal(t, "ORDER COFFEE=2 TEA", order.RawMessage)
	assert.Equal(t, entities.StatusPending, order.Status)
	assert.True(t, order.CreatedAt.Equal(env.clock.now))
	assert.Nil(t, order.FulfilledAt)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, entities.OrderLine{SKU: "COFFEE", Qty: 2, UnitPricePence: 250, LineTotalPence: 500}, order.Lines[0])
	assert.Equal(t, entities.OrderLine{SKU: "TEA", Qty: 1, UnitPricePence: 180, LineTotalPence: 180}, order.Lines[1])
	assert.Equal(t, 680, order.TotalPence)

	assert.Equal(t, 1, env.metrics.MessagesProcessedTotal)
	assert.Equal(t, 1, env.metrics.OrdersCreatedTotal)
	assert.Equal(t, 0, env.metrics.OrdersRejectedTotal)
	assert.Len(t, env.metrics.ParseMs, 1)
	assert.Len(t, env.metrics.StoreMs, 1)
	assert.Len(t, env.metrics.TotalMs, 1)
}

func TestPlaceOrderRejections(t *testing.T) {
	testCases := []struct {
		name     string
		mobile   string
		message  string
		wantCode string
	}{
		{"invalid mobile", "07911123456", "ORDER COFFEE", entities.CodeInvalidMobile},
		{"mobile too short", "+1234567", "ORDER COFFEE", entities.CodeInvalidMobile},
		{"missing keyword", "+447911123456", "BUY COFFEE", entities.CodeParseError},
		{"empty message", "+447911123456", "", entities.CodeParseError},
		{"unknown item", "+447911123456", "ORDER PIZZA", entities.CodeUnknownItem},
		{"zero quantity", "+447911123456", "ORDER COFFEE=0", entities.CodeInvalidQuantity},
		{"quantity too large", "+447911123456", "ORDER COFFEE=100", entities.CodeInvalidQuantity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			_, err := env.svc.PlaceOrder(ctx, tc.mobile, tc.message)
			assertCode(t, err, tc.wantCode)

			// A rejected message stores nothing.
			groups, err := env.svc.ListOutstanding(ctx)
			require.NoError(t, err)
			assert.Empty(t, groups)

			assert.Equal(t, 1, env.metrics.OrdersRejectedTotal)
			assert.Equal(t, 1, env.metrics.ErrorsByCode[tc.wantCode])
		})
	}
}

func TestPlaceOrderInvalidMobileSkipsStore(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.PlaceOrder(context.Background(), "not-a-number", "ORDER COFFEE")
	assertCode(t, err, entities.CodeInvalidMobile)
	assert.Zero(t, env.repo.calls)
}

func TestPlaceOrderMessageTooLong(t *testing.T) {
	env := newTestEnv(t)

	long := "ORDER COFFEE"
	for len(long) <= 256 {
		long += " TEA"
	}
	_, err := env.svc.PlaceOrder(context.Background(), "+447911123456", long)
	assertCode(t, err, entities.CodeMessageTooLong)
	assert.Zero(t, env.repo.calls)
}

func TestPlaceOrderIDCollisionRetries(t *testing.T) {
	// First two generated ids collide with an existing order; the third wins.
	env := newTestEnv(t, "ORD-11111111", "ORD-11111111", "ORD-22222222")
	ctx := context.Background()

	first, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE")
	require.NoError(t, err)
	assert.Equal(t, "ORD-11111111", first.OrderID)

	second, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER TEA")
	require.NoError(t, err)
	assert.Equal(t, "ORD-22222222", second.OrderID)
	assert.Equal(t, 2, env.metrics.OrdersCreatedTotal)
}

func TestPlaceOrderIDSpaceExhausted(t *testing.T) {
	env := newTestEnv(t, "ORD-11111111")
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE")
	require.NoError(t, err)

	// Every retry produces the same colliding id.
	_, err = env.svc.PlaceOrder(ctx, "+447911123456", "ORDER TEA")
	assertCode(t, err, entities.CodeInternalError)
}

func TestFulfillOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placed, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE=2")
	require.NoError(t, err)

	fulfilled, err := env.svc.FulfillOrder(ctx, placed.OrderID, testAuthCode)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFulfilled, fulfilled.Status)
	require.NotNil(t, fulfilled.FulfilledAt)
	assert.True(t, fulfilled.FulfilledAt.Equal(env.clock.now))
	assert.Equal(t, 1, env.metrics.OrdersFulfilledTotal)

	// Re-fulfilling is rejected and the first fulfilment time stands.
	_, err = env.svc.FulfillOrder(ctx, placed.OrderID, testAuthCode)
	appErr := assertCode(t, err, entities.CodeOrderAlreadyFulfilled)
	assert.Equal(t, placed.OrderID, appErr.Details["order_id"])

	shown, err := env.svc.ShowOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	require.NotNil(t, shown.FulfilledAt)
	assert.True(t, shown.FulfilledAt.Equal(*fulfilled.FulfilledAt))
	assert.Equal(t, 1, env.metrics.OrdersFulfilledTotal)
}

func TestFulfillOrderUnauthorizedNeverTouchesStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placed, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE")
	require.NoError(t, err)
	callsAfterPlace := env.repo.calls

	_, err = env.svc.FulfillOrder(ctx, placed.OrderID, "654321")
	assertCode(t, err, entities.CodeUnauthorized)
	assert.Equal(t, callsAfterPlace, env.repo.calls)

	// Wrong code on a nonexistent order reads identically: UNAUTHORIZED, no
	// repository traffic, no existence leak.
	_, err = env.svc.FulfillOrder(ctx, "ORD-00000000", "654321")
	assertCode(t, err, entities.CodeUnauthorized)
	assert.Equal(t, callsAfterPlace, env.repo.calls)
}

func TestFulfillOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.FulfillOrder(ctx, "ORD-XYZ", testAuthCode)
	assertCode(t, err, entities.CodeParseError)

	_, err = env.svc.FulfillOrder(ctx, "ORD-11111111", "12345")
	assertCode(t, err, entities.CodeParseError)
	assert.Zero(t, env.repo.calls)

	_, err = env.svc.FulfillOrder(ctx, "ORD-00000000", testAuthCode)
	assertCode(t, err, entities.CodeOrderNotFound)
}

func TestShowOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placed, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE")
	require.NoError(t, err)

	shown, err := env.svc.ShowOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderID, shown.OrderID)

	_, err = env.svc.ShowOrder(ctx, "ORD-00000000")
	assertCode(t, err, entities.CodeOrderNotFound)

	_, err = env.svc.ShowOrder(ctx, "not-an-id")
	assertCode(t, err, entities.CodeParseError)
}

func TestListOutstandingGroupsByMobile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER COFFEE")
	require.NoError(t, err)
	_, err = env.svc.PlaceOrder(ctx, "+15551234567", "ORDER TEA")
	require.NoError(t, err)
	third, err := env.svc.PlaceOrder(ctx, "+447911123456", "ORDER WATER=3")
	require.NoError(t, err)
	fulfilledOut, err := env.svc.PlaceOrder(ctx, "+15551234567", "ORDER COOKIE")
	require.NoError(t, err)

	_, err = env.svc.FulfillOrder(ctx, fulfilledOut.OrderID, testAuthCode)
	require.NoError(t, err)

	groups, err := env.svc.ListOutstanding(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Groups follow first-seen mobile order; fulfilled orders are gone.
	assert.Equal(t, "+447911123456", groups[0].Mobile)
	require.Len(t, groups[0].Orders, 2)
	assert.Equal(t, third.OrderID, groups[0].Orders[1].OrderID)

	assert.Equal(t, "+15551234567", groups[1].Mobile)
	require.Len(t, groups[1].Orders, 1)
}

func TestPlaceBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lines := []string{
		"# morning batch",
		"+447911123456|ORDER COFFEE=2 TEA",
		"",
		"+15551234567|ORDER PIZZA",
		"no-separator-here",
		"+15551234567|ORDER COOKIE=3",
	}

	result, err := env.svc.PlaceBatch(ctx, lines)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 2, result.Rejected)
	require.Len(t, result.Results, 4)

	assert.Equal(t, 2, result.Results[0].Line)
	require.NotNil(t, result.Results[0].Order)
	assert.Equal(t, 680, result.Results[0].Order.TotalPence)

	require.NotNil(t, result.Results[1].Err)
	assert.Equal(t, entities.CodeUnknownItem, result.Results[1].Err.Code)

	assert.Equal(t, 5, result.Results[2].Line)
	require.NotNil(t, result.Results[2].Err)
	assert.Equal(t, entities.CodeParseError, result.Results[2].Err.Code)

	require.NotNil(t, result.Results[3].Order)

	// The malformed line never reaches PlaceOrder: three messages processed,
	// but four line outcomes and two rejections.
	assert.Equal(t, 3, env.metrics.MessagesProcessedTotal)
	assert.Equal(t, 2, env.metrics.OrdersCreatedTotal)
	assert.Equal(t, 2, env.metrics.OrdersRejectedTotal)
	assert.Equal(t, 1, env.metrics.ErrorsByCode[entities.CodeParseError])
}
