package service

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Ulixes-8/orderflow/internal/catalog"
	"github.com/Ulixes-8/orderflow/internal/entities"
	"github.com/Ulixes-8/orderflow/internal/metrics"
	"github.com/Ulixes-8/orderflow/internal/parser"
	"github.com/Ulixes-8/orderflow/internal/validation"
	"github.com/Ulixes-8/orderflow/pkg/trm"
	"github.com/Ulixes-8/orderflow/pkg/utils"

	"github.com/google/uuid"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, o entities.Order) error
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	ListOutstanding(ctx context.Context) ([]entities.Order, error)
	FulfillOrder(ctx context.Context, orderID string, fulfilledAt time.Time) (entities.Order, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewOrderID() string
}

// SystemClock produces second-granularity UTC timestamps.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// RandomIDGenerator derives order ids from random UUID bytes.
type RandomIDGenerator struct{}

func (RandomIDGenerator) NewOrderID() string {
	id := uuid.New()
	return "ORD-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// Limits bounds the accepted message shape.
type Limits struct {
	MaxMessageLen int
	MaxItems      int
	MaxQty        int
}

func DefaultLimits() Limits {
	return Limits{MaxMessageLen: 256, MaxItems: 20, MaxQty: 99}
}

// OutstandingGroup is one mobile's pending orders, in creation order.
type OutstandingGroup struct {
	Mobile string
	Orders []entities.Order
}

// BatchLineResult is the outcome for one processed batch line.
type BatchLineResult struct {
	Line   int
	Mobile string
	Order  *entities.Order
	Err    *entities.Error
}

type BatchResult struct {
	Results  []BatchLineResult
	Accepted int
	Rejected int
}

const idAttempts = 5

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      OrderRepo
	catalog   *catalog.Catalog
	metrics   *metrics.Collector
	clock     Clock
	ids       IDGenerator
	authCode  string
	limits    Limits
}

func NewOrderService(
	logger *slog.Logger,
	txManager trm.Manager,
	repo OrderRepo,
	cat *catalog.Catalog,
	collector *metrics.Collector,
	authCode string,
	limits Limits,
) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		catalog:   cat,
		metrics:   collector,
		clock:     SystemClock{},
		ids:       RandomIDGenerator{},
		authCode:  authCode,
		limits:    limits,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *orderService) WithClock(c Clock) *orderService {
	s.clock = c
	return s
}

// WithIDGenerator replaces the order id source. Intended for tests.
func (s *orderService) WithIDGenerator(g IDGenerator) *orderService {
	s.ids = g
	return s
}

// PlaceOrder validates the mobile and message, prices the items against the
// catalogue and persists a new PENDING order. It either returns a fully
// assembled order or a tagged error; nothing is stored on rejection.
func (s *orderService) PlaceOrder(ctx context.Context, mobile, message string) (entities.Order, error) {
	stopTotal := s.metrics.Time(metrics.SeriesTotal)
	defer stopTotal()
	s.metrics.MessagesProcessedTotal++

	normMobile, err := validation.Mobile(mobile)
	if err != nil {
		return s.rejectOrder(err)
	}
	if err := validation.MessageLength(message, s.limits.MaxMessageLen); err != nil {
		return s.rejectOrder(err)
	}

	stopParse := s.metrics.Time(metrics.SeriesParse)
	items, err := parser.Parse(message, s.limits.MaxItems, s.limits.MaxQty)
	stopParse()
	if err != nil {
		return s.rejectOrder(err)
	}

	lines := make([]entities.OrderLine, 0, len(items))
	total := 0
	for _, item := range items {
		entry, ok := s.catalog.Get(item.SKU)
		if !ok {
			return s.rejectOrder(entities.NewErrorWithDetails(
				entities.CodeUnknownItem,
				"item is not in the catalogue",
				map[string]any{"sku": item.SKU},
			))
		}
		lineTotal := item.Qty * entry.UnitPricePence
		lines = append(lines, entities.OrderLine{
			SKU:            entry.SKU,
			Qty:            item.Qty,
			UnitPricePence: entry.UnitPricePence,
			LineTotalPence: lineTotal,
		})
		total += lineTotal
	}

	order := entities.Order{
		Mobile:     normMobile,
		RawMessage: message,
		Lines:      lines,
		Status:     entities.StatusPending,
		CreatedAt:  s.clock.Now(),
		TotalPence: total,
	}
	if err := order.Verify(); err != nil {
		s.logger.Error("assembled order failed verification", "error", err)
		return s.rejectOrder(entities.NewError(entities.CodeInternalError, "order assembly failed"))
	}

	stopStore := s.metrics.Time(metrics.SeriesStore)
	err = utils.Retry(utils.RetryConfig{
		MaxAttempts:  idAttempts,
		InitialDelay: time.Millisecond,
	}, func() error {
		order.OrderID = s.ids.NewOrderID()
		return s.txManager.Do(ctx, func(ctx context.Context) error {
			return s.repo.CreateOrder(ctx, order)
		})
	}, entities.ErrOrderAlreadyExists)
	stopStore()

	if errors.Is(err, entities.ErrOrderAlreadyExists) {
		s.logger.Error("order id space exhausted", "attempts", idAttempts)
		return s.rejectOrder(entities.NewError(entities.CodeInternalError, "could not allocate a unique order id"))
	}
	if err != nil {
		s.logger.Error("failed to store order", "error", err)
		return s.rejectOrder(entities.NewError(entities.CodeDatabaseError, "failed to store order"))
	}

	s.metrics.OrdersCreatedTotal++
	s.logger.Debug("order placed", "order_id", order.OrderID, "mobile", order.Mobile, "total_pence", order.TotalPence)
	return order, nil
}

// ListOutstanding returns all PENDING orders grouped by mobile. Groups follow
// the order in which each mobile first placed a still-pending order; orders
// within a group stay in creation order.
func (s *orderService) ListOutstanding(ctx context.Context) ([]OutstandingGroup, error) {
	orders, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		s.logger.Error("failed to list outstanding orders", "error", err)
		return nil, s.fail(entities.NewError(entities.CodeDatabaseError, "failed to list orders"))
	}

	index := make(map[string]int)
	groups := make([]OutstandingGroup, 0)
	for _, order := range orders {
		if err := order.Verify(); err != nil {
			s.logger.Error("stored order failed verification", "order_id", order.OrderID, "error", err)
			return nil, s.fail(entities.NewError(entities.CodeInternalError, "stored order is inconsistent"))
		}
		i, ok := index[order.Mobile]
		if !ok {
			i = len(groups)
			index[order.Mobile] = i
			groups = append(groups, OutstandingGroup{Mobile: order.Mobile})
		}
		groups[i].Orders = append(groups[i].Orders, order)
	}
	return groups, nil
}

// ShowOrder returns one order by id regardless of its status.
func (s *orderService) ShowOrder(ctx context.Context, rawID string) (entities.Order, error) {
	orderID, err := validation.OrderID(rawID)
	if err != nil {
		return entities.Order{}, s.fail(err)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return entities.Order{}, s.fail(s.mapRepoError(orderID, err))
	}
	if err := order.Verify(); err != nil {
		s.logger.Error("stored order failed verification", "order_id", orderID, "error", err)
		return entities.Order{}, s.fail(entities.NewError(entities.CodeInternalError, "stored order is inconsistent"))
	}
	return order, nil
}

// FulfillOrder transitions a PENDING order to FULFILLED. The auth code is
// checked before the store is touched: an unauthorized caller learns nothing
// about order existence and causes no repository traffic.
func (s *orderService) FulfillOrder(ctx context.Context, rawID, rawAuthCode string) (entities.Order, error) {
	orderID, err := validation.OrderID(rawID)
	if err != nil {
		return entities.Order{}, s.fail(err)
	}
	authCode, err := validation.AuthCode(rawAuthCode)
	if err != nil {
		return entities.Order{}, s.fail(err)
	}
	if subtle.ConstantTimeCompare([]byte(authCode), []byte(s.authCode)) != 1 {
		s.logger.Warn("fulfillment rejected", "order_id", orderID)
		return entities.Order{}, s.fail(entities.NewError(entities.CodeUnauthorized, "invalid authorization code"))
	}

	var order entities.Order
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		fulfilled, err := s.repo.FulfillOrder(ctx, orderID, s.clock.Now())
		if err != nil {
			return err
		}
		order = fulfilled
		return nil
	})
	if err != nil {
		return entities.Order{}, s.fail(s.mapRepoError(orderID, err))
	}

	s.metrics.OrdersFulfilledTotal++
	s.logger.Debug("order fulfilled", "order_id", order.OrderID)
	return order, nil
}

// PlaceBatch processes newline-delimited "mobile|message" lines. Blank lines
// and lines starting with # are skipped. Lines are independent: one bad line
// never blocks the rest.
func (s *orderService) PlaceBatch(ctx context.Context, lines []string) (BatchResult, error) {
	var result BatchResult

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		mobile, message, found := strings.Cut(line, "|")
		if !found {
			// A malformed line never reaches PlaceOrder, so it is not a
			// processed message; it still counts as a rejection.
			appErr := entities.NewErrorWithDetails(
				entities.CodeParseError,
				"batch line must be mobile|message",
				map[string]any{"line": lineNo},
			)
			s.metrics.OrdersRejectedTotal++
			s.metrics.IncrementError(appErr.Code)
			result.Results = append(result.Results, BatchLineResult{Line: lineNo, Err: appErr})
			result.Rejected++
			continue
		}

		order, err := s.PlaceOrder(ctx, strings.TrimSpace(mobile), message)
		if err != nil {
			appErr, ok := entities.AsError(err)
			if !ok {
				appErr = entities.NewError(entities.CodeInternalError, "unexpected failure")
			}
			result.Results = append(result.Results, BatchLineResult{Line: lineNo, Mobile: mobile, Err: appErr})
			result.Rejected++
			continue
		}
		result.Results = append(result.Results, BatchLineResult{Line: lineNo, Mobile: order.Mobile, Order: &order})
		result.Accepted++
	}

	return result, nil
}

// rejectOrder records a placement failure in the metrics and normalizes err
// into a tagged error.
func (s *orderService) rejectOrder(err error) (entities.Order, error) {
	s.metrics.OrdersRejectedTotal++
	return entities.Order{}, s.fail(err)
}

// fail records the error code in the metrics and passes the error through.
func (s *orderService) fail(err error) error {
	appErr, ok := entities.AsError(err)
	if !ok {
		appErr = entities.NewError(entities.CodeInternalError, "unexpected failure")
	}
	s.metrics.IncrementError(appErr.Code)
	return appErr
}

// mapRepoError translates repository sentinels into tagged errors. Anything
// unrecognized is a database fault; driver details stay out of the result.
func (s *orderService) mapRepoError(orderID string, err error) *entities.Error {
	switch {
	case errors.Is(err, entities.ErrOrderNotFound):
		return entities.NewErrorWithDetails(
			entities.CodeOrderNotFound,
			"order not found",
			map[string]any{"order_id": orderID},
		)
	case errors.Is(err, entities.ErrOrderAlreadyFulfilled):
		return entities.NewErrorWithDetails(
			entities.CodeOrderAlreadyFulfilled,
			"order has already been fulfilled",
			map[string]any{"order_id": orderID},
		)
	default:
		s.logger.Error("repository failure", "order_id", orderID, "error", err)
		return entities.NewError(entities.CodeDatabaseError, "storage failure")
	}
}
