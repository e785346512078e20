package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/metrics"
	"github.com/ariefcatur/go-order-inventory/internal/port"
	"github.com/ariefcatur/go-order-inventory/internal/reservation"
)

const tracerName = "github.com/ariefcatur/go-order-inventory/internal/orders"

type LineSpec struct {
	ProductIDs []string
}

type CreateOrderInput struct {
	UserID     string
	Lines      []LineSpec
	PlacedDate *time.Time // now when nil
}

// OrderPatch lists the client-editable scalars of an order. Totals are
// derived and deliberately absent.
type OrderPatch struct {
	PlacedDate *time.Time
}

type Options struct {
	Policy      Policy
	Events      port.EventPublisher // optional
	Cache       port.ViewCache      // optional
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Tracer      trace.Tracer
	ServiceName string
	Now         func() time.Time
	NewID       func() string
}

// Manager orchestrates the order lifecycle. Each operation is one
// transaction; events and cache updates happen only after commit.
type Manager struct {
	uow       port.UnitOfWork
	assembler *Assembler
	events    port.EventPublisher
	cache     port.ViewCache
	metrics   *metrics.Metrics
	log       *zap.Logger
	tracer    trace.Tracer
	service   string
	now       func() time.Time
	newID     func() string
}

func NewManager(uow port.UnitOfWork, opts Options) *Manager {
	if opts.Policy == "" {
		opts.Policy = PolicyAllOrNothing
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "order-inventory"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Manager{
		uow: uow,
		assembler: &Assembler{
			Reserver: &reservation.Reserver{Metrics: opts.Metrics, Logger: opts.Logger},
			Policy:   opts.Policy,
			Logger:   opts.Logger,
		},
		events:  opts.Events,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     opts.Logger,
		tracer:  opts.Tracer,
		service: opts.ServiceName,
		now:     opts.Now,
		newID:   opts.NewID,
	}
}

// PlaceOrder creates an order with a single line built from productIDs.
func (m *Manager) PlaceOrder(ctx context.Context, userID string, productIDs []string, placedDate *time.Time) (string, error) {
	o, err := m.CreateOrder(ctx, CreateOrderInput{
		UserID:     userID,
		Lines:      []LineSpec{{ProductIDs: productIDs}},
		PlacedDate: placedDate,
	})
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

func (m *Manager) CreateOrder(ctx context.Context, in CreateOrderInput) (order domain.Order, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.create", trace.WithAttributes(attribute.String("user.id", in.UserID)))
	defer func() { m.finish(span, "create", err) }()

	if strings.TrimSpace(in.UserID) == "" {
		return domain.Order{}, fmt.Errorf("user id is required: %w", domain.ErrInvalidArgument)
	}
	if len(in.Lines) == 0 {
		return domain.Order{}, fmt.Errorf("order needs at least one line: %w", domain.ErrInvalidArgument)
	}
	for i, ls := range in.Lines {
		if len(ls.ProductIDs) == 0 {
			return domain.Order{}, fmt.Errorf("line %d needs at least one product: %w", i, domain.ErrInvalidArgument)
		}
	}

	now := m.now()
	placed := now
	if in.PlacedDate != nil && !in.PlacedDate.IsZero() {
		placed = *in.PlacedDate
	}
	draft := domain.Order{
		ID:         m.newID(),
		UserID:     in.UserID,
		Status:     domain.StatusPending,
		PlacedDate: placed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	span.SetAttributes(attribute.String("order.id", draft.ID))

	err = m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		o := draft
		cat := catalog.New(tx.Products())
		if err := cat.LockAll(ctx, allProductIDs(in.Lines)); err != nil {
			return err
		}

		lines := make([]domain.LineItem, 0, len(in.Lines))
		for _, ls := range in.Lines {
			li, err := m.assembler.Assemble(ctx, cat, ls.ProductIDs)
			if err != nil {
				return err
			}
			if li.QuantityReserved == 0 {
				continue
			}
			li.ID = m.newID()
			li.OrderID = o.ID
			li.Position = len(lines)
			li.CreatedAt = now
			lines = append(lines, li)
		}

		o.LineItems = lines
		o.TotalPrice, o.TotalQuantity = Aggregate(lines)
		if !domain.CanTransition(o.Status, domain.StatusPlaced) {
			return fmt.Errorf("order %s: %s -> %s: %w", o.ID, o.Status, domain.StatusPlaced, domain.ErrInvalidState)
		}
		o.Status = domain.StatusPlaced

		if _, err := tx.Orders().SaveOrder(ctx, o); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		for _, li := range lines {
			if _, err := tx.Orders().SaveLineItem(ctx, li); err != nil {
				return fmt.Errorf("save line item: %w", err)
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	m.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int("total_quantity", order.TotalQuantity),
		zap.String("total_price", order.TotalPrice.String()),
	)
	m.publish(ctx, domain.TopicOrderPlaced, domain.EventOrderPlaced, order.ID, placedPayload(order))
	return order, nil
}

// CancelOrder releases every reservation the order holds and deletes it,
// all in one transaction.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) (err error) {
	ctx, span := m.tracer.Start(ctx, "orders.cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { m.finish(span, "cancel", err) }()

	var released []domain.ReleasedUnits
	err = m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		released = nil
		o, err := tx.Orders().FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o == nil {
			return domain.NotFound("order", orderID)
		}
		if !domain.CanTransition(o.Status, domain.StatusDeleted) {
			return fmt.Errorf("order %s: %s -> %s: %w", o.ID, o.Status, domain.StatusDeleted, domain.ErrInvalidState)
		}

		cat := catalog.New(tx.Products())
		ids := make([]string, 0)
		for _, li := range o.LineItems {
			ids = append(ids, li.ProductIDs...)
		}
		if err := cat.LockAll(ctx, ids); err != nil {
			return err
		}
		for _, li := range o.LineItems {
			units, err := m.assembler.Release(ctx, cat, li)
			if err != nil {
				return err
			}
			released = append(released, units...)
			if err := tx.Orders().DeleteLineItem(ctx, li.ID); err != nil {
				return fmt.Errorf("delete line item: %w", err)
			}
		}
		if err := tx.Orders().DeleteOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.invalidate(ctx, orderID)
	m.log.Info("order cancelled", zap.String("order_id", orderID), zap.Int("released_lines", len(released)))
	m.publish(ctx, domain.TopicOrderCancelled, domain.EventOrderCancelled, orderID,
		domain.OrderCancelledPayload{OrderID: orderID, Released: released})
	return nil
}

func (m *Manager) GetOrder(ctx context.Context, orderID string) (view domain.OrderView, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.get", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { m.finish(span, "get", err) }()

	if m.cache != nil {
		v, cerr := m.cache.GetOrderView(ctx, orderID)
		if cerr != nil {
			m.log.Warn("order view cache read failed", zap.String("order_id", orderID), zap.Error(cerr))
		} else if v != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return *v, nil
		}
	}

	var version int
	err = m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		o, err := tx.Orders().FindOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o == nil {
			return domain.NotFound("order", orderID)
		}
		view = domain.NewOrderView(*o)
		version = o.Version
		return nil
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	if m.cache != nil {
		m.fill(ctx, view, version)
	}
	return view, nil
}

// fill caches view, then re-reads the order's version. A writer that
// committed after our read either shows up in the re-read, and we drop the
// entry ourselves, or invalidates after our write.
func (m *Manager) fill(ctx context.Context, view domain.OrderView, version int) {
	if err := m.cache.SetOrderView(ctx, view); err != nil {
		m.log.Warn("order view cache write failed", zap.String("order_id", view.ID), zap.Error(err))
		return
	}
	current := -1
	err := m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		o, err := tx.Orders().FindOrder(ctx, view.ID)
		if err != nil || o == nil {
			return err
		}
		current = o.Version
		return nil
	})
	if err == nil && current == version {
		return
	}
	m.invalidate(ctx, view.ID)
}

// UpdateOrder applies a field patch and re-derives the totals from the
// current line items.
func (m *Manager) UpdateOrder(ctx context.Context, orderID string, patch OrderPatch) (order domain.Order, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.update", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { m.finish(span, "update", err) }()

	if patch.PlacedDate != nil && patch.PlacedDate.IsZero() {
		return domain.Order{}, fmt.Errorf("placed date must not be zero: %w", domain.ErrInvalidArgument)
	}

	err = m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		o, err := tx.Orders().FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o == nil {
			return domain.NotFound("order", orderID)
		}
		if !domain.CanTransition(o.Status, domain.StatusUpdated) {
			return fmt.Errorf("order %s: %s -> %s: %w", o.ID, o.Status, domain.StatusUpdated, domain.ErrInvalidState)
		}
		o.Status = domain.StatusUpdated
		if patch.PlacedDate != nil {
			o.PlacedDate = *patch.PlacedDate
		}
		o.TotalPrice, o.TotalQuantity = Aggregate(o.LineItems)
		o.Status = domain.StatusPlaced
		o.Version++
		o.UpdatedAt = m.now()
		if _, err := tx.Orders().SaveOrder(ctx, *o); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		order = *o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	m.invalidate(ctx, orderID)
	m.publish(ctx, domain.TopicOrderUpdated, domain.EventOrderUpdated, orderID, domain.OrderUpdatedPayload{
		OrderID:       order.ID,
		PlacedDate:    order.PlacedDate,
		TotalPrice:    order.TotalPrice,
		TotalQuantity: order.TotalQuantity,
	})
	return order, nil
}

// AddLineItem assembles a new line for an existing order. Under
// PolicyBestEffort a line that reserved nothing is not attached and the
// returned id is empty.
func (m *Manager) AddLineItem(ctx context.Context, orderID string, productIDs []string) (lineItemID string, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.add_line_item", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { m.finish(span, "add_line_item", err) }()

	if len(productIDs) == 0 {
		return "", fmt.Errorf("line item needs at least one product: %w", domain.ErrInvalidArgument)
	}

	var order domain.Order
	err = m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		lineItemID = ""
		o, err := tx.Orders().FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o == nil {
			return domain.NotFound("order", orderID)
		}
		if o.Status != domain.StatusPlaced {
			return fmt.Errorf("order %s is %s: %w", o.ID, o.Status, domain.ErrInvalidState)
		}

		cat := catalog.New(tx.Products())
		if err := cat.LockAll(ctx, productIDs); err != nil {
			return err
		}
		li, err := m.assembler.Assemble(ctx, cat, productIDs)
		if err != nil {
			return err
		}
		if li.QuantityReserved == 0 {
			order = *o
			return nil
		}

		li.ID = m.newID()
		li.OrderID = o.ID
		li.Position = nextPosition(o.LineItems)
		li.CreatedAt = m.now()
		if _, err := tx.Orders().SaveLineItem(ctx, li); err != nil {
			return fmt.Errorf("save line item: %w", err)
		}

		o.LineItems = append(o.LineItems, li)
		o.TotalPrice, o.TotalQuantity = Aggregate(o.LineItems)
		o.Version++
		o.UpdatedAt = m.now()
		if _, err := tx.Orders().SaveOrder(ctx, *o); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		lineItemID = li.ID
		order = *o
		return nil
	})
	if err != nil {
		return "", err
	}
	if lineItemID == "" {
		return "", nil
	}

	m.invalidate(ctx, orderID)
	m.log.Info("line item added", zap.String("order_id", orderID), zap.String("line_item_id", lineItemID))
	m.publish(ctx, domain.TopicOrderUpdated, domain.EventOrderUpdated, orderID, domain.OrderUpdatedPayload{
		OrderID:       order.ID,
		PlacedDate:    order.PlacedDate,
		TotalPrice:    order.TotalPrice,
		TotalQuantity: order.TotalQuantity,
	})
	return lineItemID, nil
}

// RemoveLineItem releases the line's reservations, detaches it from its
// order and re-derives the order totals.
func (m *Manager) RemoveLineItem(ctx context.Context, lineItemID string) (err error) {
	ctx, span := m.tracer.Start(ctx, "orders.remove_line_item", trace.WithAttributes(attribute.String("line_item.id", lineItemID)))
	defer func() { m.finish(span, "remove_line_item", err) }()

	var order domain.Order
	err = m.uow.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		found, err := tx.Orders().FindLineItem(ctx, lineItemID)
		if err != nil {
			return fmt.Errorf("find line item: %w", err)
		}
		if found == nil {
			return domain.NotFound("line item", lineItemID)
		}
		o, err := tx.Orders().FindOrderForUpdate(ctx, found.OrderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o == nil {
			return domain.NotFound("line item", lineItemID)
		}
		// re-read under the order lock; a concurrent removal may have won
		idx := o.LineItemIndex(lineItemID)
		if idx < 0 {
			return domain.NotFound("line item", lineItemID)
		}
		li := o.LineItems[idx]

		cat := catalog.New(tx.Products())
		if err := cat.LockAll(ctx, li.ProductIDs); err != nil {
			return err
		}
		if _, err := m.assembler.Release(ctx, cat, li); err != nil {
			return err
		}
		if err := tx.Orders().DeleteLineItem(ctx, li.ID); err != nil {
			return fmt.Errorf("delete line item: %w", err)
		}

		o.LineItems = append(o.LineItems[:idx:idx], o.LineItems[idx+1:]...)
		o.TotalPrice, o.TotalQuantity = Aggregate(o.LineItems)
		o.Version++
		o.UpdatedAt = m.now()
		if _, err := tx.Orders().SaveOrder(ctx, *o); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		order = *o
		return nil
	})
	if err != nil {
		return err
	}

	m.invalidate(ctx, order.ID)
	m.log.Info("line item removed", zap.String("order_id", order.ID), zap.String("line_item_id", lineItemID))
	m.publish(ctx, domain.TopicOrderUpdated, domain.EventOrderUpdated, order.ID, domain.OrderUpdatedPayload{
		OrderID:       order.ID,
		PlacedDate:    order.PlacedDate,
		TotalPrice:    order.TotalPrice,
		TotalQuantity: order.TotalQuantity,
	})
	return nil
}

func (m *Manager) finish(span trace.Span, op string, err error) {
	m.metrics.OrderOp(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !isExpected(err) {
			m.log.Error("order operation failed", zap.String("op", op), zap.Error(err))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *Manager) invalidate(ctx context.Context, orderID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.InvalidateOrderView(ctx, orderID); err != nil {
		m.log.Warn("order view cache invalidation failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

// publish is best effort: the state change is already committed.
func (m *Manager) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if m.events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("marshal event payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	env := domain.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    m.now().UTC(),
		Producer:      m.service,
		CorrelationID: orderID,
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	if err := m.events.Publish(ctx, topic, domain.PartitionKey(orderID), env); err != nil {
		m.log.Warn("publish event failed", zap.String("topic", topic), zap.String("order_id", orderID), zap.Error(err))
	}
}

func isExpected(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrInvalidArgument)
}

func placedPayload(o domain.Order) domain.OrderPlacedPayload {
	p := domain.OrderPlacedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		PlacedDate:    o.PlacedDate,
		TotalPrice:    o.TotalPrice,
		TotalQuantity: o.TotalQuantity,
		Lines:         make([]domain.LineSummary, 0, len(o.LineItems)),
	}
	for _, li := range o.LineItems {
		p.Lines = append(p.Lines, domain.LineSummary{
			LineItemID:       li.ID,
			QuantityReserved: li.QuantityReserved,
			PricePerUnit:     li.PricePerUnit,
		})
	}
	return p
}

func allProductIDs(lines []LineSpec) []string {
	var ids []string
	for _, l := range lines {
		ids = append(ids, l.ProductIDs...)
	}
	return ids
}

func nextPosition(lines []domain.LineItem) int {
	next := 0
	for _, li := range lines {
		if li.Position >= next {
			next = li.Position + 1
		}
	}
	return next
}
