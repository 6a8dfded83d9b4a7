package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"github.com/tablekit/restaurant-api/internal/events"
	"go.uber.org/zap"
)

const (
	maxOrderNumberRetries = 3

	defaultListLimit = 20
	maxListLimit     = 100
)

// DefaultTaxRate applies when no tax rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.085")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CatalogStore
	CountOrdersCreatedBetween(ctx context.Context, arg database.CountOrdersCreatedBetweenParams) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemModifier, error)
	ListPaymentsByOrder(ctx context.Context, arg database.ListPaymentsByOrderParams) ([]database.Payment, error)
	UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderConfig carries the process-level knobs of the order lifecycle.
type OrderConfig struct {
	TaxRate  decimal.Decimal
	CacheTTL time.Duration
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	OrderType           database.OrderType
	CustomerName        string
	CustomerPhone       string
	CustomerEmail       string
	SpecialInstructions string
	RequestedTime       *time.Time
	TipAmount           decimal.Decimal
	TableID             *uuid.UUID
	ReservationID       *uuid.UUID
	QrSessionID         *uuid.UUID
	OrderMetadata       map[string]interface{}
	Items               []ItemRequest
}

// UpdateOrderRequest changes descriptive fields only. Nil leaves a field as is.
type UpdateOrderRequest struct {
	CustomerName        *string
	CustomerPhone       *string
	CustomerEmail       *string
	SpecialInstructions *string
	RequestedTime       *time.Time
	TipAmount           *decimal.Decimal
	TableID             *uuid.UUID
	OrderMetadata       map[string]interface{}
}

type UpdateStatusRequest struct {
	Status             database.OrderStatus
	KitchenNotes       *string
	EstimatedReadyTime *time.Time
}

// OrderFilter narrows ListOrders. Zero values mean "no filter".
type OrderFilter struct {
	Status    *database.OrderStatus `json:"status,omitempty"`
	OrderType *database.OrderType   `json:"order_type,omitempty"`
	Customer  string                `json:"customer,omitempty"`
	DateFrom  *time.Time            `json:"date_from,omitempty"`
	DateTo    *time.Time            `json:"date_to,omitempty"`
	MinAmount *decimal.Decimal      `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal      `json:"max_amount,omitempty"`
	Limit     int32                 `json:"limit"`
	Offset    int32                 `json:"offset"`
}

// OrderDetail is an order with its items, their modifiers and its payments.
type OrderDetail struct {
	Order    database.Order     `json:"order"`
	Items    []OrderItemResult  `json:"items"`
	Payments []database.Payment `json:"payments"`
}

// OrderItemResult is an item with its modifiers.
type OrderItemResult struct {
	Item      database.OrderItem           `json:"item"`
	Modifiers []database.OrderItemModifier `json:"modifiers"`
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	fx       effects
	taxRate  decimal.Decimal
	cacheTTL time.Duration
	now      func() time.Time
}

// NewOrderService creates a new OrderService. store serves reads and
// single-statement writes; newStore binds a store to a transaction.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, c cache.Cache, publisher events.Publisher, logger *zap.Logger, cfg OrderConfig) *OrderService {
	if cfg.TaxRate.IsZero() {
		cfg.TaxRate = DefaultTaxRate
	}
	return &OrderService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		fx:       effects{cache: c, publisher: publisher, logger: logger},
		taxRate:  cfg.TaxRate,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
	}
}

// CreateOrder validates, prices and inserts an order with its items and
// modifiers in one transaction. Retries up to maxOrderNumberRetries times on
// order_number unique constraint violations.
func (s *OrderService) CreateOrder(ctx context.Context, tenant Tenant, req CreateOrderRequest) (*OrderDetail, error) {
	if !req.OrderType.Valid() {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.TipAmount.IsNegative() {
		return nil, ErrInvalidTip
	}
	if !isCents(req.TipAmount) {
		return nil, fmt.Errorf("tip_amount: %w", ErrInvalidPrecision)
	}
	metadata, err := encodeMetadata(req.OrderMetadata)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, tenant, req, metadata)
		if err == nil {
			s.fx.clear(ctx,
				cache.OrderListPattern(tenant.OrganizationID, tenant.RestaurantID),
				cache.KitchenPattern(tenant.OrganizationID, tenant.RestaurantID),
			)
			s.fx.publish(ctx, enum.EventOrderCreated, tenant, result.Order.ID, map[string]interface{}{
				"order_number": result.Order.OrderNumber,
				"order_type":   result.Order.OrderType,
				"status":       result.Order.Status,
				"total_amount": numericToDecimal(result.Order.TotalAmount).StringFixed(2),
			})
			return result, nil
		}
		if isOrderNumberConflict(err) {
			s.fx.logger.Info("order number conflict, retrying",
				zap.Int("attempt", attempt+1),
				zap.String("restaurant_id", tenant.RestaurantID.String()),
			)
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_restaurant_id_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, tenant Tenant, req CreateOrderRequest, metadata []byte) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	now := s.now().UTC()

	// --- Order number ---
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := store.CountOrdersCreatedBetween(ctx, database.CountOrdersCreatedBetweenParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Start:          dayStart,
		End:            dayStart.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("count today's orders: %w", err)
	}
	orderNumber := formatOrderNumber(now, count+1, rand.Intn(100))

	// --- Pricing ---
	pricing, err := NewPricingCalculator(store, s.fx.logger).CalculatePricing(ctx, tenant, req.Items)
	if err != nil {
		return nil, err
	}
	taxAmount := pricing.Subtotal.Mul(s.taxRate).Round(2)
	totalAmount := pricing.Subtotal.Add(taxAmount)

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrganizationID:      tenant.OrganizationID,
		RestaurantID:        tenant.RestaurantID,
		OrderNumber:         orderNumber,
		OrderType:           req.OrderType,
		CustomerName:        textOrNull(req.CustomerName),
		CustomerPhone:       textOrNull(req.CustomerPhone),
		CustomerEmail:       textOrNull(req.CustomerEmail),
		Subtotal:            decimalToNumeric(pricing.Subtotal),
		TaxAmount:           decimalToNumeric(taxAmount),
		TipAmount:           decimalToNumeric(req.TipAmount),
		TotalAmount:         decimalToNumeric(totalAmount),
		RequestedTime:       timePtr(req.RequestedTime),
		SpecialInstructions: textOrNull(req.SpecialInstructions),
		TableID:             uuidPtr(req.TableID),
		ReservationID:       uuidPtr(req.ReservationID),
		QrSessionID:         uuidPtr(req.QrSessionID),
		OrderMetadata:       metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	itemResults := make([]OrderItemResult, 0, len(pricing.Items))
	for _, pi := range pricing.Items {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:             order.ID,
			MenuItemID:          pi.MenuItemID,
			MenuItemName:        pi.Name,
			MenuItemDescription: pi.Description,
			Quantity:            pi.Quantity,
			UnitPrice:           decimalToNumeric(pi.UnitPrice),
			TotalPrice:          decimalToNumeric(pi.TotalPrice),
			SpecialInstructions: textOrNull(pi.SpecialInstructions),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var modResults []database.OrderItemModifier
		for _, mod := range pi.Modifiers {
			oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID:  item.ID,
				ModifierID:   mod.ModifierID,
				ModifierName: mod.Name,
				UnitPrice:    decimalToNumeric(mod.UnitPrice),
				Quantity:     mod.Quantity,
				TotalPrice:   decimalToNumeric(mod.TotalPrice),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			modResults = append(modResults, oim)
		}

		itemResults = append(itemResults, OrderItemResult{Item: item, Modifiers: modResults})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{Order: order, Items: itemResults}, nil
}

// formatOrderNumber renders ORD-YYYYMMDD-NNNN-mmmrr: the daily sequence plus
// the millisecond fraction and a two-digit random suffix.
func formatOrderNumber(now time.Time, seq int64, suffix int) string {
	return fmt.Sprintf("ORD-%s-%04d-%03d%02d",
		now.Format("20060102"), seq, now.Nanosecond()/int(time.Millisecond), suffix%100)
}

// GetOrder returns the order detail, serving from cache when possible.
func (s *OrderService) GetOrder(ctx context.Context, tenant Tenant, id uuid.UUID) (*OrderDetail, error) {
	key := cache.OrderKey(tenant.OrganizationID, tenant.RestaurantID, id)
	var cached OrderDetail
	if s.fx.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	order, err := fetchOrder(ctx, s.store, tenant, id)
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	payments, err := s.store.ListPaymentsByOrder(ctx, database.ListPaymentsByOrderParams{
		OrderID:        order.ID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	detail := &OrderDetail{Order: order, Items: items, Payments: payments}
	s.fx.cacheSet(ctx, key, detail, s.cacheTTL)
	return detail, nil
}

type orderGetter interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
}

// fetchOrder reads the order fresh from the store, mapping a missing row
// to ErrOrderNotFound.
func fetchOrder(ctx context.Context, store orderGetter, tenant Tenant, id uuid.UUID) (database.Order, error) {
	order, err := store.GetOrder(ctx, database.GetOrderParams{
		ID:             id,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (s *OrderService) loadItems(ctx context.Context, orderID uuid.UUID) ([]OrderItemResult, error) {
	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	mods, err := s.store.ListOrderItemModifiersByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order item modifiers: %w", err)
	}

	byItem := make(map[uuid.UUID][]database.OrderItemModifier, len(items))
	for _, m := range mods {
		byItem[m.OrderItemID] = append(byItem[m.OrderItemID], m)
	}

	results := make([]OrderItemResult, 0, len(items))
	for _, item := range items {
		results = append(results, OrderItemResult{Item: item, Modifiers: byItem[item.ID]})
	}
	return results, nil
}

// ListOrders returns the tenant's orders matching filter, newest first.
func (s *OrderService) ListOrders(ctx context.Context, tenant Tenant, filter OrderFilter) ([]database.Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	if filter.OrderType != nil && !filter.OrderType.Valid() {
		return nil, ErrInvalidOrderType
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, ErrInvalidDateRange
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	key := cache.OrderListKey(tenant.OrganizationID, tenant.RestaurantID, filterHash(filter))
	var cached []database.Order
	if s.fx.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	params := database.ListOrdersParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Customer:       textOrNull(filter.Customer),
		StartDate:      timePtr(filter.DateFrom),
		EndDate:        timePtr(filter.DateTo),
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	if filter.Status != nil {
		params.Status = database.NullOrderStatus{OrderStatus: *filter.Status, Valid: true}
	}
	if filter.OrderType != nil {
		params.OrderType = database.NullOrderType{OrderType: *filter.OrderType, Valid: true}
	}
	if filter.MinAmount != nil {
		params.MinAmount = decimalToNumeric(*filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		params.MaxAmount = decimalToNumeric(*filter.MaxAmount)
	}

	orders, err := s.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []database.Order{}
	}

	s.fx.cacheSet(ctx, key, orders, s.cacheTTL)
	return orders, nil
}

func filterHash(f OrderFilter) string {
	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// UpdateOrder changes descriptive fields. Prices and status are untouched.
func (s *OrderService) UpdateOrder(ctx context.Context, tenant Tenant, id uuid.UUID, req UpdateOrderRequest) (database.Order, error) {
	params := database.UpdateOrderDetailsParams{
		ID:                  id,
		OrganizationID:      tenant.OrganizationID,
		RestaurantID:        tenant.RestaurantID,
		CustomerName:        textPtr(req.CustomerName),
		CustomerPhone:       textPtr(req.CustomerPhone),
		CustomerEmail:       textPtr(req.CustomerEmail),
		SpecialInstructions: textPtr(req.SpecialInstructions),
		RequestedTime:       timePtr(req.RequestedTime),
		TableID:             uuidPtr(req.TableID),
	}
	if req.TipAmount != nil {
		if req.TipAmount.IsNegative() {
			return database.Order{}, ErrInvalidTip
		}
		if !isCents(*req.TipAmount) {
			return database.Order{}, fmt.Errorf("tip_amount: %w", ErrInvalidPrecision)
		}
		params.TipAmount = decimalToNumeric(*req.TipAmount)
	}
	if req.OrderMetadata != nil {
		metadata, err := encodeMetadata(req.OrderMetadata)
		if err != nil {
			return database.Order{}, err
		}
		params.OrderMetadata = metadata
	}

	order, err := s.store.UpdateOrderDetails(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("update order: %w", err)
	}

	s.fx.invalidateOrder(ctx, tenant, order.ID)
	s.fx.publish(ctx, enum.EventOrderUpdated, tenant, order.ID, map[string]interface{}{
		"order_number": order.OrderNumber,
	})
	return order, nil
}

// UpdateOrderStatus sets any valid status. Only the value is checked, not
// the transition; kitchen and payment flows enforce the lifecycle.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, tenant Tenant, id uuid.UUID, req UpdateStatusRequest) (database.Order, error) {
	if !req.Status.Valid() {
		return database.Order{}, ErrInvalidOrderStatus
	}

	current, err := fetchOrder(ctx, s.store, tenant, id)
	if err != nil {
		return database.Order{}, err
	}

	params := database.UpdateOrderStatusParams{
		ID:                 current.ID,
		OrganizationID:     tenant.OrganizationID,
		RestaurantID:       tenant.RestaurantID,
		Status:             req.Status,
		KitchenNotes:       textPtr(req.KitchenNotes),
		EstimatedReadyTime: timePtr(req.EstimatedReadyTime),
	}
	if req.Status == database.OrderStatusReady && !current.ActualReadyTime.Valid {
		params.ActualReadyTime = timestamptz(s.now())
	}

	return s.writeStatus(ctx, tenant, current, params)
}

// CancelOrder moves the order to cancelled from whatever state it is in and
// records the reason in the kitchen notes.
func (s *OrderService) CancelOrder(ctx context.Context, tenant Tenant, id uuid.UUID, reason string) (database.Order, error) {
	current, err := fetchOrder(ctx, s.store, tenant, id)
	if err != nil {
		return database.Order{}, err
	}

	params := database.UpdateOrderStatusParams{
		ID:             current.ID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Status:         database.OrderStatusCancelled,
	}
	if reason != "" {
		params.KitchenNotes = appendNote(current.KitchenNotes, "Cancelled: "+reason)
	}

	return s.writeStatus(ctx, tenant, current, params)
}

func (s *OrderService) writeStatus(ctx context.Context, tenant Tenant, current database.Order, params database.UpdateOrderStatusParams) (database.Order, error) {
	order, err := s.store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.fx.invalidateOrder(ctx, tenant, order.ID)
	s.fx.publish(ctx, enum.EventOrderStatusChanged, tenant, order.ID, statusChange(current.Status, order))
	return order, nil
}

func statusChange(from database.OrderStatus, order database.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_number": order.OrderNumber,
		"from":         from,
		"to":           order.Status,
	}
}

// DuplicateOrder places a new pending order with the same type, customer,
// table and lines as an existing one, priced from the current menu.
func (s *OrderService) DuplicateOrder(ctx context.Context, tenant Tenant, id uuid.UUID) (*OrderDetail, error) {
	source, err := fetchOrder(ctx, s.store, tenant, id)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	req := CreateOrderRequest{
		OrderType:           source.OrderType,
		CustomerName:        source.CustomerName.String,
		CustomerPhone:       source.CustomerPhone.String,
		CustomerEmail:       source.CustomerEmail.String,
		SpecialInstructions: source.SpecialInstructions.String,
	}
	if source.TableID.Valid {
		tableID := uuid.UUID(source.TableID.Bytes)
		req.TableID = &tableID
	}

	for _, it := range items {
		line := ItemRequest{
			MenuItemID:          it.Item.MenuItemID,
			Quantity:            it.Item.Quantity,
			SpecialInstructions: it.Item.SpecialInstructions.String,
		}
		for _, m := range it.Modifiers {
			line.Modifiers = append(line.Modifiers, ModifierRequest{ModifierID: m.ModifierID, Quantity: m.Quantity})
		}
		req.Items = append(req.Items, line)
	}

	return s.CreateOrder(ctx, tenant, req)
}

// --- Helpers ---

func encodeMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return data, nil
}

func uuidPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
