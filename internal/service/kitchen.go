package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"github.com/tablekit/restaurant-api/internal/events"
	"go.uber.org/zap"
)

const defaultRemainingMinutes = 15

// KitchenStore defines the DB methods needed by the kitchen workflow.
// Satisfied by *database.Queries.
type KitchenStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderItemPreparation(ctx context.Context, arg database.UpdateOrderItemPreparationParams) (database.OrderItem, error)
	ListKitchenQueueOrders(ctx context.Context, arg database.ListKitchenQueueOrdersParams) ([]database.Order, error)
	ListOrdersCreatedBetween(ctx context.Context, arg database.ListOrdersCreatedBetweenParams) ([]database.Order, error)
}

// ItemPrepUpdate sets per-item preparation fields. Nil leaves a field as is.
type ItemPrepUpdate struct {
	PrepStartTime    *time.Time
	PrepCompleteTime *time.Time
	KitchenNotes     *string
}

// QueueEntry is one order on the kitchen display.
type QueueEntry struct {
	OrderID                   uuid.UUID            `json:"order_id"`
	OrderNumber               string               `json:"order_number"`
	OrderType                 database.OrderType   `json:"order_type"`
	Status                    database.OrderStatus `json:"status"`
	CustomerName              string               `json:"customer_name,omitempty"`
	SpecialInstructions       string               `json:"special_instructions,omitempty"`
	CreatedAt                 time.Time            `json:"created_at"`
	EstimatedReadyTime        *time.Time           `json:"estimated_ready_time,omitempty"`
	ElapsedMinutes            int                  `json:"elapsed_minutes"`
	EstimatedRemainingMinutes int                  `json:"estimated_remaining_minutes"`
	Priority                  int                  `json:"priority"`
}

type PeakHour struct {
	Hour       int `json:"hour"`
	OrderCount int `json:"order_count"`
}

type KitchenMetrics struct {
	From               time.Time  `json:"from"`
	To                 time.Time  `json:"to"`
	TotalOrders        int        `json:"total_orders"`
	AveragePrepMinutes float64    `json:"average_prep_minutes"`
	OnTimePercentage   float64    `json:"on_time_percentage"`
	PeakHours          []PeakHour `json:"peak_hours"`
}

// KitchenService tracks preparation of confirmed orders.
type KitchenService struct {
	store    KitchenStore
	fx       effects
	queueTTL time.Duration
	now      func() time.Time
}

func NewKitchenService(store KitchenStore, c cache.Cache, publisher events.Publisher, logger *zap.Logger, queueTTL time.Duration) *KitchenService {
	return &KitchenService{
		store:    store,
		fx:       effects{cache: c, publisher: publisher, logger: logger},
		queueTTL: queueTTL,
		now:      time.Now,
	}
}

// StartOrderPreparation moves a confirmed order to preparing. When
// estimatedMinutes is given the ready estimate is now + minutes.
func (s *KitchenService) StartOrderPreparation(ctx context.Context, tenant Tenant, id uuid.UUID, estimatedMinutes *int32) (database.Order, error) {
	if estimatedMinutes != nil && *estimatedMinutes < 0 {
		return database.Order{}, fmt.Errorf("%w: estimated_prep_minutes must be >= 0", ErrValidation)
	}

	current, err := fetchOrder(ctx, s.store, tenant, id)
	if err != nil {
		return database.Order{}, err
	}
	if !CanTransition(current.Status, database.OrderStatusPreparing) {
		return database.Order{}, ErrOrderNotConfirmed
	}

	params := database.UpdateOrderStatusParams{
		ID:             current.ID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Status:         database.OrderStatusPreparing,
		ExpectedStatus: database.NullOrderStatus{OrderStatus: database.OrderStatusConfirmed, Valid: true},
	}
	if estimatedMinutes != nil {
		params.PrepTimeMinutes = pgtype.Int4{Int32: *estimatedMinutes, Valid: true}
		params.EstimatedReadyTime = timestamptz(s.now().Add(time.Duration(*estimatedMinutes) * time.Minute))
	}

	return s.transition(ctx, tenant, current, params, ErrOrderNotConfirmed)
}

// CompleteOrderPreparation moves a preparing order to ready and stamps the
// actual ready time the first time it happens.
func (s *KitchenService) CompleteOrderPreparation(ctx context.Context, tenant Tenant, id uuid.UUID, kitchenNotes *string) (database.Order, error) {
	current, err := fetchOrder(ctx, s.store, tenant, id)
	if err != nil {
		return database.Order{}, err
	}
	if !CanTransition(current.Status, database.OrderStatusReady) {
		return database.Order{}, ErrOrderNotPreparing
	}

	params := database.UpdateOrderStatusParams{
		ID:              current.ID,
		OrganizationID:  tenant.OrganizationID,
		RestaurantID:    tenant.RestaurantID,
		Status:          database.OrderStatusReady,
		KitchenNotes:    textPtr(kitchenNotes),
		ActualReadyTime: timestamptz(s.now()),
		ExpectedStatus:  database.NullOrderStatus{OrderStatus: database.OrderStatusPreparing, Valid: true},
	}

	return s.transition(ctx, tenant, current, params, ErrOrderNotPreparing)
}

// transition applies a guarded status update. A row that changed status
// since it was read comes back as pgx.ErrNoRows and is reported as stateErr.
func (s *KitchenService) transition(ctx context.Context, tenant Tenant, current database.Order, params database.UpdateOrderStatusParams, stateErr error) (database.Order, error) {
	order, err := s.store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, stateErr
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.fx.invalidateOrder(ctx, tenant, order.ID)
	s.fx.publish(ctx, enum.EventOrderStatusChanged, tenant, order.ID, statusChange(current.Status, order))
	return order, nil
}

// UpdateOrderItemPreparation writes per-item kitchen fields without any
// status check.
func (s *KitchenService) UpdateOrderItemPreparation(ctx context.Context, tenant Tenant, itemID uuid.UUID, req ItemPrepUpdate) (database.OrderItem, error) {
	item, err := s.store.UpdateOrderItemPreparation(ctx, database.UpdateOrderItemPreparationParams{
		ID:               itemID,
		OrganizationID:   tenant.OrganizationID,
		RestaurantID:     tenant.RestaurantID,
		KitchenNotes:     textPtr(req.KitchenNotes),
		PrepStartTime:    timePtr(req.PrepStartTime),
		PrepCompleteTime: timePtr(req.PrepCompleteTime),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrOrderItemNotFound
		}
		return database.OrderItem{}, fmt.Errorf("update order item: %w", err)
	}

	s.fx.invalidateOrder(ctx, tenant, item.OrderID)
	s.fx.publish(ctx, enum.EventOrderItemUpdated, tenant, item.OrderID, map[string]interface{}{
		"order_item_id":      item.ID,
		"prep_start_time":    item.PrepStartTime,
		"prep_complete_time": item.PrepCompleteTime,
	})
	return item, nil
}

// GetCurrentPrepQueue lists confirmed and preparing orders, most urgent first.
func (s *KitchenService) GetCurrentPrepQueue(ctx context.Context, tenant Tenant) ([]QueueEntry, error) {
	key := cache.KitchenQueueKey(tenant.OrganizationID, tenant.RestaurantID)
	var cached []QueueEntry
	if s.fx.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	orders, err := s.store.ListKitchenQueueOrders(ctx, database.ListKitchenQueueOrdersParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		return nil, fmt.Errorf("list kitchen queue: %w", err)
	}

	now := s.now()
	queue := make([]QueueEntry, 0, len(orders))
	for _, o := range orders {
		queue = append(queue, s.queueEntry(o, now))
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Priority > queue[j].Priority
	})

	s.fx.cacheSet(ctx, key, queue, s.queueTTL)
	return queue, nil
}

func (s *KitchenService) queueEntry(o database.Order, now time.Time) QueueEntry {
	elapsed := now.Sub(o.CreatedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := defaultRemainingMinutes
	var eta *time.Time
	if o.EstimatedReadyTime.Valid {
		t := o.EstimatedReadyTime.Time
		eta = &t
		remaining = int(t.Sub(now).Minutes())
		if remaining < 0 {
			remaining = 0
		}
	}

	priority := orderPriority(o.OrderType, elapsed, o.SpecialInstructions.Valid && o.SpecialInstructions.String != "")
	if override, ok := s.priorityOverride(o); ok {
		priority = override
	}

	return QueueEntry{
		OrderID:                   o.ID,
		OrderNumber:               o.OrderNumber,
		OrderType:                 o.OrderType,
		Status:                    o.Status,
		CustomerName:              o.CustomerName.String,
		SpecialInstructions:       o.SpecialInstructions.String,
		CreatedAt:                 o.CreatedAt,
		EstimatedReadyTime:        eta,
		ElapsedMinutes:            int(elapsed.Minutes()),
		EstimatedRemainingMinutes: remaining,
		Priority:                  priority,
	}
}

// orderPriority scores an order by type, time waited and whether it carries
// special instructions.
func orderPriority(orderType database.OrderType, waited time.Duration, hasInstructions bool) int {
	score := 1
	switch orderType {
	case database.OrderTypeDelivery:
		score = 3
	case database.OrderTypeTakeout:
		score = 2
	}

	switch {
	case waited > 30*time.Minute:
		score += 3
	case waited > 15*time.Minute:
		score += 2
	case waited > 5*time.Minute:
		score++
	}

	if hasInstructions {
		score++
	}
	return score
}

// priorityOverride reads order_metadata.kitchen_priority when it is a number.
func (s *KitchenService) priorityOverride(o database.Order) (int, bool) {
	if len(o.OrderMetadata) == 0 {
		return 0, false
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(o.OrderMetadata, &meta); err != nil {
		s.fx.logger.Debug("unreadable order metadata", zap.String("order_id", o.ID.String()), zap.Error(err))
		return 0, false
	}
	v, ok := meta["kitchen_priority"].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// GetKitchenPerformanceMetrics summarizes orders created in [from, to).
// A nil to means "until now".
func (s *KitchenService) GetKitchenPerformanceMetrics(ctx context.Context, tenant Tenant, from time.Time, to *time.Time) (*KitchenMetrics, error) {
	end := s.now()
	if to != nil {
		end = *to
	}
	if end.Before(from) {
		return nil, ErrInvalidDateRange
	}

	orders, err := s.store.ListOrdersCreatedBetween(ctx, database.ListOrdersCreatedBetweenParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Start:          from,
		End:            end,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	metrics := computeKitchenMetrics(orders)
	metrics.From = from
	metrics.To = end
	return metrics, nil
}

func computeKitchenMetrics(orders []database.Order) *KitchenMetrics {
	m := &KitchenMetrics{TotalOrders: len(orders), PeakHours: []PeakHour{}}

	var prepTotal float64
	var prepCount int
	var timed, onTime int
	hourly := make(map[int]int)

	for _, o := range orders {
		hourly[o.CreatedAt.Hour()]++

		if o.Status == database.OrderStatusDelivered && o.ActualReadyTime.Valid {
			prepTotal += o.ActualReadyTime.Time.Sub(o.CreatedAt).Minutes()
			prepCount++
		}
		if o.ActualReadyTime.Valid && o.EstimatedReadyTime.Valid {
			timed++
			if !o.ActualReadyTime.Time.After(o.EstimatedReadyTime.Time) {
				onTime++
			}
		}
	}

	if prepCount > 0 {
		m.AveragePrepMinutes = roundTo(prepTotal/float64(prepCount), 2)
	}
	if timed > 0 {
		m.OnTimePercentage = roundTo(float64(onTime)/float64(timed)*100, 2)
	}

	for hour, count := range hourly {
		m.PeakHours = append(m.PeakHours, PeakHour{Hour: hour, OrderCount: count})
	}
	sort.Slice(m.PeakHours, func(i, j int) bool {
		if m.PeakHours[i].OrderCount != m.PeakHours[j].OrderCount {
			return m.PeakHours[i].OrderCount > m.PeakHours[j].OrderCount
		}
		return m.PeakHours[i].Hour < m.PeakHours[j].Hour
	})
	if len(m.PeakHours) > 3 {
		m.PeakHours = m.PeakHours[:3]
	}
	return m
}

func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
