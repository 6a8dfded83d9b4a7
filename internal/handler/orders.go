package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/service"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, tenant service.Tenant, req service.CreateOrderRequest) (*service.OrderDetail, error)
	GetOrder(ctx context.Context, tenant service.Tenant, id uuid.UUID) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, tenant service.Tenant, filter service.OrderFilter) ([]database.Order, error)
	UpdateOrder(ctx context.Context, tenant service.Tenant, id uuid.UUID, req service.UpdateOrderRequest) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, tenant service.Tenant, id uuid.UUID, req service.UpdateStatusRequest) (database.Order, error)
	CancelOrder(ctx context.Context, tenant service.Tenant, id uuid.UUID, reason string) (database.Order, error)
	DuplicateOrder(ctx context.Context, tenant service.Tenant, id uuid.UUID) (*service.OrderDetail, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/duplicate", h.Duplicate)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType           string                   `json:"order_type"`
	CustomerName        string                   `json:"customer_name"`
	CustomerPhone       string                   `json:"customer_phone"`
	CustomerEmail       string                   `json:"customer_email"`
	SpecialInstructions string                   `json:"special_instructions"`
	RequestedTime       *time.Time               `json:"requested_time"`
	TipAmount           decimal.Decimal          `json:"tip_amount"`
	TableID             *uuid.UUID               `json:"table_id"`
	ReservationID       *uuid.UUID               `json:"reservation_id"`
	QrSessionID         *uuid.UUID               `json:"qr_session_id"`
	OrderMetadata       map[string]interface{}   `json:"order_metadata"`
	Items               []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID          uuid.UUID                        `json:"menu_item_id"`
	Quantity            int32                            `json:"quantity"`
	SpecialInstructions string                           `json:"special_instructions"`
	Modifiers           []createOrderItemModifierRequest `json:"modifiers"`
}

type createOrderItemModifierRequest struct {
	ModifierID uuid.UUID `json:"modifier_id"`
	Quantity   int32     `json:"quantity"`
}

type updateOrderRequest struct {
	CustomerName        *string                `json:"customer_name"`
	CustomerPhone       *string                `json:"customer_phone"`
	CustomerEmail       *string                `json:"customer_email"`
	SpecialInstructions *string                `json:"special_instructions"`
	RequestedTime       *time.Time             `json:"requested_time"`
	TipAmount           *decimal.Decimal       `json:"tip_amount"`
	TableID             *uuid.UUID             `json:"table_id"`
	OrderMetadata       map[string]interface{} `json:"order_metadata"`
}

type updateStatusRequest struct {
	Status             string     `json:"status"`
	KitchenNotes       *string    `json:"kitchen_notes"`
	EstimatedReadyTime *time.Time `json:"estimated_ready_time"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	ID                  uuid.UUID           `json:"id"`
	RestaurantID        uuid.UUID           `json:"restaurant_id"`
	OrderNumber         string              `json:"order_number"`
	OrderType           string              `json:"order_type"`
	Status              string              `json:"status"`
	CustomerName        *string             `json:"customer_name"`
	CustomerPhone       *string             `json:"customer_phone"`
	CustomerEmail       *string             `json:"customer_email"`
	Subtotal            string              `json:"subtotal"`
	TaxAmount           string              `json:"tax_amount"`
	TipAmount           string              `json:"tip_amount"`
	TotalAmount         string              `json:"total_amount"`
	RequestedTime       *time.Time          `json:"requested_time"`
	EstimatedReadyTime  *time.Time          `json:"estimated_ready_time"`
	ActualReadyTime     *time.Time          `json:"actual_ready_time"`
	PrepTimeMinutes     *int32              `json:"prep_time_minutes"`
	SpecialInstructions *string             `json:"special_instructions"`
	KitchenNotes        *string             `json:"kitchen_notes"`
	TableID             *uuid.UUID          `json:"table_id"`
	ReservationID       *uuid.UUID          `json:"reservation_id"`
	QrSessionID         *uuid.UUID          `json:"qr_session_id"`
	OrderMetadata       json.RawMessage     `json:"order_metadata"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Items               []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID                  uuid.UUID                   `json:"id"`
	MenuItemID          uuid.UUID                   `json:"menu_item_id"`
	MenuItemName        string                      `json:"menu_item_name"`
	Quantity            int32                       `json:"quantity"`
	UnitPrice           string                      `json:"unit_price"`
	TotalPrice          string                      `json:"total_price"`
	SpecialInstructions *string                     `json:"special_instructions"`
	KitchenNotes        *string                     `json:"kitchen_notes"`
	PrepStartTime       *time.Time                  `json:"prep_start_time"`
	PrepCompleteTime    *time.Time                  `json:"prep_complete_time"`
	Modifiers           []orderItemModifierResponse `json:"modifiers"`
}

type orderItemModifierResponse struct {
	ID           uuid.UUID `json:"id"`
	ModifierID   uuid.UUID `json:"modifier_id"`
	ModifierName string    `json:"modifier_name"`
	Quantity     int32     `json:"quantity"`
	UnitPrice    string    `json:"unit_price"`
	TotalPrice   string    `json:"total_price"`
}

// orderDetailResponse extends orderResponse with payments for the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse `json:"payments"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

// --- Handlers ---

// Create handles POST /restaurants/{rid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderType == "" {
		writeMessage(w, http.StatusBadRequest, "order_type is required")
		return
	}

	svcReq := service.CreateOrderRequest{
		OrderType:           database.OrderType(req.OrderType),
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		CustomerEmail:       req.CustomerEmail,
		SpecialInstructions: req.SpecialInstructions,
		RequestedTime:       req.RequestedTime,
		TipAmount:           req.TipAmount,
		TableID:             req.TableID,
		ReservationID:       req.ReservationID,
		QrSessionID:         req.QrSessionID,
		OrderMetadata:       req.OrderMetadata,
		Items:               make([]service.ItemRequest, len(req.Items)),
	}
	for i, item := range req.Items {
		if item.MenuItemID == uuid.Nil {
			writeMessage(w, http.StatusBadRequest, "items["+strconv.Itoa(i)+"]: menu_item_id is required")
			return
		}
		svcItem := service.ItemRequest{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		}
		for _, m := range item.Modifiers {
			svcItem.Modifiers = append(svcItem.Modifiers, service.ModifierRequest{ModifierID: m.ModifierID, Quantity: m.Quantity})
		}
		svcReq.Items[i] = svcItem
	}

	detail, err := h.svc.CreateOrder(r.Context(), tenant, svcReq)
	if err != nil {
		writeServiceError(w, h.logger, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDetailResponse(detail))
}

// List handles GET /restaurants/{rid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter service.OrderFilter
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			filter.Limit = int32(v)
		}
	}
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			filter.Offset = int32(v)
		}
	}
	if s := q.Get("status"); s != "" {
		status := database.OrderStatus(s)
		filter.Status = &status
	}
	if s := q.Get("order_type"); s != "" {
		orderType := database.OrderType(s)
		filter.OrderType = &orderType
	}
	filter.Customer = q.Get("customer")
	if s := q.Get("date_from"); s != "" {
		t, err := parseTimeParam(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid date_from, use RFC 3339 or YYYY-MM-DD")
			return
		}
		filter.DateFrom = &t
	}
	if s := q.Get("date_to"); s != "" {
		t, err := parseTimeParam(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid date_to, use RFC 3339 or YYYY-MM-DD")
			return
		}
		filter.DateTo = &t
	}
	if s := q.Get("min_amount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid min_amount")
			return
		}
		filter.MinAmount = &d
	}
	if s := q.Get("max_amount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid max_amount")
			return
		}
		filter.MaxAmount = &d
	}

	orders, err := h.svc.ListOrders(r.Context(), tenant, filter)
	if err != nil {
		writeServiceError(w, h.logger, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: filter.Offset})
}

// Get handles GET /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	detail, err := h.svc.GetOrder(r.Context(), tenant, id)
	if err != nil {
		writeServiceError(w, h.logger, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// Update handles PATCH /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), tenant, id, service.UpdateOrderRequest{
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		CustomerEmail:       req.CustomerEmail,
		SpecialInstructions: req.SpecialInstructions,
		RequestedTime:       req.RequestedTime,
		TipAmount:           req.TipAmount,
		TableID:             req.TableID,
		OrderMetadata:       req.OrderMetadata,
	})
	if err != nil {
		writeServiceError(w, h.logger, "update order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PATCH /restaurants/{rid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeMessage(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.svc.UpdateOrderStatus(r.Context(), tenant, id, service.UpdateStatusRequest{
		Status:             database.OrderStatus(req.Status),
		KitchenNotes:       req.KitchenNotes,
		EstimatedReadyTime: req.EstimatedReadyTime,
	})
	if err != nil {
		writeServiceError(w, h.logger, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Cancel handles POST /restaurants/{rid}/orders/{id}/cancel. The body is optional.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req cancelRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	order, err := h.svc.CancelOrder(r.Context(), tenant, id, req.Reason)
	if err != nil {
		writeServiceError(w, h.logger, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Duplicate handles POST /restaurants/{rid}/orders/{id}/duplicate.
func (h *OrderHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	detail, err := h.svc.DuplicateOrder(r.Context(), tenant, id)
	if err != nil {
		writeServiceError(w, h.logger, "duplicate order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDetailResponse(detail))
}

// --- Helpers ---

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                  o.ID,
		RestaurantID:        o.RestaurantID,
		OrderNumber:         o.OrderNumber,
		OrderType:           string(o.OrderType),
		Status:              string(o.Status),
		CustomerName:        textOrNil(o.CustomerName),
		CustomerPhone:       textOrNil(o.CustomerPhone),
		CustomerEmail:       textOrNil(o.CustomerEmail),
		Subtotal:            numericToString(o.Subtotal),
		TaxAmount:           numericToString(o.TaxAmount),
		TipAmount:           numericToString(o.TipAmount),
		TotalAmount:         numericToString(o.TotalAmount),
		RequestedTime:       timeOrNil(o.RequestedTime),
		EstimatedReadyTime:  timeOrNil(o.EstimatedReadyTime),
		ActualReadyTime:     timeOrNil(o.ActualReadyTime),
		SpecialInstructions: textOrNil(o.SpecialInstructions),
		KitchenNotes:        textOrNil(o.KitchenNotes),
		TableID:             uuidOrNil(o.TableID),
		ReservationID:       uuidOrNil(o.ReservationID),
		QrSessionID:         uuidOrNil(o.QrSessionID),
		OrderMetadata:       rawJSON(o.OrderMetadata),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	if o.PrepTimeMinutes.Valid {
		resp.PrepTimeMinutes = &o.PrepTimeMinutes.Int32
	}
	return resp
}

func toOrderDetailResponse(detail *service.OrderDetail) orderDetailResponse {
	resp := orderDetailResponse{orderResponse: toOrderResponse(detail.Order)}

	resp.Items = make([]orderItemResponse, len(detail.Items))
	for i, ir := range detail.Items {
		resp.Items[i] = toOrderItemResponse(ir.Item, ir.Modifiers)
	}

	resp.Payments = make([]paymentResponse, len(detail.Payments))
	for i, p := range detail.Payments {
		resp.Payments[i] = toPaymentResponse(p)
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem, mods []database.OrderItemModifier) orderItemResponse {
	resp := orderItemResponse{
		ID:                  item.ID,
		MenuItemID:          item.MenuItemID,
		MenuItemName:        item.MenuItemName,
		Quantity:            item.Quantity,
		UnitPrice:           numericToString(item.UnitPrice),
		TotalPrice:          numericToString(item.TotalPrice),
		SpecialInstructions: textOrNil(item.SpecialInstructions),
		KitchenNotes:        textOrNil(item.KitchenNotes),
		PrepStartTime:       timeOrNil(item.PrepStartTime),
		PrepCompleteTime:    timeOrNil(item.PrepCompleteTime),
	}

	resp.Modifiers = make([]orderItemModifierResponse, len(mods))
	for j, mod := range mods {
		resp.Modifiers[j] = orderItemModifierResponse{
			ID:           mod.ID,
			ModifierID:   mod.ModifierID,
			ModifierName: mod.ModifierName,
			Quantity:     mod.Quantity,
			UnitPrice:    numericToString(mod.UnitPrice),
			TotalPrice:   numericToString(mod.TotalPrice),
		}
	}
	return resp
}
