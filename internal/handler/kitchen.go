package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/service"
	"go.uber.org/zap"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
type KitchenServicer interface {
	StartOrderPreparation(ctx context.Context, tenant service.Tenant, id uuid.UUID, estimatedMinutes *int32) (database.Order, error)
	CompleteOrderPreparation(ctx context.Context, tenant service.Tenant, id uuid.UUID, kitchenNotes *string) (database.Order, error)
	UpdateOrderItemPreparation(ctx context.Context, tenant service.Tenant, itemID uuid.UUID, req service.ItemPrepUpdate) (database.OrderItem, error)
	GetCurrentPrepQueue(ctx context.Context, tenant service.Tenant) ([]service.QueueEntry, error)
	GetKitchenPerformanceMetrics(ctx context.Context, tenant service.Tenant, from time.Time, to *time.Time) (*service.KitchenMetrics, error)
}

// KitchenHandler handles kitchen display endpoints.
type KitchenHandler struct {
	svc    KitchenServicer
	logger *zap.Logger
	now    func() time.Time
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(svc KitchenServicer, logger *zap.Logger) *KitchenHandler {
	return &KitchenHandler{svc: svc, logger: logger, now: time.Now}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/kitchen
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/queue", h.Queue)
	r.Get("/performance", h.Performance)
	r.Post("/orders/{id}/start", h.Start)
	r.Post("/orders/{id}/complete", h.Complete)
	r.Patch("/order-items/{itemID}", h.UpdateItem)
}

// --- Request / Response types ---

type startPrepRequest struct {
	EstimatedPrepMinutes *int32 `json:"estimated_prep_minutes"`
}

type completePrepRequest struct {
	KitchenNotes *string `json:"kitchen_notes"`
}

type itemPrepRequest struct {
	PrepStartTime    *time.Time `json:"prep_start_time"`
	PrepCompleteTime *time.Time `json:"prep_complete_time"`
	KitchenNotes     *string    `json:"kitchen_notes"`
}

// --- Handlers ---

// Queue handles GET /restaurants/{rid}/kitchen/queue.
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	queue, err := h.svc.GetCurrentPrepQueue(r.Context(), tenant)
	if err != nil {
		writeServiceError(w, h.logger, "kitchen queue", err)
		return
	}
	if queue == nil {
		queue = []service.QueueEntry{}
	}

	writeJSON(w, http.StatusOK, queue)
}

// Start handles POST /restaurants/{rid}/kitchen/orders/{id}/start. The body is optional.
func (h *KitchenHandler) Start(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req startPrepRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	order, err := h.svc.StartOrderPreparation(r.Context(), tenant, id, req.EstimatedPrepMinutes)
	if err != nil {
		writeServiceError(w, h.logger, "start preparation", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Complete handles POST /restaurants/{rid}/kitchen/orders/{id}/complete. The body is optional.
func (h *KitchenHandler) Complete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req completePrepRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	order, err := h.svc.CompleteOrderPreparation(r.Context(), tenant, id, req.KitchenNotes)
	if err != nil {
		writeServiceError(w, h.logger, "complete preparation", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateItem handles PATCH /restaurants/{rid}/kitchen/order-items/{itemID}.
func (h *KitchenHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(w, r, "itemID", "order item ID")
	if !ok {
		return
	}

	var req itemPrepRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := h.svc.UpdateOrderItemPreparation(r.Context(), tenant, itemID, service.ItemPrepUpdate{
		PrepStartTime:    req.PrepStartTime,
		PrepCompleteTime: req.PrepCompleteTime,
		KitchenNotes:     req.KitchenNotes,
	})
	if err != nil {
		writeServiceError(w, h.logger, "update order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderItemResponse(item, nil))
}

// Performance handles GET /restaurants/{rid}/kitchen/performance?from=&to=.
// from defaults to the start of the current UTC day; to defaults to now.
func (h *KitchenHandler) Performance(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from := h.now().UTC().Truncate(24 * time.Hour)
	if s := q.Get("from"); s != "" {
		t, err := parseTimeParam(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid from, use RFC 3339 or YYYY-MM-DD")
			return
		}
		from = t
	}
	var to *time.Time
	if s := q.Get("to"); s != "" {
		t, err := parseTimeParam(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid to, use RFC 3339 or YYYY-MM-DD")
			return
		}
		to = &t
	}

	metrics, err := h.svc.GetKitchenPerformanceMetrics(r.Context(), tenant, from, to)
	if err != nil {
		writeServiceError(w, h.logger, "kitchen performance", err)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}
