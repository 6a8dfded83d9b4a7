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

// PaymentServicer defines the service methods needed by payment handlers.
type PaymentServicer interface {
	ProcessPayment(ctx context.Context, tenant service.Tenant, orderID uuid.UUID, req service.PaymentRequest) (database.Payment, error)
	ProcessSplitPayment(ctx context.Context, tenant service.Tenant, orderID uuid.UUID, reqs []service.PaymentRequest) ([]database.Payment, error)
	ListOrderPayments(ctx context.Context, tenant service.Tenant, orderID uuid.UUID) ([]database.Payment, error)
	RefundPayment(ctx context.Context, tenant service.Tenant, paymentID uuid.UUID, amount decimal.Decimal, reason string) (database.Payment, error)
	GetPaymentSummary(ctx context.Context, tenant service.Tenant, from, to time.Time) (*service.PaymentSummary, error)
	GetDailyTotals(ctx context.Context, tenant service.Tenant, from, to time.Time) ([]service.DailyTotals, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc    PaymentServicer
	logger *zap.Logger
	now    func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, logger: logger, now: time.Now}
}

// RegisterOrderRoutes registers endpoints nested under an order.
// Expected to be mounted at /restaurants/{rid}/orders/{id}/payments
func (h *PaymentHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/", h.Process)
	r.Post("/split", h.ProcessSplit)
	r.Get("/", h.List)
}

// RegisterRoutes registers restaurant-wide payment endpoints.
// Expected to be mounted at /restaurants/{rid}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/daily-totals", h.DailyTotals)
	r.Post("/{pid}/refund", h.Refund)
}

// --- Request / Response types ---

type paymentRequest struct {
	Amount        string                 `json:"amount"`
	TipAmount     string                 `json:"tip_amount"`
	PaymentMethod string                 `json:"payment_method"`
	Notes         string                 `json:"notes"`
	Metadata      map[string]interface{} `json:"payment_metadata"`
}

type splitPaymentRequest struct {
	Payments []paymentRequest `json:"payments"`
}

type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type paymentResponse struct {
	ID                  uuid.UUID       `json:"id"`
	OrderID             uuid.UUID       `json:"order_id"`
	Amount              string          `json:"amount"`
	TipAmount           string          `json:"tip_amount"`
	PaymentMethod       string          `json:"payment_method"`
	Status              string          `json:"status"`
	TransactionID       *string         `json:"transaction_id"`
	Processor           *string         `json:"processor"`
	CardLastFour        *string         `json:"card_last_four"`
	CardBrand           *string         `json:"card_brand"`
	IsSplitPayment      bool            `json:"is_split_payment"`
	SplitPaymentGroupID *uuid.UUID      `json:"split_payment_group_id"`
	RefundAmount        *string         `json:"refund_amount"`
	RefundReason        *string         `json:"refund_reason"`
	RefundedAt          *time.Time      `json:"refunded_at"`
	ProcessedAt         *time.Time      `json:"processed_at"`
	Notes               *string         `json:"notes"`
	PaymentMetadata     json.RawMessage `json:"payment_metadata"`
	CreatedAt           time.Time       `json:"created_at"`
}

// --- Handlers ---

// Process handles POST /restaurants/{rid}/orders/{id}/payments.
// A declined payment is still recorded and returned with status "failed".
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	svcReq, msg := toServicePaymentRequest(req)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	payment, err := h.svc.ProcessPayment(r.Context(), tenant, orderID, svcReq)
	if err != nil {
		writeServiceError(w, h.logger, "process payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

// ProcessSplit handles POST /restaurants/{rid}/orders/{id}/payments/split.
func (h *PaymentHandler) ProcessSplit(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req splitPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Payments) == 0 {
		writeMessage(w, http.StatusBadRequest, "payments are required")
		return
	}

	reqs := make([]service.PaymentRequest, len(req.Payments))
	for i, p := range req.Payments {
		svcReq, msg := toServicePaymentRequest(p)
		if msg != "" {
			writeMessage(w, http.StatusBadRequest, "payments["+strconv.Itoa(i)+"]: "+msg)
			return
		}
		reqs[i] = svcReq
	}

	payments, err := h.svc.ProcessSplitPayment(r.Context(), tenant, orderID, reqs)
	if err != nil {
		writeServiceError(w, h.logger, "process split payment", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /restaurants/{rid}/orders/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	payments, err := h.svc.ListOrderPayments(r.Context(), tenant, orderID)
	if err != nil {
		writeServiceError(w, h.logger, "list payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refund handles POST /restaurants/{rid}/payments/{pid}/refund.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	paymentID, ok := parseUUIDParam(w, r, "pid", "payment ID")
	if !ok {
		return
	}

	var req refundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount == "" {
		writeMessage(w, http.StatusBadRequest, "amount is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid amount")
		return
	}

	payment, err := h.svc.RefundPayment(r.Context(), tenant, paymentID, amount, req.Reason)
	if err != nil {
		writeServiceError(w, h.logger, "refund payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

// Summary handles GET /restaurants/{rid}/payments/summary?from=&to=.
func (h *PaymentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.GetPaymentSummary(r.Context(), tenant, from, to)
	if err != nil {
		writeServiceError(w, h.logger, "payment summary", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// DailyTotals handles GET /restaurants/{rid}/payments/daily-totals?from=&to=.
func (h *PaymentHandler) DailyTotals(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	totals, err := h.svc.GetDailyTotals(r.Context(), tenant, from, to)
	if err != nil {
		writeServiceError(w, h.logger, "daily totals", err)
		return
	}

	writeJSON(w, http.StatusOK, totals)
}

// --- Helpers ---

// parseRange reads from/to query parameters. Missing values default to the
// last 30 days ending now.
func (h *PaymentHandler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	to := h.now()
	from := to.AddDate(0, 0, -30)

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := parseTimeParam(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid from, use RFC 3339 or YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := parseTimeParam(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid to, use RFC 3339 or YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	if !to.After(from) {
		writeMessage(w, http.StatusBadRequest, "to must be after from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// toServicePaymentRequest parses the string amounts. A non-empty message
// means the request is malformed.
func toServicePaymentRequest(req paymentRequest) (service.PaymentRequest, string) {
	if req.PaymentMethod == "" {
		return service.PaymentRequest{}, "payment_method is required"
	}
	if req.Amount == "" {
		return service.PaymentRequest{}, "amount is required"
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return service.PaymentRequest{}, "invalid amount"
	}
	tip := decimal.Zero
	if req.TipAmount != "" {
		tip, err = decimal.NewFromString(req.TipAmount)
		if err != nil {
			return service.PaymentRequest{}, "invalid tip_amount"
		}
	}
	return service.PaymentRequest{
		Amount:    amount,
		TipAmount: tip,
		Method:    database.PaymentMethod(req.PaymentMethod),
		Notes:     req.Notes,
		Metadata:  req.Metadata,
	}, ""
}

func toPaymentResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:                  p.ID,
		OrderID:             p.OrderID,
		Amount:              numericToString(p.Amount),
		TipAmount:           numericToString(p.TipAmount),
		PaymentMethod:       string(p.PaymentMethod),
		Status:              string(p.Status),
		TransactionID:       textOrNil(p.TransactionID),
		Processor:           textOrNil(p.Processor),
		CardLastFour:        textOrNil(p.CardLastFour),
		CardBrand:           textOrNil(p.CardBrand),
		IsSplitPayment:      p.IsSplitPayment,
		SplitPaymentGroupID: uuidOrNil(p.SplitPaymentGroupID),
		RefundReason:        textOrNil(p.RefundReason),
		RefundedAt:          timeOrNil(p.RefundedAt),
		ProcessedAt:         timeOrNil(p.ProcessedAt),
		Notes:               textOrNil(p.Notes),
		PaymentMetadata:     rawJSON(p.PaymentMetadata),
		CreatedAt:           p.CreatedAt,
	}
	if p.RefundAmount.Valid {
		s := numericToString(p.RefundAmount)
		resp.RefundAmount = &s
	}
	return resp
}
