package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"github.com/tablekit/restaurant-api/internal/events"
	"go.uber.org/zap"
)

// PaymentStore defines the DB methods needed by the payment processor.
// Satisfied by *database.Queries.
type PaymentStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ConfirmPendingOrder(ctx context.Context, arg database.ConfirmPendingOrderParams) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Payment, error)
	GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	ListPaymentsByOrder(ctx context.Context, arg database.ListPaymentsByOrderParams) ([]database.Payment, error)
	SumCompletedPaymentsByOrder(ctx context.Context, arg database.SumCompletedPaymentsByOrderParams) (pgtype.Numeric, error)
	RefundPayment(ctx context.Context, arg database.RefundPaymentParams) (database.Payment, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	GetDailyPaymentTotals(ctx context.Context, arg database.GetDailyPaymentTotalsParams) ([]database.GetDailyPaymentTotalsRow, error)
}

// PaymentRequest is one payment against an order.
type PaymentRequest struct {
	Amount    decimal.Decimal
	TipAmount decimal.Decimal
	Method    database.PaymentMethod
	Notes     string
	Metadata  map[string]interface{}
}

type MethodTotals struct {
	Method       database.PaymentMethod `json:"payment_method"`
	Count        int64                  `json:"count"`
	TotalAmount  decimal.Decimal        `json:"total_amount"`
	TotalTips    decimal.Decimal        `json:"total_tips"`
	TotalRefunds decimal.Decimal        `json:"total_refunds"`
	NetAmount    decimal.Decimal        `json:"net_amount"`
}

type PaymentSummary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Count        int64           `json:"count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalTips    decimal.Decimal `json:"total_tips"`
	TotalRefunds decimal.Decimal `json:"total_refunds"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	ByMethod     []MethodTotals  `json:"by_method"`
}

type DailyTotals struct {
	Date         string          `json:"date"`
	Count        int64           `json:"count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalTips    decimal.Decimal `json:"total_tips"`
	TotalRefunds decimal.Decimal `json:"total_refunds"`
	NetAmount    decimal.Decimal `json:"net_amount"`
}

// PaymentService records payments and confirms orders once they are paid.
type PaymentService struct {
	store   PaymentStore
	gateway PaymentGateway
	fx      effects
	now     func() time.Time
}

func NewPaymentService(store PaymentStore, gateway PaymentGateway, c cache.Cache, publisher events.Publisher, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
		fx:      effects{cache: c, publisher: publisher, logger: logger},
		now:     time.Now,
	}
}

// ProcessPayment records a payment and settles it: cash completes at once,
// other methods get one gateway attempt. A completed payment triggers the
// order completion check.
func (s *PaymentService) ProcessPayment(ctx context.Context, tenant Tenant, orderID uuid.UUID, req PaymentRequest) (database.Payment, error) {
	if err := validatePaymentRequest(req); err != nil {
		return database.Payment{}, err
	}
	if _, err := fetchOrder(ctx, s.store, tenant, orderID); err != nil {
		return database.Payment{}, err
	}
	return s.processPayment(ctx, tenant, orderID, req, pgtype.UUID{})
}

func validatePaymentRequest(req PaymentRequest) error {
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if req.TipAmount.IsNegative() {
		return ErrInvalidTip
	}
	if !isCents(req.Amount) {
		return fmt.Errorf("amount: %w", ErrInvalidPrecision)
	}
	if !isCents(req.TipAmount) {
		return fmt.Errorf("tip_amount: %w", ErrInvalidPrecision)
	}
	if !req.Method.Valid() {
		return ErrInvalidMethod
	}
	return nil
}

func (s *PaymentService) processPayment(ctx context.Context, tenant Tenant, orderID uuid.UUID, req PaymentRequest, group pgtype.UUID) (database.Payment, error) {
	metadata := []byte("{}")
	if req.Metadata != nil {
		data, err := json.Marshal(req.Metadata)
		if err != nil {
			return database.Payment{}, fmt.Errorf("%w: payment_metadata: %v", ErrValidation, err)
		}
		metadata = data
	}

	payment, err := s.store.CreatePayment(ctx, database.CreatePaymentParams{
		OrganizationID:      tenant.OrganizationID,
		RestaurantID:        tenant.RestaurantID,
		OrderID:             orderID,
		Amount:              decimalToNumeric(req.Amount),
		TipAmount:           decimalToNumeric(req.TipAmount),
		PaymentMethod:       req.Method,
		IsSplitPayment:      group.Valid,
		SplitPaymentGroupID: group,
		Notes:               textOrNull(req.Notes),
		PaymentMetadata:     metadata,
	})
	if err != nil {
		return database.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	if req.Method == database.PaymentMethodCash {
		payment, err = s.store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
			ID:            payment.ID,
			Status:        database.PaymentStatusCompleted,
			TransactionID: textOrNull("cash_" + cuid.New()),
			Processor:     textOrNull("cash"),
			ProcessedAt:   timestamptz(s.now()),
		})
		if err != nil {
			return database.Payment{}, fmt.Errorf("complete cash payment: %w", err)
		}
	} else {
		payment, err = s.charge(ctx, payment)
		if err != nil {
			return database.Payment{}, err
		}
	}

	s.fx.invalidateOrder(ctx, tenant, orderID)

	if payment.Status != database.PaymentStatusCompleted {
		s.fx.publish(ctx, enum.EventPaymentFailed, tenant, orderID, paymentPayload(payment))
		return payment, nil
	}

	s.fx.publish(ctx, enum.EventPaymentCompleted, tenant, orderID, paymentPayload(payment))
	if _, err := s.CheckOrderCompletion(ctx, tenant, orderID); err != nil {
		// The payment stays recorded.
		s.fx.logger.Error("order completion check failed",
			zap.String("order_id", orderID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
	return payment, nil
}

// charge moves a payment to processing and makes a single gateway attempt.
func (s *PaymentService) charge(ctx context.Context, payment database.Payment) (database.Payment, error) {
	txnID := "txn_" + cuid.New()
	payment, err := s.store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
		ID:            payment.ID,
		Status:        database.PaymentStatusProcessing,
		TransactionID: textOrNull(txnID),
	})
	if err != nil {
		return database.Payment{}, fmt.Errorf("mark payment processing: %w", err)
	}

	result, err := s.gateway.Charge(ctx, ChargeRequest{
		PaymentID:     payment.ID,
		TransactionID: txnID,
		Amount:        numericToDecimal(payment.Amount),
		Method:        payment.PaymentMethod,
	})
	if err != nil {
		s.fx.logger.Warn("payment gateway error",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		result = ChargeResult{DeclineReason: err.Error()}
	}

	params := database.UpdatePaymentStatusParams{
		ID:           payment.ID,
		Status:       database.PaymentStatusFailed,
		Processor:    textOrNull(result.Processor),
		CardLastFour: textOrNull(result.CardLastFour),
		CardBrand:    textOrNull(result.CardBrand),
	}
	if result.Approved {
		params.Status = database.PaymentStatusCompleted
		params.ProcessedAt = timestamptz(s.now())
	} else {
		s.fx.logger.Info("payment declined",
			zap.String("payment_id", payment.ID.String()),
			zap.String("reason", result.DeclineReason),
		)
	}

	payment, err = s.store.UpdatePaymentStatus(ctx, params)
	if err != nil {
		return database.Payment{}, fmt.Errorf("settle payment: %w", err)
	}
	return payment, nil
}

// CheckOrderCompletion confirms a pending order once its completed payments
// cover the total. It reports whether this call made the change; running it
// again is a no-op.
func (s *PaymentService) CheckOrderCompletion(ctx context.Context, tenant Tenant, orderID uuid.UUID) (bool, error) {
	paid, err := s.store.SumCompletedPaymentsByOrder(ctx, database.SumCompletedPaymentsByOrderParams{
		OrderID:        orderID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		return false, fmt.Errorf("sum completed payments: %w", err)
	}

	order, err := fetchOrder(ctx, s.store, tenant, orderID)
	if err != nil {
		return false, err
	}

	if numericToDecimal(paid).LessThan(numericToDecimal(order.TotalAmount)) {
		return false, nil
	}
	if !CanTransition(order.Status, database.OrderStatusConfirmed) {
		return false, nil
	}

	confirmed, err := s.store.ConfirmPendingOrder(ctx, database.ConfirmPendingOrderParams{
		ID:             order.ID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else moved it off pending first.
			return false, nil
		}
		return false, fmt.Errorf("confirm order: %w", err)
	}

	s.fx.invalidateOrder(ctx, tenant, confirmed.ID)
	s.fx.publish(ctx, enum.EventOrderStatusChanged, tenant, confirmed.ID, statusChange(order.Status, confirmed))
	s.fx.logger.Info("order confirmed by payment",
		zap.String("order_id", confirmed.ID.String()),
		zap.String("order_number", confirmed.OrderNumber),
	)
	return true, nil
}

// ProcessSplitPayment runs each payment in turn under one split group. Every
// request is validated before the first one is recorded.
func (s *PaymentService) ProcessSplitPayment(ctx context.Context, tenant Tenant, orderID uuid.UUID, reqs []PaymentRequest) ([]database.Payment, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptySplit
	}
	for i, req := range reqs {
		if err := validatePaymentRequest(req); err != nil {
			return nil, fmt.Errorf("payments[%d]: %w", i, err)
		}
	}
	if _, err := fetchOrder(ctx, s.store, tenant, orderID); err != nil {
		return nil, err
	}

	group := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	payments := make([]database.Payment, 0, len(reqs))
	for i, req := range reqs {
		payment, err := s.processPayment(ctx, tenant, orderID, req, group)
		if err != nil {
			return payments, fmt.Errorf("payments[%d]: %w", i, err)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// RefundPayment refunds part or all of a completed payment. The order's
// status is left alone.
func (s *PaymentService) RefundPayment(ctx context.Context, tenant Tenant, paymentID uuid.UUID, amount decimal.Decimal, reason string) (database.Payment, error) {
	if !isCents(amount) {
		return database.Payment{}, fmt.Errorf("amount: %w", ErrInvalidPrecision)
	}
	payment, err := s.store.GetPayment(ctx, database.GetPaymentParams{
		ID:             paymentID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Payment{}, ErrPaymentNotFound
		}
		return database.Payment{}, fmt.Errorf("get payment: %w", err)
	}

	if payment.Status != database.PaymentStatusCompleted {
		return database.Payment{}, ErrPaymentNotRefundable
	}
	paid := numericToDecimal(payment.Amount)
	if amount.GreaterThan(paid) {
		return database.Payment{}, ErrRefundExceedsAmount
	}
	if !amount.IsPositive() {
		return database.Payment{}, ErrInvalidRefund
	}

	status := database.PaymentStatusPartiallyRefunded
	if amount.Equal(paid) {
		status = database.PaymentStatusRefunded
	}

	note := "Refunded " + amount.StringFixed(2)
	if reason != "" {
		note += ": " + reason
	}

	refunded, err := s.store.RefundPayment(ctx, database.RefundPaymentParams{
		ID:             payment.ID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Status:         status,
		RefundAmount:   decimalToNumeric(amount),
		RefundReason:   textOrNull(reason),
		Note:           note,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Payment{}, ErrPaymentNotRefundable
		}
		return database.Payment{}, fmt.Errorf("refund payment: %w", err)
	}

	s.fx.invalidateOrder(ctx, tenant, refunded.OrderID)
	s.fx.publish(ctx, enum.EventPaymentRefunded, tenant, refunded.OrderID, paymentPayload(refunded))
	return refunded, nil
}

// ListOrderPayments returns every payment recorded against an order.
func (s *PaymentService) ListOrderPayments(ctx context.Context, tenant Tenant, orderID uuid.UUID) ([]database.Payment, error) {
	if _, err := fetchOrder(ctx, s.store, tenant, orderID); err != nil {
		return nil, err
	}
	payments, err := s.store.ListPaymentsByOrder(ctx, database.ListPaymentsByOrderParams{
		OrderID:        orderID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// GetPaymentSummary totals settled payments in [from, to) per method.
func (s *PaymentService) GetPaymentSummary(ctx context.Context, tenant Tenant, from, to time.Time) (*PaymentSummary, error) {
	if !to.After(from) {
		return nil, ErrInvalidDateRange
	}
	rows, err := s.store.GetPaymentSummary(ctx, database.GetPaymentSummaryParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Start:          from,
		End:            to,
	})
	if err != nil {
		return nil, fmt.Errorf("payment summary: %w", err)
	}

	summary := &PaymentSummary{
		From:         from,
		To:           to,
		TotalAmount:  decimal.Zero,
		TotalTips:    decimal.Zero,
		TotalRefunds: decimal.Zero,
		ByMethod:     make([]MethodTotals, 0, len(rows)),
	}
	for _, row := range rows {
		mt := MethodTotals{
			Method:       row.PaymentMethod,
			Count:        row.PaymentCount,
			TotalAmount:  numericToDecimal(row.TotalAmount),
			TotalTips:    numericToDecimal(row.TotalTips),
			TotalRefunds: numericToDecimal(row.TotalRefunds),
		}
		mt.NetAmount = mt.TotalAmount.Sub(mt.TotalRefunds)
		summary.ByMethod = append(summary.ByMethod, mt)

		summary.Count += mt.Count
		summary.TotalAmount = summary.TotalAmount.Add(mt.TotalAmount)
		summary.TotalTips = summary.TotalTips.Add(mt.TotalTips)
		summary.TotalRefunds = summary.TotalRefunds.Add(mt.TotalRefunds)
	}
	summary.NetAmount = summary.TotalAmount.Sub(summary.TotalRefunds)
	return summary, nil
}

// GetDailyTotals totals settled payments in [from, to) per calendar day.
func (s *PaymentService) GetDailyTotals(ctx context.Context, tenant Tenant, from, to time.Time) ([]DailyTotals, error) {
	if !to.After(from) {
		return nil, ErrInvalidDateRange
	}
	rows, err := s.store.GetDailyPaymentTotals(ctx, database.GetDailyPaymentTotalsParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Start:          from,
		End:            to,
	})
	if err != nil {
		return nil, fmt.Errorf("daily payment totals: %w", err)
	}

	days := make([]DailyTotals, 0, len(rows))
	for _, row := range rows {
		d := DailyTotals{
			Date:         row.Day.Time.Format("2006-01-02"),
			Count:        row.PaymentCount,
			TotalAmount:  numericToDecimal(row.TotalAmount),
			TotalTips:    numericToDecimal(row.TotalTips),
			TotalRefunds: numericToDecimal(row.TotalRefunds),
		}
		d.NetAmount = d.TotalAmount.Sub(d.TotalRefunds)
		days = append(days, d)
	}
	return days, nil
}

func paymentPayload(p database.Payment) map[string]interface{} {
	return map[string]interface{}{
		"payment_id":     p.ID,
		"payment_method": p.PaymentMethod,
		"status":         p.Status,
		"amount":         numericToDecimal(p.Amount).StringFixed(2),
		"refund_amount":  numericToDecimal(p.RefundAmount).StringFixed(2),
	}
}
