package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"go.uber.org/zap"
)

// stubGateway answers every charge with result/err and records requests.
type stubGateway struct {
	result   ChargeResult
	err      error
	requests []ChargeRequest
}

func (g *stubGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	g.requests = append(g.requests, req)
	return g.result, g.err
}

func approvingGateway() *stubGateway {
	return &stubGateway{result: ChargeResult{Approved: true, Processor: "simulated_card", CardLastFour: "4242", CardBrand: "visa"}}
}

// installPayments adds a stateful payments table on top of an orderDB.
func (db *orderDB) installPayments(store *mockStore) {
	index := func(id uuid.UUID) int {
		for i, p := range db.payments {
			if p.ID == id {
				return i
			}
		}
		return -1
	}

	store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		p := database.Payment{
			ID:                  uuid.New(),
			OrganizationID:      arg.OrganizationID,
			RestaurantID:        arg.RestaurantID,
			OrderID:             arg.OrderID,
			Amount:              arg.Amount,
			TipAmount:           arg.TipAmount,
			PaymentMethod:       arg.PaymentMethod,
			Status:              database.PaymentStatusPending,
			IsSplitPayment:      arg.IsSplitPayment,
			SplitPaymentGroupID: arg.SplitPaymentGroupID,
			Notes:               arg.Notes,
			PaymentMetadata:     arg.PaymentMetadata,
		}
		db.payments = append(db.payments, p)
		return p, nil
	}
	store.updatePaymentStatusFn = func(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Payment, error) {
		i := index(arg.ID)
		if i < 0 {
			return database.Payment{}, pgx.ErrNoRows
		}
		p := db.payments[i]
		p.Status = arg.Status
		if arg.TransactionID.Valid {
			p.TransactionID = arg.TransactionID
		}
		if arg.Processor.Valid {
			p.Processor = arg.Processor
		}
		if arg.CardLastFour.Valid {
			p.CardLastFour = arg.CardLastFour
		}
		if arg.CardBrand.Valid {
			p.CardBrand = arg.CardBrand
		}
		if arg.ProcessedAt.Valid {
			p.ProcessedAt = arg.ProcessedAt
		}
		db.payments[i] = p
		return p, nil
	}
	store.getPaymentFn = func(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error) {
		i := index(arg.ID)
		if i < 0 || db.payments[i].OrganizationID != arg.OrganizationID || db.payments[i].RestaurantID != arg.RestaurantID {
			return database.Payment{}, pgx.ErrNoRows
		}
		return db.payments[i], nil
	}
	store.sumCompletedPaymentsByOrderFn = func(ctx context.Context, arg database.SumCompletedPaymentsByOrderParams) (pgtype.Numeric, error) {
		sum := decimal.Zero
		for _, p := range db.payments {
			if p.OrderID == arg.OrderID && p.Status == database.PaymentStatusCompleted {
				sum = sum.Add(numericToDecimal(p.Amount))
			}
		}
		return decimalToNumeric(sum), nil
	}
	store.confirmPendingOrderFn = func(ctx context.Context, arg database.ConfirmPendingOrderParams) (database.Order, error) {
		o, ok := db.scoped(arg.ID, arg.OrganizationID, arg.RestaurantID)
		if !ok || o.Status != database.OrderStatusPending {
			return database.Order{}, pgx.ErrNoRows
		}
		o.Status = database.OrderStatusConfirmed
		db.orders[o.ID] = o
		return o, nil
	}
	store.refundPaymentFn = func(ctx context.Context, arg database.RefundPaymentParams) (database.Payment, error) {
		i := index(arg.ID)
		if i < 0 || db.payments[i].Status != database.PaymentStatusCompleted {
			return database.Payment{}, pgx.ErrNoRows
		}
		p := db.payments[i]
		p.Status = arg.Status
		p.RefundAmount = arg.RefundAmount
		p.RefundReason = arg.RefundReason
		p.RefundedAt = timestamptz(fixedNow)
		p.Notes = appendNote(p.Notes, arg.Note)
		db.payments[i] = p
		return p, nil
	}
}

type paymentFixture struct {
	svc       *PaymentService
	store     *mockStore
	db        *orderDB
	gateway   *stubGateway
	publisher *recordingPublisher
	tenant    Tenant
}

func newPaymentFixture() *paymentFixture {
	tenant := testTenant()
	store := &mockStore{}
	db := newOrderDB(tenant)
	db.install(store)
	db.installPayments(store)
	gw := approvingGateway()
	pub := &recordingPublisher{}

	svc := NewPaymentService(store, gw, cache.NewMemoryCache(), pub, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return &paymentFixture{svc: svc, store: store, db: db, gateway: gw, publisher: pub, tenant: tenant}
}

// seedOrder stores an order with total 26.04 in the given status.
func (f *paymentFixture) seedOrder(status database.OrderStatus) database.Order {
	o := database.Order{
		ID:             uuid.New(),
		OrganizationID: f.tenant.OrganizationID,
		RestaurantID:   f.tenant.RestaurantID,
		OrderNumber:    "ORD-20260314-0001-12345",
		OrderType:      database.OrderTypeDineIn,
		Status:         status,
		Subtotal:       makeNumeric("24.00"),
		TaxAmount:      makeNumeric("2.04"),
		TipAmount:      makeNumeric("0"),
		TotalAmount:    makeNumeric("26.04"),
		CreatedAt:      fixedNow,
	}
	f.db.orders[o.ID] = o
	return o
}

func (f *paymentFixture) status(orderID uuid.UUID) database.OrderStatus {
	return f.db.orders[orderID].Status
}

// =====================
// ProcessPayment
// =====================

func TestProcessPayment_CashCompletesAndConfirms(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	p, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("26.04"),
		Method: database.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != database.PaymentStatusCompleted {
		t.Errorf("payment status: got %s, want completed", p.Status)
	}
	if !strings.HasPrefix(p.TransactionID.String, "cash_") || p.Processor.String != "cash" {
		t.Errorf("cash settlement: txn %q processor %q", p.TransactionID.String, p.Processor.String)
	}
	if !p.ProcessedAt.Valid {
		t.Error("processed_at should be set")
	}
	if len(f.gateway.requests) != 0 {
		t.Error("cash must not reach the gateway")
	}
	if got := f.status(o.ID); got != database.OrderStatusConfirmed {
		t.Errorf("order status: got %s, want confirmed", got)
	}

	types := f.publisher.types()
	if len(types) != 2 || types[0] != enum.EventPaymentCompleted || types[1] != enum.EventOrderStatusChanged {
		t.Errorf("events: got %v", types)
	}
}

func TestProcessPayment_PartialLeavesPending(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	_, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("10.00"),
		Method: database.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.status(o.ID); got != database.OrderStatusPending {
		t.Errorf("order status: got %s, want pending", got)
	}
}

func TestProcessPayment_CardApproved(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	p, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount:    dec("26.04"),
		TipAmount: dec("4.00"),
		Method:    database.PaymentMethodCreditCard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != database.PaymentStatusCompleted {
		t.Fatalf("payment status: got %s", p.Status)
	}
	if len(f.gateway.requests) != 1 {
		t.Fatalf("expected exactly one gateway attempt, got %d", len(f.gateway.requests))
	}
	req := f.gateway.requests[0]
	if !strings.HasPrefix(req.TransactionID, "txn_") || p.TransactionID.String != req.TransactionID {
		t.Errorf("transaction id: request %q stored %q", req.TransactionID, p.TransactionID.String)
	}
	if !req.Amount.Equal(dec("26.04")) {
		t.Errorf("charged amount: got %s", req.Amount)
	}
	if p.CardLastFour.String != "4242" || p.CardBrand.String != "visa" {
		t.Errorf("card details: %q %q", p.CardLastFour.String, p.CardBrand.String)
	}
	if !numericEquals(p.TipAmount, "4.00") {
		t.Errorf("tip: got %v", numericToDecimal(p.TipAmount))
	}
	if got := f.status(o.ID); got != database.OrderStatusConfirmed {
		t.Errorf("order status: got %s, want confirmed", got)
	}
}

func TestProcessPayment_Declined(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.result = ChargeResult{Processor: "simulated_card", DeclineReason: "insufficient funds"}
	o := f.seedOrder(database.OrderStatusPending)

	p, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("26.04"),
		Method: database.PaymentMethodDebitCard,
	})
	if err != nil {
		t.Fatalf("a decline is not an error, got: %v", err)
	}
	if p.Status != database.PaymentStatusFailed {
		t.Errorf("payment status: got %s, want failed", p.Status)
	}
	if p.ProcessedAt.Valid {
		t.Error("failed payment must not have processed_at")
	}
	if got := f.status(o.ID); got != database.OrderStatusPending {
		t.Errorf("order status: got %s, want pending", got)
	}
	if n := f.publisher.count(enum.EventPaymentFailed); n != 1 {
		t.Errorf("expected 1 payment.failed event, got %d", n)
	}
}

func TestProcessPayment_GatewayErrorIsDecline(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.err = errors.New("connection refused")
	o := f.seedOrder(database.OrderStatusPending)

	p, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("26.04"),
		Method: database.PaymentMethodMobilePayment,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != database.PaymentStatusFailed {
		t.Errorf("payment status: got %s, want failed", p.Status)
	}
}

func TestProcessPayment_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  PaymentRequest
		want error
	}{
		{"zero amount", PaymentRequest{Amount: dec("0"), Method: database.PaymentMethodCash}, ErrInvalidAmount},
		{"negative amount", PaymentRequest{Amount: dec("-5"), Method: database.PaymentMethodCash}, ErrInvalidAmount},
		{"negative tip", PaymentRequest{Amount: dec("5"), TipAmount: dec("-1"), Method: database.PaymentMethodCash}, ErrInvalidTip},
		{"bad method", PaymentRequest{Amount: dec("5"), Method: "barter"}, ErrInvalidMethod},
		{"sub-cent amount", PaymentRequest{Amount: dec("26.035"), Method: database.PaymentMethodCash}, ErrInvalidPrecision},
		{"amount below a cent", PaymentRequest{Amount: dec("0.001"), Method: database.PaymentMethodCash}, ErrInvalidPrecision},
		{"sub-cent tip", PaymentRequest{Amount: dec("5"), TipAmount: dec("1.005"), Method: database.PaymentMethodCash}, ErrInvalidPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()
			o := f.seedOrder(database.OrderStatusPending)

			_, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got: %v", tt.want, err)
			}
			if len(f.db.payments) != 0 {
				t.Error("no payment should be recorded")
			}
		})
	}
}

func TestProcessPayment_OrderNotFound(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.ProcessPayment(context.Background(), f.tenant, uuid.New(), PaymentRequest{
		Amount: dec("5"),
		Method: database.PaymentMethodCash,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestProcessPayment_CompletionCheckFailureKeepsPayment(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)
	f.store.sumCompletedPaymentsByOrderFn = func(ctx context.Context, arg database.SumCompletedPaymentsByOrderParams) (pgtype.Numeric, error) {
		return pgtype.Numeric{}, errors.New("replica lag")
	}

	p, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("26.04"),
		Method: database.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("payment should still succeed, got: %v", err)
	}
	if p.Status != database.PaymentStatusCompleted {
		t.Errorf("payment status: got %s", p.Status)
	}
	if got := f.status(o.ID); got != database.OrderStatusPending {
		t.Errorf("order status: got %s, want pending", got)
	}
}

func TestProcessPayment_OverpaymentConfirms(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	_, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("30.00"),
		Method: database.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.status(o.ID); got != database.OrderStatusConfirmed {
		t.Errorf("order status: got %s, want confirmed", got)
	}
}

// =====================
// CheckOrderCompletion
// =====================

func TestCheckOrderCompletion_Idempotent(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)
	f.db.payments = append(f.db.payments, database.Payment{
		ID: uuid.New(), OrderID: o.ID, Amount: makeNumeric("26.04"), Status: database.PaymentStatusCompleted,
	})

	changed, err := f.svc.CheckOrderCompletion(context.Background(), f.tenant, o.ID)
	if err != nil || !changed {
		t.Fatalf("first check: changed=%v err=%v", changed, err)
	}
	changed, err = f.svc.CheckOrderCompletion(context.Background(), f.tenant, o.ID)
	if err != nil || changed {
		t.Fatalf("second check should be a no-op: changed=%v err=%v", changed, err)
	}
	if n := f.publisher.count(enum.EventOrderStatusChanged); n != 1 {
		t.Errorf("expected 1 status event, got %d", n)
	}
}

func TestCheckOrderCompletion_OnlyFromPending(t *testing.T) {
	for _, status := range []database.OrderStatus{
		database.OrderStatusPreparing,
		database.OrderStatusCancelled,
		database.OrderStatusDelivered,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newPaymentFixture()
			o := f.seedOrder(status)
			f.db.payments = append(f.db.payments, database.Payment{
				ID: uuid.New(), OrderID: o.ID, Amount: makeNumeric("26.04"), Status: database.PaymentStatusCompleted,
			})

			changed, err := f.svc.CheckOrderCompletion(context.Background(), f.tenant, o.ID)
			if err != nil || changed {
				t.Fatalf("changed=%v err=%v", changed, err)
			}
			if got := f.status(o.ID); got != status {
				t.Errorf("status changed to %s", got)
			}
		})
	}
}

func TestCheckOrderCompletion_IgnoresFailedPayments(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)
	f.db.payments = append(f.db.payments,
		database.Payment{ID: uuid.New(), OrderID: o.ID, Amount: makeNumeric("20.00"), Status: database.PaymentStatusCompleted},
		database.Payment{ID: uuid.New(), OrderID: o.ID, Amount: makeNumeric("20.00"), Status: database.PaymentStatusFailed},
	)

	changed, err := f.svc.CheckOrderCompletion(context.Background(), f.tenant, o.ID)
	if err != nil || changed {
		t.Fatalf("changed=%v err=%v", changed, err)
	}
}

func TestCheckOrderCompletion_LostRace(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)
	f.db.payments = append(f.db.payments, database.Payment{
		ID: uuid.New(), OrderID: o.ID, Amount: makeNumeric("26.04"), Status: database.PaymentStatusCompleted,
	})
	f.store.confirmPendingOrderFn = func(ctx context.Context, arg database.ConfirmPendingOrderParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}

	changed, err := f.svc.CheckOrderCompletion(context.Background(), f.tenant, o.ID)
	if err != nil || changed {
		t.Fatalf("lost race should be a silent no-op: changed=%v err=%v", changed, err)
	}
}

// =====================
// ProcessSplitPayment
// =====================

func TestProcessSplitPayment_ConfirmsOnceCovered(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	payments, err := f.svc.ProcessSplitPayment(context.Background(), f.tenant, o.ID, []PaymentRequest{
		{Amount: dec("13.02"), Method: database.PaymentMethodCash},
		{Amount: dec("13.02"), Method: database.PaymentMethodCreditCard},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	group := payments[0].SplitPaymentGroupID
	for i, p := range payments {
		if !p.IsSplitPayment || !p.SplitPaymentGroupID.Valid || p.SplitPaymentGroupID != group {
			t.Errorf("payments[%d] not in the shared split group: %+v", i, p.SplitPaymentGroupID)
		}
		if p.Status != database.PaymentStatusCompleted {
			t.Errorf("payments[%d] status: got %s", i, p.Status)
		}
	}
	if got := f.status(o.ID); got != database.OrderStatusConfirmed {
		t.Errorf("order status: got %s, want confirmed", got)
	}
	if n := f.publisher.count(enum.EventOrderStatusChanged); n != 1 {
		t.Errorf("order should be confirmed exactly once, got %d events", n)
	}
}

func TestProcessSplitPayment_ValidatesAllFirst(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	_, err := f.svc.ProcessSplitPayment(context.Background(), f.tenant, o.ID, []PaymentRequest{
		{Amount: dec("13.02"), Method: database.PaymentMethodCash},
		{Amount: dec("0"), Method: database.PaymentMethodCash},
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
	if !strings.Contains(err.Error(), "payments[1]") {
		t.Errorf("error should name the offending entry: %v", err)
	}
	if len(f.db.payments) != 0 {
		t.Errorf("nothing should be recorded, got %d payments", len(f.db.payments))
	}
}

func TestProcessSplitPayment_SubCentEntryRejected(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	_, err := f.svc.ProcessSplitPayment(context.Background(), f.tenant, o.ID, []PaymentRequest{
		{Amount: dec("13.015"), Method: database.PaymentMethodCash},
		{Amount: dec("13.025"), Method: database.PaymentMethodCash},
	})
	if !errors.Is(err, ErrInvalidPrecision) {
		t.Fatalf("expected ErrInvalidPrecision, got: %v", err)
	}
	if len(f.db.payments) != 0 {
		t.Errorf("nothing should be recorded, got %d payments", len(f.db.payments))
	}
	if got := f.status(o.ID); got != database.OrderStatusPending {
		t.Errorf("order status: got %s, want pending", got)
	}
}

func TestProcessSplitPayment_ThreeWayConfirmsOnSecond(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	// The order must still be pending when the second payment is recorded.
	createPayment := f.store.createPaymentFn
	seen := 0
	f.store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		if seen == 1 {
			if got := f.status(o.ID); got != database.OrderStatusPending {
				t.Errorf("after first payment: got %s, want pending", got)
			}
		}
		seen++
		return createPayment(ctx, arg)
	}

	payments, err := f.svc.ProcessSplitPayment(context.Background(), f.tenant, o.ID, []PaymentRequest{
		{Amount: dec("20.00"), Method: database.PaymentMethodCash},
		{Amount: dec("10.00"), Method: database.PaymentMethodCash},
		{Amount: dec("5.00"), Method: database.PaymentMethodCash},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(payments))
	}
	for i, p := range payments {
		if p.Status != database.PaymentStatusCompleted {
			t.Errorf("payments[%d] status: got %s", i, p.Status)
		}
	}
	if got := f.status(o.ID); got != database.OrderStatusConfirmed {
		t.Errorf("order status: got %s, want confirmed", got)
	}

	want := []string{
		enum.EventPaymentCompleted,
		enum.EventPaymentCompleted,
		enum.EventOrderStatusChanged,
		enum.EventPaymentCompleted,
	}
	got := f.publisher.types()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: got %v, want %v", got, want)
		}
	}
}

func TestProcessSplitPayment_Empty(t *testing.T) {
	f := newPaymentFixture()
	o := f.seedOrder(database.OrderStatusPending)

	_, err := f.svc.ProcessSplitPayment(context.Background(), f.tenant, o.ID, nil)
	if !errors.Is(err, ErrEmptySplit) {
		t.Fatalf("expected ErrEmptySplit, got: %v", err)
	}
}

func TestProcessSplitPayment_DeclinedPartStaysPending(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.result = ChargeResult{DeclineReason: "declined"}
	o := f.seedOrder(database.OrderStatusPending)

	payments, err := f.svc.ProcessSplitPayment(context.Background(), f.tenant, o.ID, []PaymentRequest{
		{Amount: dec("13.02"), Method: database.PaymentMethodCash},
		{Amount: dec("13.02"), Method: database.PaymentMethodCreditCard},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payments[1].Status != database.PaymentStatusFailed {
		t.Errorf("second payment: got %s", payments[1].Status)
	}
	if got := f.status(o.ID); got != database.OrderStatusPending {
		t.Errorf("order status: got %s, want pending", got)
	}
}

// =====================
// RefundPayment
// =====================

func (f *paymentFixture) completedPayment(t *testing.T, amount string) database.Payment {
	t.Helper()
	o := f.seedOrder(database.OrderStatusPending)
	p, err := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec(amount),
		Method: database.PaymentMethodCash,
		Notes:  "table 4",
	})
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func TestRefundPayment_Partial(t *testing.T) {
	f := newPaymentFixture()
	p := f.completedPayment(t, "26.04")

	refunded, err := f.svc.RefundPayment(context.Background(), f.tenant, p.ID, dec("10"), "cold fries")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refunded.Status != database.PaymentStatusPartiallyRefunded {
		t.Errorf("status: got %s, want partially_refunded", refunded.Status)
	}
	if !numericEquals(refunded.RefundAmount, "10") || refunded.RefundReason.String != "cold fries" {
		t.Errorf("refund fields: %v %q", numericToDecimal(refunded.RefundAmount), refunded.RefundReason.String)
	}
	if refunded.Notes.String != "table 4\nRefunded 10.00: cold fries" {
		t.Errorf("notes: got %q", refunded.Notes.String)
	}
	if got := f.status(refunded.OrderID); got != database.OrderStatusConfirmed {
		t.Errorf("refund must not touch order status, got %s", got)
	}
	if n := f.publisher.count(enum.EventPaymentRefunded); n != 1 {
		t.Errorf("expected 1 payment.refunded event, got %d", n)
	}
}

func TestRefundPayment_Full(t *testing.T) {
	f := newPaymentFixture()
	p := f.completedPayment(t, "26.04")

	refunded, err := f.svc.RefundPayment(context.Background(), f.tenant, p.ID, dec("26.04"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refunded.Status != database.PaymentStatusRefunded {
		t.Errorf("status: got %s, want refunded", refunded.Status)
	}
}

func TestRefundPayment_OnlyOnce(t *testing.T) {
	f := newPaymentFixture()
	p := f.completedPayment(t, "26.04")

	if _, err := f.svc.RefundPayment(context.Background(), f.tenant, p.ID, dec("5"), ""); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	_, err := f.svc.RefundPayment(context.Background(), f.tenant, p.ID, dec("5"), "")
	if !errors.Is(err, ErrPaymentNotRefundable) {
		t.Fatalf("expected ErrPaymentNotRefundable on second refund, got: %v", err)
	}
}

func TestRefundPayment_Errors(t *testing.T) {
	f := newPaymentFixture()
	p := f.completedPayment(t, "26.04")

	tests := []struct {
		name   string
		id     uuid.UUID
		amount string
		want   error
	}{
		{"unknown payment", uuid.New(), "1", ErrPaymentNotFound},
		{"exceeds amount", p.ID, "26.05", ErrRefundExceedsAmount},
		{"zero", p.ID, "0", ErrInvalidRefund},
		{"negative", p.ID, "-3", ErrInvalidRefund},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RefundPayment(context.Background(), f.tenant, tt.id, dec(tt.amount), "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestRefundPayment_SubCentRejected(t *testing.T) {
	f := newPaymentFixture()
	p := f.completedPayment(t, "10.00")

	_, err := f.svc.RefundPayment(context.Background(), f.tenant, p.ID, dec("9.999"), "")
	if !errors.Is(err, ErrInvalidPrecision) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrInvalidPrecision, got: %v", err)
	}
	stored := f.db.payments[0]
	if stored.Status != database.PaymentStatusCompleted || stored.RefundAmount.Valid {
		t.Errorf("payment must be untouched: status %s refund %v", stored.Status, numericToDecimal(stored.RefundAmount))
	}
	if n := f.publisher.count(enum.EventPaymentRefunded); n != 0 {
		t.Errorf("expected no payment.refunded event, got %d", n)
	}
}

func TestRefundPayment_FailedPaymentNotRefundable(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.result = ChargeResult{DeclineReason: "declined"}
	o := f.seedOrder(database.OrderStatusPending)
	p, _ := f.svc.ProcessPayment(context.Background(), f.tenant, o.ID, PaymentRequest{
		Amount: dec("26.04"),
		Method: database.PaymentMethodCreditCard,
	})

	_, err := f.svc.RefundPayment(context.Background(), f.tenant, p.ID, dec("1"), "")
	if !errors.Is(err, ErrPaymentNotRefundable) {
		t.Fatalf("expected ErrPaymentNotRefundable, got: %v", err)
	}
}

// =====================
// Listing and reporting
// =====================

func TestListOrderPayments(t *testing.T) {
	f := newPaymentFixture()
	p := f.completedPayment(t, "26.04")

	payments, err := f.svc.ListOrderPayments(context.Background(), f.tenant, p.OrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 1 || payments[0].ID != p.ID {
		t.Errorf("payments: got %+v", payments)
	}

	if _, err := f.svc.ListOrderPayments(context.Background(), f.tenant, uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestGetPaymentSummary(t *testing.T) {
	f := newPaymentFixture()
	f.store.getPaymentSummaryFn = func(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error) {
		return []database.GetPaymentSummaryRow{
			{PaymentMethod: database.PaymentMethodCash, PaymentCount: 3, TotalAmount: makeNumeric("60.00"), TotalTips: makeNumeric("5.00"), TotalRefunds: makeNumeric("10.00")},
			{PaymentMethod: database.PaymentMethodCreditCard, PaymentCount: 2, TotalAmount: makeNumeric("40.50"), TotalTips: makeNumeric("6.00"), TotalRefunds: makeNumeric("0")},
		}, nil
	}
	from := fixedNow.Add(-24 * time.Hour)

	s, err := f.svc.GetPaymentSummary(context.Background(), f.tenant, from, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Count != 5 {
		t.Errorf("count: got %d", s.Count)
	}
	if !s.TotalAmount.Equal(dec("100.50")) || !s.TotalTips.Equal(dec("11")) || !s.TotalRefunds.Equal(dec("10")) {
		t.Errorf("totals: %s %s %s", s.TotalAmount, s.TotalTips, s.TotalRefunds)
	}
	if !s.NetAmount.Equal(dec("90.50")) {
		t.Errorf("net: got %s", s.NetAmount)
	}
	if len(s.ByMethod) != 2 || !s.ByMethod[0].NetAmount.Equal(dec("50")) {
		t.Errorf("by method: %+v", s.ByMethod)
	}

	if _, err := f.svc.GetPaymentSummary(context.Background(), f.tenant, fixedNow, from); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("expected ErrInvalidDateRange, got: %v", err)
	}
}

func TestGetDailyTotals(t *testing.T) {
	f := newPaymentFixture()
	f.store.getDailyPaymentTotalsFn = func(ctx context.Context, arg database.GetDailyPaymentTotalsParams) ([]database.GetDailyPaymentTotalsRow, error) {
		return []database.GetDailyPaymentTotalsRow{
			{Day: pgtype.Date{Time: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), Valid: true}, PaymentCount: 4, TotalAmount: makeNumeric("80"), TotalTips: makeNumeric("8"), TotalRefunds: makeNumeric("5")},
		}, nil
	}

	days, err := f.svc.GetDailyTotals(context.Background(), f.tenant, fixedNow.AddDate(0, 0, -7), fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 1 || days[0].Date != "2026-03-13" || !days[0].NetAmount.Equal(dec("75")) {
		t.Errorf("days: %+v", days)
	}
}
