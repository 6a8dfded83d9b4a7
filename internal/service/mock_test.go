package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/events"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.commits++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockStore implements OrderStore, KitchenStore and PaymentStore with
// configurable behavior. Calling a method whose func is unset panics.
type mockStore struct {
	getMenuItemForOrderFn           func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
	getModifierForOrderFn           func(ctx context.Context, arg database.GetModifierForOrderParams) (database.Modifier, error)
	countOrdersCreatedBetweenFn     func(ctx context.Context, arg database.CountOrdersCreatedBetweenParams) (int64, error)
	createOrderFn                   func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn               func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	createOrderItemModFn            func(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	getOrderFn                      func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	listOrdersFn                    func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrderItemsByOrderFn         func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listOrderItemModifiersByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemModifier, error)
	listPaymentsByOrderFn           func(ctx context.Context, arg database.ListPaymentsByOrderParams) ([]database.Payment, error)
	updateOrderDetailsFn            func(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	updateOrderStatusFn             func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updateOrderItemPreparationFn    func(ctx context.Context, arg database.UpdateOrderItemPreparationParams) (database.OrderItem, error)
	listKitchenQueueOrdersFn        func(ctx context.Context, arg database.ListKitchenQueueOrdersParams) ([]database.Order, error)
	listOrdersCreatedBetweenFn      func(ctx context.Context, arg database.ListOrdersCreatedBetweenParams) ([]database.Order, error)
	confirmPendingOrderFn           func(ctx context.Context, arg database.ConfirmPendingOrderParams) (database.Order, error)
	createPaymentFn                 func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	updatePaymentStatusFn           func(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Payment, error)
	getPaymentFn                    func(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	sumCompletedPaymentsByOrderFn   func(ctx context.Context, arg database.SumCompletedPaymentsByOrderParams) (pgtype.Numeric, error)
	refundPaymentFn                 func(ctx context.Context, arg database.RefundPaymentParams) (database.Payment, error)
	getPaymentSummaryFn             func(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	getDailyPaymentTotalsFn         func(ctx context.Context, arg database.GetDailyPaymentTotalsParams) ([]database.GetDailyPaymentTotalsRow, error)
}

func (m *mockStore) GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error) {
	return m.getMenuItemForOrderFn(ctx, arg)
}
func (m *mockStore) GetModifierForOrder(ctx context.Context, arg database.GetModifierForOrderParams) (database.Modifier, error) {
	return m.getModifierForOrderFn(ctx, arg)
}
func (m *mockStore) CountOrdersCreatedBetween(ctx context.Context, arg database.CountOrdersCreatedBetweenParams) (int64, error) {
	return m.countOrdersCreatedBetweenFn(ctx, arg)
}
func (m *mockStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockStore) CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
	return m.createOrderItemModFn(ctx, arg)
}
func (m *mockStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrderFn(ctx, arg)
}
func (m *mockStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockStore) ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemModifier, error) {
	return m.listOrderItemModifiersByOrderFn(ctx, orderID)
}
func (m *mockStore) ListPaymentsByOrder(ctx context.Context, arg database.ListPaymentsByOrderParams) ([]database.Payment, error) {
	return m.listPaymentsByOrderFn(ctx, arg)
}
func (m *mockStore) UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error) {
	return m.updateOrderDetailsFn(ctx, arg)
}
func (m *mockStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockStore) UpdateOrderItemPreparation(ctx context.Context, arg database.UpdateOrderItemPreparationParams) (database.OrderItem, error) {
	return m.updateOrderItemPreparationFn(ctx, arg)
}
func (m *mockStore) ListKitchenQueueOrders(ctx context.Context, arg database.ListKitchenQueueOrdersParams) ([]database.Order, error) {
	return m.listKitchenQueueOrdersFn(ctx, arg)
}
func (m *mockStore) ListOrdersCreatedBetween(ctx context.Context, arg database.ListOrdersCreatedBetweenParams) ([]database.Order, error) {
	return m.listOrdersCreatedBetweenFn(ctx, arg)
}
func (m *mockStore) ConfirmPendingOrder(ctx context.Context, arg database.ConfirmPendingOrderParams) (database.Order, error) {
	return m.confirmPendingOrderFn(ctx, arg)
}
func (m *mockStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	return m.createPaymentFn(ctx, arg)
}
func (m *mockStore) UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Payment, error) {
	return m.updatePaymentStatusFn(ctx, arg)
}
func (m *mockStore) GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error) {
	return m.getPaymentFn(ctx, arg)
}
func (m *mockStore) SumCompletedPaymentsByOrder(ctx context.Context, arg database.SumCompletedPaymentsByOrderParams) (pgtype.Numeric, error) {
	return m.sumCompletedPaymentsByOrderFn(ctx, arg)
}
func (m *mockStore) RefundPayment(ctx context.Context, arg database.RefundPaymentParams) (database.Payment, error) {
	return m.refundPaymentFn(ctx, arg)
}
func (m *mockStore) GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error) {
	return m.getPaymentSummaryFn(ctx, arg)
}
func (m *mockStore) GetDailyPaymentTotals(ctx context.Context, arg database.GetDailyPaymentTotalsParams) ([]database.GetDailyPaymentTotalsRow, error) {
	return m.getDailyPaymentTotalsFn(ctx, arg)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, t := range p.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testTenant() Tenant {
	return Tenant{OrganizationID: uuid.New(), RestaurantID: uuid.New()}
}
