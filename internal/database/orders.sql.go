package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, organization_id, restaurant_id, order_number, order_type, status,
    customer_name, customer_phone, customer_email,
    subtotal, tax_amount, tip_amount, total_amount,
    requested_time, estimated_ready_time, actual_ready_time, prep_time_minutes,
    special_instructions, kitchen_notes, table_id, reservation_id, qr_session_id,
    order_metadata, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.OrderNumber,
		&i.OrderType,
		&i.Status,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.CustomerEmail,
		&i.Subtotal,
		&i.TaxAmount,
		&i.TipAmount,
		&i.TotalAmount,
		&i.RequestedTime,
		&i.EstimatedReadyTime,
		&i.ActualReadyTime,
		&i.PrepTimeMinutes,
		&i.SpecialInstructions,
		&i.KitchenNotes,
		&i.TableID,
		&i.ReservationID,
		&i.QrSessionID,
		&i.OrderMetadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countOrdersCreatedBetween = `-- name: CountOrdersCreatedBetween :one
SELECT COUNT(*) FROM orders
WHERE organization_id = $1 AND restaurant_id = $2
  AND created_at >= $3 AND created_at < $4
`

type CountOrdersCreatedBetweenParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

func (q *Queries) CountOrdersCreatedBetween(ctx context.Context, arg CountOrdersCreatedBetweenParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersCreatedBetween,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Start,
		arg.End,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    organization_id, restaurant_id, order_number, order_type, status,
    customer_name, customer_phone, customer_email,
    subtotal, tax_amount, tip_amount, total_amount,
    requested_time, special_instructions, table_id, reservation_id, qr_session_id,
    order_metadata
) VALUES (
    $1, $2, $3, $4, 'pending',
    $5, $6, $7,
    $8, $9, $10, $11,
    $12, $13, $14, $15, $16,
    $17
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrganizationID      uuid.UUID          `json:"organization_id"`
	RestaurantID        uuid.UUID          `json:"restaurant_id"`
	OrderNumber         string             `json:"order_number"`
	OrderType           OrderType          `json:"order_type"`
	CustomerName        pgtype.Text        `json:"customer_name"`
	CustomerPhone       pgtype.Text        `json:"customer_phone"`
	CustomerEmail       pgtype.Text        `json:"customer_email"`
	Subtotal            pgtype.Numeric     `json:"subtotal"`
	TaxAmount           pgtype.Numeric     `json:"tax_amount"`
	TipAmount           pgtype.Numeric     `json:"tip_amount"`
	TotalAmount         pgtype.Numeric     `json:"total_amount"`
	RequestedTime       pgtype.Timestamptz `json:"requested_time"`
	SpecialInstructions pgtype.Text        `json:"special_instructions"`
	TableID             pgtype.UUID        `json:"table_id"`
	ReservationID       pgtype.UUID        `json:"reservation_id"`
	QrSessionID         pgtype.UUID        `json:"qr_session_id"`
	OrderMetadata       []byte             `json:"order_metadata"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.OrderNumber,
		arg.OrderType,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.Subtotal,
		arg.TaxAmount,
		arg.TipAmount,
		arg.TotalAmount,
		arg.RequestedTime,
		arg.SpecialInstructions,
		arg.TableID,
		arg.ReservationID,
		arg.QrSessionID,
		arg.OrderMetadata,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3
`

type GetOrderParams struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.OrganizationID, arg.RestaurantID)
	return scanOrder(row)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE organization_id = $1 AND restaurant_id = $2
  AND ($3::order_status IS NULL OR status = $3)
  AND ($4::order_type IS NULL OR order_type = $4)
  AND ($5::text IS NULL
       OR customer_name ILIKE '%' || $5 || '%'
       OR customer_phone ILIKE '%' || $5 || '%'
       OR customer_email ILIKE '%' || $5 || '%')
  AND ($6::timestamptz IS NULL OR created_at >= $6)
  AND ($7::timestamptz IS NULL OR created_at < $7)
  AND ($8::numeric IS NULL OR total_amount >= $8)
  AND ($9::numeric IS NULL OR total_amount <= $9)
ORDER BY created_at DESC
LIMIT $10 OFFSET $11
`

type ListOrdersParams struct {
	OrganizationID uuid.UUID          `json:"organization_id"`
	RestaurantID   uuid.UUID          `json:"restaurant_id"`
	Status         NullOrderStatus    `json:"status"`
	OrderType      NullOrderType      `json:"order_type"`
	Customer       pgtype.Text        `json:"customer"`
	StartDate      pgtype.Timestamptz `json:"start_date"`
	EndDate        pgtype.Timestamptz `json:"end_date"`
	MinAmount      pgtype.Numeric     `json:"min_amount"`
	MaxAmount      pgtype.Numeric     `json:"max_amount"`
	Limit          int32              `json:"limit"`
	Offset         int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Status,
		arg.OrderType,
		arg.Customer,
		arg.StartDate,
		arg.EndDate,
		arg.MinAmount,
		arg.MaxAmount,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listKitchenQueueOrders = `-- name: ListKitchenQueueOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE organization_id = $1 AND restaurant_id = $2
  AND status IN ('confirmed', 'preparing')
ORDER BY created_at ASC
`

type ListKitchenQueueOrdersParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) ListKitchenQueueOrders(ctx context.Context, arg ListKitchenQueueOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenQueueOrders, arg.OrganizationID, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrdersCreatedBetween = `-- name: ListOrdersCreatedBetween :many
SELECT ` + orderColumns + ` FROM orders
WHERE organization_id = $1 AND restaurant_id = $2
  AND created_at >= $3 AND created_at < $4
ORDER BY created_at ASC
`

type ListOrdersCreatedBetweenParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

func (q *Queries) ListOrdersCreatedBetween(ctx context.Context, arg ListOrdersCreatedBetweenParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersCreatedBetween,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Start,
		arg.End,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const updateOrderDetails = `-- name: UpdateOrderDetails :one
UPDATE orders SET
    customer_name = COALESCE($4, customer_name),
    customer_phone = COALESCE($5, customer_phone),
    customer_email = COALESCE($6, customer_email),
    special_instructions = COALESCE($7, special_instructions),
    requested_time = COALESCE($8, requested_time),
    tip_amount = COALESCE($9, tip_amount),
    table_id = COALESCE($10, table_id),
    order_metadata = COALESCE($11, order_metadata),
    updated_at = now()
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3
RETURNING ` + orderColumns

type UpdateOrderDetailsParams struct {
	ID                  uuid.UUID          `json:"id"`
	OrganizationID      uuid.UUID          `json:"organization_id"`
	RestaurantID        uuid.UUID          `json:"restaurant_id"`
	CustomerName        pgtype.Text        `json:"customer_name"`
	CustomerPhone       pgtype.Text        `json:"customer_phone"`
	CustomerEmail       pgtype.Text        `json:"customer_email"`
	SpecialInstructions pgtype.Text        `json:"special_instructions"`
	RequestedTime       pgtype.Timestamptz `json:"requested_time"`
	TipAmount           pgtype.Numeric     `json:"tip_amount"`
	TableID             pgtype.UUID        `json:"table_id"`
	OrderMetadata       []byte             `json:"order_metadata"`
}

func (q *Queries) UpdateOrderDetails(ctx context.Context, arg UpdateOrderDetailsParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderDetails,
		arg.ID,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.SpecialInstructions,
		arg.RequestedTime,
		arg.TipAmount,
		arg.TableID,
		arg.OrderMetadata,
	)
	return scanOrder(row)
}

// UpdateOrderStatus writes the new status plus any optional timing fields.
// When ExpectedStatus is set the row only changes if it still holds that
// status; a concurrent transition then surfaces as pgx.ErrNoRows.
const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET
    status = $4,
    kitchen_notes = COALESCE($5, kitchen_notes),
    estimated_ready_time = COALESCE($6, estimated_ready_time),
    prep_time_minutes = COALESCE($7, prep_time_minutes),
    actual_ready_time = COALESCE(actual_ready_time, $8),
    updated_at = now()
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3
  AND ($9::order_status IS NULL OR status = $9)
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID                 uuid.UUID          `json:"id"`
	OrganizationID     uuid.UUID          `json:"organization_id"`
	RestaurantID       uuid.UUID          `json:"restaurant_id"`
	Status             OrderStatus        `json:"status"`
	KitchenNotes       pgtype.Text        `json:"kitchen_notes"`
	EstimatedReadyTime pgtype.Timestamptz `json:"estimated_ready_time"`
	PrepTimeMinutes    pgtype.Int4        `json:"prep_time_minutes"`
	ActualReadyTime    pgtype.Timestamptz `json:"actual_ready_time"`
	ExpectedStatus     NullOrderStatus    `json:"expected_status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Status,
		arg.KitchenNotes,
		arg.EstimatedReadyTime,
		arg.PrepTimeMinutes,
		arg.ActualReadyTime,
		arg.ExpectedStatus,
	)
	return scanOrder(row)
}

const confirmPendingOrder = `-- name: ConfirmPendingOrder :one
UPDATE orders SET status = 'confirmed', updated_at = now()
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3 AND status = 'pending'
RETURNING ` + orderColumns

type ConfirmPendingOrderParams struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) ConfirmPendingOrder(ctx context.Context, arg ConfirmPendingOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, confirmPendingOrder, arg.ID, arg.OrganizationID, arg.RestaurantID)
	return scanOrder(row)
}
