package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, organization_id, restaurant_id, order_id, amount, tip_amount,
    payment_method, status, transaction_id, processor, card_last_four, card_brand,
    is_split_payment, split_payment_group_id, refund_amount, refund_reason, refunded_at,
    processed_at, notes, payment_metadata, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.OrderID,
		&i.Amount,
		&i.TipAmount,
		&i.PaymentMethod,
		&i.Status,
		&i.TransactionID,
		&i.Processor,
		&i.CardLastFour,
		&i.CardBrand,
		&i.IsSplitPayment,
		&i.SplitPaymentGroupID,
		&i.RefundAmount,
		&i.RefundReason,
		&i.RefundedAt,
		&i.ProcessedAt,
		&i.Notes,
		&i.PaymentMetadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (
    organization_id, restaurant_id, order_id, amount, tip_amount, payment_method,
    status, is_split_payment, split_payment_group_id, notes, payment_metadata
) VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9, $10)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrganizationID      uuid.UUID      `json:"organization_id"`
	RestaurantID        uuid.UUID      `json:"restaurant_id"`
	OrderID             uuid.UUID      `json:"order_id"`
	Amount              pgtype.Numeric `json:"amount"`
	TipAmount           pgtype.Numeric `json:"tip_amount"`
	PaymentMethod       PaymentMethod  `json:"payment_method"`
	IsSplitPayment      bool           `json:"is_split_payment"`
	SplitPaymentGroupID pgtype.UUID    `json:"split_payment_group_id"`
	Notes               pgtype.Text    `json:"notes"`
	PaymentMetadata     []byte         `json:"payment_metadata"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.OrderID,
		arg.Amount,
		arg.TipAmount,
		arg.PaymentMethod,
		arg.IsSplitPayment,
		arg.SplitPaymentGroupID,
		arg.Notes,
		arg.PaymentMetadata,
	)
	return scanPayment(row)
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE payments SET
    status = $2,
    transaction_id = COALESCE($3, transaction_id),
    processor = COALESCE($4, processor),
    card_last_four = COALESCE($5, card_last_four),
    card_brand = COALESCE($6, card_brand),
    processed_at = COALESCE($7, processed_at),
    updated_at = now()
WHERE id = $1
RETURNING ` + paymentColumns

type UpdatePaymentStatusParams struct {
	ID            uuid.UUID          `json:"id"`
	Status        PaymentStatus      `json:"status"`
	TransactionID pgtype.Text        `json:"transaction_id"`
	Processor     pgtype.Text        `json:"processor"`
	CardLastFour  pgtype.Text        `json:"card_last_four"`
	CardBrand     pgtype.Text        `json:"card_brand"`
	ProcessedAt   pgtype.Timestamptz `json:"processed_at"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePaymentStatus,
		arg.ID,
		arg.Status,
		arg.TransactionID,
		arg.Processor,
		arg.CardLastFour,
		arg.CardBrand,
		arg.ProcessedAt,
	)
	return scanPayment(row)
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + ` FROM payments
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3
`

type GetPaymentParams struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetPayment(ctx context.Context, arg GetPaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, getPayment, arg.ID, arg.OrganizationID, arg.RestaurantID)
	return scanPayment(row)
}

const listPaymentsByOrder = `-- name: ListPaymentsByOrder :many
SELECT ` + paymentColumns + ` FROM payments
WHERE order_id = $1 AND organization_id = $2 AND restaurant_id = $3
ORDER BY created_at, id
`

type ListPaymentsByOrderParams struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, arg ListPaymentsByOrderParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, arg.OrderID, arg.OrganizationID, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
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

const sumCompletedPaymentsByOrder = `-- name: SumCompletedPaymentsByOrder :one
SELECT COALESCE(SUM(amount), 0)::numeric FROM payments
WHERE order_id = $1 AND organization_id = $2 AND restaurant_id = $3
  AND status = 'completed'
`

type SumCompletedPaymentsByOrderParams struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) SumCompletedPaymentsByOrder(ctx context.Context, arg SumCompletedPaymentsByOrderParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumCompletedPaymentsByOrder, arg.OrderID, arg.OrganizationID, arg.RestaurantID)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

// RefundPayment only touches completed payments so two concurrent refunds
// cannot both succeed.
const refundPayment = `-- name: RefundPayment :one
UPDATE payments SET
    status = $4,
    refund_amount = $5,
    refund_reason = $6,
    refunded_at = now(),
    notes = CASE WHEN notes IS NULL OR notes = '' THEN $7 ELSE notes || E'\n' || $7 END,
    updated_at = now()
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3 AND status = 'completed'
RETURNING ` + paymentColumns

type RefundPaymentParams struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	RestaurantID   uuid.UUID      `json:"restaurant_id"`
	Status         PaymentStatus  `json:"status"`
	RefundAmount   pgtype.Numeric `json:"refund_amount"`
	RefundReason   pgtype.Text    `json:"refund_reason"`
	Note           string         `json:"note"`
}

func (q *Queries) RefundPayment(ctx context.Context, arg RefundPaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, refundPayment,
		arg.ID,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Status,
		arg.RefundAmount,
		arg.RefundReason,
		arg.Note,
	)
	return scanPayment(row)
}

const getPaymentSummary = `-- name: GetPaymentSummary :many
SELECT payment_method,
    COUNT(*)::bigint AS payment_count,
    COALESCE(SUM(amount), 0)::numeric AS total_amount,
    COALESCE(SUM(tip_amount), 0)::numeric AS total_tips,
    COALESCE(SUM(refund_amount), 0)::numeric AS total_refunds
FROM payments
WHERE organization_id = $1 AND restaurant_id = $2
  AND status IN ('completed', 'refunded', 'partially_refunded')
  AND created_at >= $3 AND created_at < $4
GROUP BY payment_method
ORDER BY payment_method
`

type GetPaymentSummaryParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

type GetPaymentSummaryRow struct {
	PaymentMethod PaymentMethod  `json:"payment_method"`
	PaymentCount  int64          `json:"payment_count"`
	TotalAmount   pgtype.Numeric `json:"total_amount"`
	TotalTips     pgtype.Numeric `json:"total_tips"`
	TotalRefunds  pgtype.Numeric `json:"total_refunds"`
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.OrganizationID, arg.RestaurantID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPaymentSummaryRow{}
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(
			&i.PaymentMethod,
			&i.PaymentCount,
			&i.TotalAmount,
			&i.TotalTips,
			&i.TotalRefunds,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDailyPaymentTotals = `-- name: GetDailyPaymentTotals :many
SELECT created_at::date AS day,
    COUNT(*)::bigint AS payment_count,
    COALESCE(SUM(amount), 0)::numeric AS total_amount,
    COALESCE(SUM(tip_amount), 0)::numeric AS total_tips,
    COALESCE(SUM(refund_amount), 0)::numeric AS total_refunds
FROM payments
WHERE organization_id = $1 AND restaurant_id = $2
  AND status IN ('completed', 'refunded', 'partially_refunded')
  AND created_at >= $3 AND created_at < $4
GROUP BY day
ORDER BY day
`

type GetDailyPaymentTotalsParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

type GetDailyPaymentTotalsRow struct {
	Day          pgtype.Date    `json:"day"`
	PaymentCount int64          `json:"payment_count"`
	TotalAmount  pgtype.Numeric `json:"total_amount"`
	TotalTips    pgtype.Numeric `json:"total_tips"`
	TotalRefunds pgtype.Numeric `json:"total_refunds"`
}

func (q *Queries) GetDailyPaymentTotals(ctx context.Context, arg GetDailyPaymentTotalsParams) ([]GetDailyPaymentTotalsRow, error) {
	rows, err := q.db.Query(ctx, getDailyPaymentTotals, arg.OrganizationID, arg.RestaurantID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailyPaymentTotalsRow{}
	for rows.Next() {
		var i GetDailyPaymentTotalsRow
		if err := rows.Scan(
			&i.Day,
			&i.PaymentCount,
			&i.TotalAmount,
			&i.TotalTips,
			&i.TotalRefunds,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
