package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, menu_item_id, menu_item_name, menu_item_description,
    quantity, unit_price, total_price, special_instructions, kitchen_notes,
    prep_start_time, prep_complete_time, created_at, updated_at`

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (
    order_id, menu_item_id, menu_item_name, menu_item_description,
    quantity, unit_price, total_price, special_instructions
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID             uuid.UUID      `json:"order_id"`
	MenuItemID          uuid.UUID      `json:"menu_item_id"`
	MenuItemName        string         `json:"menu_item_name"`
	MenuItemDescription pgtype.Text    `json:"menu_item_description"`
	Quantity            int32          `json:"quantity"`
	UnitPrice           pgtype.Numeric `json:"unit_price"`
	TotalPrice          pgtype.Numeric `json:"total_price"`
	SpecialInstructions pgtype.Text    `json:"special_instructions"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.MenuItemName,
		arg.MenuItemDescription,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
		arg.SpecialInstructions,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.MenuItemName,
		&i.MenuItemDescription,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.SpecialInstructions,
		&i.KitchenNotes,
		&i.PrepStartTime,
		&i.PrepCompleteTime,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrderItemModifier = `-- name: CreateOrderItemModifier :one
INSERT INTO order_item_modifiers (
    order_item_id, modifier_id, modifier_name, unit_price, quantity, total_price
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_item_id, modifier_id, modifier_name, unit_price, quantity, total_price
`

type CreateOrderItemModifierParams struct {
	OrderItemID  uuid.UUID      `json:"order_item_id"`
	ModifierID   uuid.UUID      `json:"modifier_id"`
	ModifierName string         `json:"modifier_name"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	Quantity     int32          `json:"quantity"`
	TotalPrice   pgtype.Numeric `json:"total_price"`
}

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	row := q.db.QueryRow(ctx, createOrderItemModifier,
		arg.OrderItemID,
		arg.ModifierID,
		arg.ModifierName,
		arg.UnitPrice,
		arg.Quantity,
		arg.TotalPrice,
	)
	var i OrderItemModifier
	err := row.Scan(
		&i.ID,
		&i.OrderItemID,
		&i.ModifierID,
		&i.ModifierName,
		&i.UnitPrice,
		&i.Quantity,
		&i.TotalPrice,
	)
	return i, err
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.MenuItemID,
			&i.MenuItemName,
			&i.MenuItemDescription,
			&i.Quantity,
			&i.UnitPrice,
			&i.TotalPrice,
			&i.SpecialInstructions,
			&i.KitchenNotes,
			&i.PrepStartTime,
			&i.PrepCompleteTime,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listOrderItemModifiersByOrder = `-- name: ListOrderItemModifiersByOrder :many
SELECT m.id, m.order_item_id, m.modifier_id, m.modifier_name, m.unit_price, m.quantity, m.total_price
FROM order_item_modifiers m
JOIN order_items oi ON oi.id = m.order_item_id
WHERE oi.order_id = $1
ORDER BY m.order_item_id, m.id
`

func (q *Queries) ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItemModifier{}
	for rows.Next() {
		var i OrderItemModifier
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.ModifierID,
			&i.ModifierName,
			&i.UnitPrice,
			&i.Quantity,
			&i.TotalPrice,
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

const updateOrderItemPreparation = `-- name: UpdateOrderItemPreparation :one
UPDATE order_items oi SET
    kitchen_notes = COALESCE($4, oi.kitchen_notes),
    prep_start_time = COALESCE($5, oi.prep_start_time),
    prep_complete_time = COALESCE($6, oi.prep_complete_time),
    updated_at = now()
FROM orders o
WHERE oi.id = $1 AND oi.order_id = o.id
  AND o.organization_id = $2 AND o.restaurant_id = $3
RETURNING oi.id, oi.order_id, oi.menu_item_id, oi.menu_item_name, oi.menu_item_description,
    oi.quantity, oi.unit_price, oi.total_price, oi.special_instructions, oi.kitchen_notes,
    oi.prep_start_time, oi.prep_complete_time, oi.created_at, oi.updated_at
`

type UpdateOrderItemPreparationParams struct {
	ID               uuid.UUID          `json:"id"`
	OrganizationID   uuid.UUID          `json:"organization_id"`
	RestaurantID     uuid.UUID          `json:"restaurant_id"`
	KitchenNotes     pgtype.Text        `json:"kitchen_notes"`
	PrepStartTime    pgtype.Timestamptz `json:"prep_start_time"`
	PrepCompleteTime pgtype.Timestamptz `json:"prep_complete_time"`
}

func (q *Queries) UpdateOrderItemPreparation(ctx context.Context, arg UpdateOrderItemPreparationParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemPreparation,
		arg.ID,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.KitchenNotes,
		arg.PrepStartTime,
		arg.PrepCompleteTime,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.MenuItemName,
		&i.MenuItemDescription,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.SpecialInstructions,
		&i.KitchenNotes,
		&i.PrepStartTime,
		&i.PrepCompleteTime,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
