package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getMenuItemForOrder = `-- name: GetMenuItemForOrder :one
SELECT id, organization_id, restaurant_id, name, description, price, prep_time_minutes, is_available, created_at, updated_at
FROM menu_items
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3
`

type GetMenuItemForOrderParams struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, arg.ID, arg.OrganizationID, arg.RestaurantID)
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.PrepTimeMinutes,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT id, organization_id, restaurant_id, name, description, price, prep_time_minutes, is_available, created_at, updated_at
FROM menu_items
WHERE organization_id = $1 AND restaurant_id = $2
ORDER BY name
`

type ListMenuItemsParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.OrganizationID, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		var i MenuItem
		if err := rows.Scan(
			&i.ID,
			&i.OrganizationID,
			&i.RestaurantID,
			&i.Name,
			&i.Description,
			&i.Price,
			&i.PrepTimeMinutes,
			&i.IsAvailable,
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

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (organization_id, restaurant_id, name, description, price, prep_time_minutes, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, organization_id, restaurant_id, name, description, price, prep_time_minutes, is_available, created_at, updated_at
`

type CreateMenuItemParams struct {
	OrganizationID  uuid.UUID      `json:"organization_id"`
	RestaurantID    uuid.UUID      `json:"restaurant_id"`
	Name            string         `json:"name"`
	Description     pgtype.Text    `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	PrepTimeMinutes pgtype.Int4    `json:"prep_time_minutes"`
	IsAvailable     bool           `json:"is_available"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.PrepTimeMinutes,
		arg.IsAvailable,
	)
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.PrepTimeMinutes,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items SET
    name = COALESCE($4, name),
    description = COALESCE($5, description),
    price = COALESCE($6, price),
    prep_time_minutes = COALESCE($7, prep_time_minutes),
    is_available = COALESCE($8, is_available),
    updated_at = now()
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3
RETURNING id, organization_id, restaurant_id, name, description, price, prep_time_minutes, is_available, created_at, updated_at
`

type UpdateMenuItemParams struct {
	ID              uuid.UUID      `json:"id"`
	OrganizationID  uuid.UUID      `json:"organization_id"`
	RestaurantID    uuid.UUID      `json:"restaurant_id"`
	Name            pgtype.Text    `json:"name"`
	Description     pgtype.Text    `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	PrepTimeMinutes pgtype.Int4    `json:"prep_time_minutes"`
	IsAvailable     pgtype.Bool    `json:"is_available"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.PrepTimeMinutes,
		arg.IsAvailable,
	)
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.PrepTimeMinutes,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getModifierForOrder = `-- name: GetModifierForOrder :one
SELECT id, organization_id, restaurant_id, name, price, is_active, created_at
FROM modifiers
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3 AND is_active = true
`

type GetModifierForOrderParams struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetModifierForOrder(ctx context.Context, arg GetModifierForOrderParams) (Modifier, error) {
	row := q.db.QueryRow(ctx, getModifierForOrder, arg.ID, arg.OrganizationID, arg.RestaurantID)
	var i Modifier
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listModifiers = `-- name: ListModifiers :many
SELECT id, organization_id, restaurant_id, name, price, is_active, created_at
FROM modifiers
WHERE organization_id = $1 AND restaurant_id = $2
ORDER BY name
`

type ListModifiersParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) ListModifiers(ctx context.Context, arg ListModifiersParams) ([]Modifier, error) {
	rows, err := q.db.Query(ctx, listModifiers, arg.OrganizationID, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Modifier{}
	for rows.Next() {
		var i Modifier
		if err := rows.Scan(
			&i.ID,
			&i.OrganizationID,
			&i.RestaurantID,
			&i.Name,
			&i.Price,
			&i.IsActive,
			&i.CreatedAt,
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

const createModifier = `-- name: CreateModifier :one
INSERT INTO modifiers (organization_id, restaurant_id, name, price)
VALUES ($1, $2, $3, $4)
RETURNING id, organization_id, restaurant_id, name, price, is_active, created_at
`

type CreateModifierParams struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	RestaurantID   uuid.UUID      `json:"restaurant_id"`
	Name           string         `json:"name"`
	Price          pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateModifier(ctx context.Context, arg CreateModifierParams) (Modifier, error) {
	row := q.db.QueryRow(ctx, createModifier,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Name,
		arg.Price,
	)
	var i Modifier
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}
