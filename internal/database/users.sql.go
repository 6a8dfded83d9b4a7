package database

import (
	"context"

	"github.com/google/uuid"
)

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, organization_id, restaurant_id, email, hashed_password, full_name, role, is_active, created_at
FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, organization_id, restaurant_id, email, hashed_password, full_name, role, is_active, created_at
FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

// Seed helpers used by cmd/seed.

const createOrganization = `-- name: CreateOrganization :one
INSERT INTO organizations (name) VALUES ($1) RETURNING id
`

func (q *Queries) CreateOrganization(ctx context.Context, name string) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, createOrganization, name)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const createRestaurant = `-- name: CreateRestaurant :one
INSERT INTO restaurants (organization_id, name) VALUES ($1, $2) RETURNING id
`

type CreateRestaurantParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, createRestaurant, arg.OrganizationID, arg.Name)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (organization_id, restaurant_id, email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, organization_id, restaurant_id, email, hashed_password, full_name, role, is_active, created_at
`

type CreateUserParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.OrganizationID,
		arg.RestaurantID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.RestaurantID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listUsersByRestaurant = `-- name: ListUsersByRestaurant :many
SELECT id, organization_id, restaurant_id, email, hashed_password, full_name, role, is_active, created_at
FROM users
WHERE organization_id = $1 AND restaurant_id = $2 AND is_active = true
ORDER BY full_name
`

type ListUsersByRestaurantParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) ListUsersByRestaurant(ctx context.Context, arg ListUsersByRestaurantParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByRestaurant, arg.OrganizationID, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		var i User
		if err := rows.Scan(
			&i.ID,
			&i.OrganizationID,
			&i.RestaurantID,
			&i.Email,
			&i.HashedPassword,
			&i.FullName,
			&i.Role,
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

const deactivateUser = `-- name: DeactivateUser :one
UPDATE users SET is_active = false
WHERE id = $1 AND organization_id = $2 AND restaurant_id = $3 AND is_active = true
RETURNING id
`

type DeactivateUserParams struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) DeactivateUser(ctx context.Context, arg DeactivateUserParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deactivateUser, arg.ID, arg.OrganizationID, arg.RestaurantID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
