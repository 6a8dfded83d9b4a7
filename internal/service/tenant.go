package service

import "github.com/google/uuid"

// Tenant scopes every read and write to one restaurant of one organization.
type Tenant struct {
	OrganizationID uuid.UUID
	RestaurantID   uuid.UUID
}
