package service

import "github.com/tablekit/restaurant-api/internal/database"

// orderTransitions lists the forward moves the lifecycle drives on its own:
// payment confirms, the kitchen prepares and completes, staff hand over.
// The generic status update and cancellation deliberately bypass it.
var orderTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:   {database.OrderStatusConfirmed, database.OrderStatusCancelled},
	database.OrderStatusConfirmed: {database.OrderStatusPreparing, database.OrderStatusCancelled},
	database.OrderStatusPreparing: {database.OrderStatusReady, database.OrderStatusCancelled},
	database.OrderStatusReady:     {database.OrderStatusDelivered, database.OrderStatusCancelled},
	database.OrderStatusDelivered: {database.OrderStatusRefunded},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to database.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no lifecycle step leaves status.
func IsTerminal(status database.OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}
