package service

import (
	"testing"

	"github.com/tablekit/restaurant-api/internal/database"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to database.OrderStatus
		want     bool
	}{
		{database.OrderStatusPending, database.OrderStatusConfirmed, true},
		{database.OrderStatusPending, database.OrderStatusPreparing, false},
		{database.OrderStatusConfirmed, database.OrderStatusPreparing, true},
		{database.OrderStatusConfirmed, database.OrderStatusReady, false},
		{database.OrderStatusPreparing, database.OrderStatusReady, true},
		{database.OrderStatusPreparing, database.OrderStatusConfirmed, false},
		{database.OrderStatusReady, database.OrderStatusDelivered, true},
		{database.OrderStatusDelivered, database.OrderStatusRefunded, true},
		{database.OrderStatusCancelled, database.OrderStatusPending, false},
		{database.OrderStatusRefunded, database.OrderStatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range database.AllOrderStatusValues() {
		want := s == database.OrderStatusCancelled || s == database.OrderStatusRefunded
		if got := IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
	}
}
