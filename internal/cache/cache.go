// Package cache provides the short-lived read cache used by the order and
// kitchen services. Callers treat every error as a miss.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// ClearPattern removes every key matching a glob pattern ("*" wildcard).
	ClearPattern(ctx context.Context, pattern string) error
}

func OrderKey(orgID, restaurantID, orderID uuid.UUID) string {
	return fmt.Sprintf("orders:%s:%s:detail:%s", orgID, restaurantID, orderID)
}

func OrderListKey(orgID, restaurantID uuid.UUID, filterHash string) string {
	return fmt.Sprintf("orders:%s:%s:list:%s", orgID, restaurantID, filterHash)
}

func OrderListPattern(orgID, restaurantID uuid.UUID) string {
	return fmt.Sprintf("orders:%s:%s:list:*", orgID, restaurantID)
}

func KitchenQueueKey(orgID, restaurantID uuid.UUID) string {
	return fmt.Sprintf("kitchen:%s:%s:queue", orgID, restaurantID)
}

func KitchenPattern(orgID, restaurantID uuid.UUID) string {
	return fmt.Sprintf("kitchen:%s:%s:*", orgID, restaurantID)
}
