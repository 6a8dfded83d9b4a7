package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/events"
	"go.uber.org/zap"
)

// effects bundles the best-effort side channels shared by the services.
// Nothing here ever fails the calling operation.
type effects struct {
	cache     cache.Cache
	publisher events.Publisher
	logger    *zap.Logger
}

func (e effects) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if e.cache == nil {
		return false
	}
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		e.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (e effects) cacheSet(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := e.cache.Set(ctx, key, data, ttl); err != nil {
		e.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (e effects) clear(ctx context.Context, patterns ...string) {
	if e.cache == nil {
		return
	}
	for _, p := range patterns {
		if err := e.cache.ClearPattern(ctx, p); err != nil {
			e.logger.Warn("cache clear failed", zap.String("pattern", p), zap.Error(err))
		}
	}
}

// invalidateOrder drops the order's detail entry, every cached list and the
// kitchen views for the tenant.
func (e effects) invalidateOrder(ctx context.Context, tenant Tenant, orderID uuid.UUID) {
	e.clear(ctx,
		cache.OrderKey(tenant.OrganizationID, tenant.RestaurantID, orderID),
		cache.OrderListPattern(tenant.OrganizationID, tenant.RestaurantID),
		cache.KitchenPattern(tenant.OrganizationID, tenant.RestaurantID),
	)
}

func (e effects) publish(ctx context.Context, eventType string, tenant Tenant, orderID uuid.UUID, payload interface{}) {
	if e.publisher == nil {
		return
	}
	evt, err := events.New(eventType, tenant.OrganizationID, tenant.RestaurantID, orderID, payload)
	if err != nil {
		e.logger.Error("build event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		e.logger.Warn("publish event failed",
			zap.String("type", eventType),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

// appendNote adds line to an existing free-text notes column.
func appendNote(existing pgtype.Text, line string) pgtype.Text {
	if !existing.Valid || strings.TrimSpace(existing.String) == "" {
		return pgtype.Text{String: line, Valid: true}
	}
	return pgtype.Text{String: existing.String + "\n" + line, Valid: true}
}
