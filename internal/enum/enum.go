package enum

// Order, order type and payment enums live in internal/database as typed
// values backed by Postgres ENUM types. The labels here have no DB enum.

// ── User roles (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleServer  = "SERVER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Domain event types (no DB constraint) ──

const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderItemUpdated   = "order_item.updated"
	EventPaymentCompleted   = "payment.completed"
	EventPaymentFailed      = "payment.failed"
	EventPaymentRefunded    = "payment.refunded"
)
