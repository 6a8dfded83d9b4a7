package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type NullOrderStatus struct {
	OrderStatus OrderStatus `json:"order_status"`
	Valid       bool        `json:"valid"` // Valid is true if OrderStatus is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullOrderStatus) Scan(value interface{}) error {
	if value == nil {
		ns.OrderStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.OrderStatus.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullOrderStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.OrderStatus), nil
}

func (e OrderStatus) Valid() bool {
	switch e {
	case OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	}
	return false
}

func AllOrderStatusValues() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeQrOrder  OrderType = "qr_order"
)

func (e *OrderType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderType(s)
	case string:
		*e = OrderType(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderType: %T", src)
	}
	return nil
}

type NullOrderType struct {
	OrderType OrderType `json:"order_type"`
	Valid     bool      `json:"valid"` // Valid is true if OrderType is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullOrderType) Scan(value interface{}) error {
	if value == nil {
		ns.OrderType, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.OrderType.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullOrderType) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.OrderType), nil
}

func (e OrderType) Valid() bool {
	switch e {
	case OrderTypeDineIn,
		OrderTypeTakeout,
		OrderTypeDelivery,
		OrderTypeQrOrder:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodDebitCard     PaymentMethod = "debit_card"
	PaymentMethodMobilePayment PaymentMethod = "mobile_payment"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
	PaymentMethodGiftCard      PaymentMethod = "gift_card"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodOther         PaymentMethod = "other"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

func (e PaymentMethod) Valid() bool {
	switch e {
	case PaymentMethodCash,
		PaymentMethodCreditCard,
		PaymentMethodDebitCard,
		PaymentMethodMobilePayment,
		PaymentMethodDigitalWallet,
		PaymentMethodGiftCard,
		PaymentMethodBankTransfer,
		PaymentMethodOther:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

func (e *PaymentStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentStatus(s)
	case string:
		*e = PaymentStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentStatus: %T", src)
	}
	return nil
}

func (e PaymentStatus) Valid() bool {
	switch e {
	case PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

type MenuItem struct {
	ID              uuid.UUID      `json:"id"`
	OrganizationID  uuid.UUID      `json:"organization_id"`
	RestaurantID    uuid.UUID      `json:"restaurant_id"`
	Name            string         `json:"name"`
	Description     pgtype.Text    `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	PrepTimeMinutes pgtype.Int4    `json:"prep_time_minutes"`
	IsAvailable     bool           `json:"is_available"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Modifier struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	RestaurantID   uuid.UUID      `json:"restaurant_id"`
	Name           string         `json:"name"`
	Price          pgtype.Numeric `json:"price"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
}

type Order struct {
	ID                  uuid.UUID          `json:"id"`
	OrganizationID      uuid.UUID          `json:"organization_id"`
	RestaurantID        uuid.UUID          `json:"restaurant_id"`
	OrderNumber         string             `json:"order_number"`
	OrderType           OrderType          `json:"order_type"`
	Status              OrderStatus        `json:"status"`
	CustomerName        pgtype.Text        `json:"customer_name"`
	CustomerPhone       pgtype.Text        `json:"customer_phone"`
	CustomerEmail       pgtype.Text        `json:"customer_email"`
	Subtotal            pgtype.Numeric     `json:"subtotal"`
	TaxAmount           pgtype.Numeric     `json:"tax_amount"`
	TipAmount           pgtype.Numeric     `json:"tip_amount"`
	TotalAmount         pgtype.Numeric     `json:"total_amount"`
	RequestedTime       pgtype.Timestamptz `json:"requested_time"`
	EstimatedReadyTime  pgtype.Timestamptz `json:"estimated_ready_time"`
	ActualReadyTime     pgtype.Timestamptz `json:"actual_ready_time"`
	PrepTimeMinutes     pgtype.Int4        `json:"prep_time_minutes"`
	SpecialInstructions pgtype.Text        `json:"special_instructions"`
	KitchenNotes        pgtype.Text        `json:"kitchen_notes"`
	TableID             pgtype.UUID        `json:"table_id"`
	ReservationID       pgtype.UUID        `json:"reservation_id"`
	QrSessionID         pgtype.UUID        `json:"qr_session_id"`
	OrderMetadata       []byte             `json:"order_metadata"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID                  uuid.UUID          `json:"id"`
	OrderID             uuid.UUID          `json:"order_id"`
	MenuItemID          uuid.UUID          `json:"menu_item_id"`
	MenuItemName        string             `json:"menu_item_name"`
	MenuItemDescription pgtype.Text        `json:"menu_item_description"`
	Quantity            int32              `json:"quantity"`
	UnitPrice           pgtype.Numeric     `json:"unit_price"`
	TotalPrice          pgtype.Numeric     `json:"total_price"`
	SpecialInstructions pgtype.Text        `json:"special_instructions"`
	KitchenNotes        pgtype.Text        `json:"kitchen_notes"`
	PrepStartTime       pgtype.Timestamptz `json:"prep_start_time"`
	PrepCompleteTime    pgtype.Timestamptz `json:"prep_complete_time"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type OrderItemModifier struct {
	ID           uuid.UUID      `json:"id"`
	OrderItemID  uuid.UUID      `json:"order_item_id"`
	ModifierID   uuid.UUID      `json:"modifier_id"`
	ModifierName string         `json:"modifier_name"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	Quantity     int32          `json:"quantity"`
	TotalPrice   pgtype.Numeric `json:"total_price"`
}

type Payment struct {
	ID                  uuid.UUID          `json:"id"`
	OrganizationID      uuid.UUID          `json:"organization_id"`
	RestaurantID        uuid.UUID          `json:"restaurant_id"`
	OrderID             uuid.UUID          `json:"order_id"`
	Amount              pgtype.Numeric     `json:"amount"`
	TipAmount           pgtype.Numeric     `json:"tip_amount"`
	PaymentMethod       PaymentMethod      `json:"payment_method"`
	Status              PaymentStatus      `json:"status"`
	TransactionID       pgtype.Text        `json:"transaction_id"`
	Processor           pgtype.Text        `json:"processor"`
	CardLastFour        pgtype.Text        `json:"card_last_four"`
	CardBrand           pgtype.Text        `json:"card_brand"`
	IsSplitPayment      bool               `json:"is_split_payment"`
	SplitPaymentGroupID pgtype.UUID        `json:"split_payment_group_id"`
	RefundAmount        pgtype.Numeric     `json:"refund_amount"`
	RefundReason        pgtype.Text        `json:"refund_reason"`
	RefundedAt          pgtype.Timestamptz `json:"refunded_at"`
	ProcessedAt         pgtype.Timestamptz `json:"processed_at"`
	Notes               pgtype.Text        `json:"notes"`
	PaymentMetadata     []byte             `json:"payment_metadata"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
