package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a bill opened against a table
type Order struct {
	ID            uint            `gorm:"primary_key" json:"id"`
	TableID       uint            `gorm:"not null;index" json:"table_id"`
	ReservationID *uint           `gorm:"unique_index" json:"reservation_id"`
	StatusID      uint            `gorm:"not null;index" json:"status_id"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Status OrderState  `gorm:"-" json:"status,omitempty"`
	Items  []OrderItem `gorm:"-" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem represents one menu item's quantity within an order
type OrderItem struct {
	Base
	OrderID    uint            `gorm:"not null;unique_index:idx_order_items_order_menu" json:"order_id"`
	MenuItemID uint            `gorm:"not null;unique_index:idx_order_items_order_menu" json:"menu_item_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Quantity   uint            `gorm:"not null;default:1" json:"quantity"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Reprice sets the amount from the given unit price and the current quantity.
func (oi *OrderItem) Reprice(price decimal.Decimal) {
	oi.Amount = Money(price.Mul(decimal.NewFromInt(int64(oi.Quantity))))
}

// SumAmounts totals the amounts of items.
func SumAmounts(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return Money(total)
}

// Payment is the one-per-order receipt flag.
type Payment struct {
	Base
	OrderID uint       `gorm:"not null;unique_index" json:"order_id"`
	Status  bool       `gorm:"not null;default:false" json:"status"`
	PaidAt  *time.Time `json:"paid_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// User is a staff account.
type User struct {
	Base
	Username     string `gorm:"size:150;not null;unique_index" json:"username"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	Role         string `gorm:"size:50;not null" json:"role"`
}

func (User) TableName() string {
	return "users"
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&MenuItem{},
		&TableStatus{},
		&Table{},
		&Reservation{},
		&OrderStatus{},
		&Order{},
		&OrderItem{},
		&Payment{},
	}
}
