package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of a food order
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// OrderStatuses lists every recognized status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type Order struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	CustomerID          uint            `json:"customer" gorm:"not null;index"`
	Customer            *User           `json:"customer_details" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CustomerName        string          `json:"customer_name" gorm:"size:200;not null"`
	DeliveryAddress     string          `json:"delivery_address" gorm:"type:text;not null"`
	PhoneNumber         string          `json:"phone_number" gorm:"size:15;not null"`
	SpecialInstructions *string         `json:"special_instructions" gorm:"type:text"`
	PaymentMethod       PaymentMethod   `json:"payment_method" gorm:"type:varchar(20);not null"`
	Total               decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	Status              OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	DeliveryStaffID     *uint           `json:"delivery_staff" gorm:"index"`
	DeliveryStaff       *User           `json:"delivery_staff_details" gorm:"foreignKey:DeliveryStaffID;constraint:OnDelete:SET NULL"`
	Items               []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	DeliveredAt         *time.Time      `json:"delivered_at"`
}

// OrderItem is one line of an order. Name and Price are snapshots taken when
// the order was placed.
type OrderItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"-" gorm:"not null;index"`
	FoodItemID uint            `json:"food_item" gorm:"not null;index"`
	Name       string          `json:"name" gorm:"size:200;not null"`
	Quantity   int             `json:"quantity" gorm:"not null;default:1"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"-"`
}

// LineTotal is quantity times the snapshot unit price.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *OrderItem) AfterFind(tx *gorm.DB) error {
	i.Subtotal = i.LineTotal()
	return nil
}

func (i *OrderItem) AfterSave(tx *gorm.DB) error {
	i.Subtotal = i.LineTotal()
	return nil
}

// OrderStatusHistory tracks every status change as an audit trail
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	Order      *Order      `json:"-" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	FromStatus OrderStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus   OrderStatus `json:"to_status" gorm:"type:varchar(20);not null"`
	ChangedBy  *uint       `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
