package models

import (
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CustomerEmail *string         `gorm:"type:varchar(255);index" json:"customer_email"`
	CustomerName  *string         `gorm:"type:varchar(255)" json:"customer_name"`
	CustomID      *string         `gorm:"column:custom_id;type:varchar(255)" json:"custom_id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status        OrderStatus     `gorm:"type:varchar(50);not null;index" json:"status"`
	PaymentMethod *string         `gorm:"type:varchar(50)" json:"payment_method"`
	PaymentID     *string         `gorm:"type:varchar(255);index" json:"payment_id"`
	CreatedAt     int64           `gorm:"autoCreateTime:milli;not null" json:"created_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt int64           `gorm:"autoCreateTime:milli;not null" json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}
