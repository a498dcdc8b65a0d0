package model

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSucceeded OrderStatus = "succeeded"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSucceeded || s == OrderStatusFailed
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusSucceeded, OrderStatusFailed:
		return true
	}
	return false
}

// Order amount is a snapshot taken at checkout and never updated.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Amount          decimal.Decimal `gorm:"not null;type:decimal(12,2)" json:"amount"`
	Currency        string          `gorm:"not null;type:varchar(3)" json:"currency"`
	Status          OrderStatus     `gorm:"not null;default:'pending';type:varchar(16);index" json:"status"`
	Provider        string          `gorm:"not null;type:varchar(32)" json:"provider"`
	SessionRef      *string         `gorm:"uniqueIndex;type:varchar(255)" json:"session_ref,omitempty"`
	SessionToken    *string         `gorm:"type:varchar(512)" json:"-"`
	PaymentIntentID *string         `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty"`
	BaseModel
}
