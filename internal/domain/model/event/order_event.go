package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	OrderCreatedEventName       EventType = "order.created"
	OrderSessionOpenedEventName EventType = "order.session_opened"
	OrderSucceededEventName     EventType = "order.succeeded"
	OrderFailedEventName        EventType = "order.failed"
)

// OrderEvent records one step of an order's lifecycle.
type OrderEvent struct {
	EventID         string          `json:"eventId"`
	EventType       EventType       `json:"eventType"`
	OrderID         uint            `json:"orderId"`
	UserID          uint            `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	SessionRef      string          `json:"sessionRef,omitempty"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (e *OrderEvent) GetID() string {
	return e.EventID
}

func (e *OrderEvent) Type() EventType {
	return e.EventType
}
