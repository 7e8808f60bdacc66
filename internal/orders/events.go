package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderReserved        = "OrderReserved"
	EventOrderPaid            = "OrderPaid"
	EventReservationExpired   = "ReservationExpired"
	EventProductStatusChanged = "ProductStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // pedido o producto
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderReservedPayload struct {
	OrderID       string    `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	Code          string    `json:"code"`
	PaymentMethod string    `json:"payment_method"`
	TotalCents    Cents     `json:"total"`
	Items         []ItemQty `json:"items"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type OrderPaidPayload struct {
	OrderID    string    `json:"order_id"`
	TotalCents Cents     `json:"total"`
	PaidAt     time.Time `json:"paid_at"`
}

type ReservationExpiredPayload struct {
	OrderID   string    `json:"order_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type ProductStatusChangedPayload struct {
	ProductID string        `json:"product_id"`
	Status    ProductStatus `json:"status"`
}
