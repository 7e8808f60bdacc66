package orders

import "time"

type Product struct {
	ID         string        `json:"id"`
	Name       string        `json:"nombre"`
	PriceCents Cents         `json:"precio"`
	ImageURL   string        `json:"imagen"`
	Status     ProductStatus `json:"estado"`
	Stock      int           `json:"stock"`
	CreatedAt  time.Time     `json:"creado"`
	UpdatedAt  time.Time     `json:"actualizado"`
}

type NewProduct struct {
	Name       string `json:"nombre"`
	PriceCents Cents  `json:"precio"`
	ImageURL   string `json:"imagen"`
	Stock      int    `json:"stock"`
}

type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"-"`
	Status     Status      `json:"estado"`
	TotalCents Cents       `json:"total"`
	CreatedAt  time.Time   `json:"fecha"`
	Items      []OrderItem `json:"items"`
}

type OrderItem struct {
	ProductID   string `json:"producto_id"`
	ProductName string `json:"producto"`
	Qty         int    `json:"cantidad"`
	PriceCents  Cents  `json:"precio_unitario"`
	// calculado: Qty * PriceCents
	SubtotalCents Cents `json:"subtotal"`
}

type Reservation struct {
	OrderID       string            `json:"pedido_id"`
	TotalCents    Cents             `json:"total"`
	PaymentMethod string            `json:"metodo_pago"`
	Code          string            `json:"codigo"`
	Status        ReservationStatus `json:"estado"`
	ReservedAt    time.Time         `json:"fecha_reserva"`
	ExpiresAt     time.Time         `json:"fecha_expiracion"`
}

// Expired reports whether an active reservation is past its deadline.
func (r Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationActive && !now.Before(r.ExpiresAt)
}
