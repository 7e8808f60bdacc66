package orders

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxLineQty = 99

var paymentMethods = map[string]bool{
	"efectivo":      true,
	"transferencia": true,
	"tarjeta":       true,
}

type ItemInput struct {
	ProductID string `json:"producto_id"`
	Qty       int    `json:"cantidad"`
}

type CheckoutInput struct {
	ExternalID    string
	CustomerID    string
	PaymentMethod string
	Items         []ItemInput
	Now           time.Time
	TTL           time.Duration
}

// Normalize validates the input and returns a copy with duplicate products
// merged and lines sorted by product id, which is the row lock order.
func (in CheckoutInput) Normalize() (CheckoutInput, error) {
	out := in
	out.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !paymentMethods[out.PaymentMethod] {
		return CheckoutInput{}, newValidationError("unsupported payment method %q", in.PaymentMethod)
	}
	if in.CustomerID == "" {
		return CheckoutInput{}, newValidationError("missing customer")
	}
	if len(in.Items) == 0 {
		return CheckoutInput{}, newValidationError("cart is empty")
	}
	if in.TTL <= 0 {
		return CheckoutInput{}, newValidationError("reservation ttl must be positive")
	}
	if out.ExternalID == "" {
		out.ExternalID = uuid.NewString()
	}

	merged := map[string]int{}
	for _, it := range in.Items {
		if _, err := uuid.Parse(it.ProductID); err != nil {
			return CheckoutInput{}, newValidationError("invalid product id %q", it.ProductID)
		}
		if it.Qty <= 0 {
			return CheckoutInput{}, newValidationError("invalid qty for product %s", it.ProductID)
		}
		merged[it.ProductID] += it.Qty
		if merged[it.ProductID] > maxLineQty {
			return CheckoutInput{}, newValidationError("qty for product %s exceeds %d", it.ProductID, maxLineQty)
		}
	}
	out.Items = make([]ItemInput, 0, len(merged))
	for id, qty := range merged {
		out.Items = append(out.Items, ItemInput{ProductID: id, Qty: qty})
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ProductID < out.Items[j].ProductID })
	return out, nil
}
