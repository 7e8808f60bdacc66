package httpx

import (
	"context"
	"time"

	"github.com/urbandrip/storefront-api/internal/auth"
	"github.com/urbandrip/storefront-api/internal/orders"
)

// Implemented by orders.Repo.
type ProductStore interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]orders.Product, error)
	GetProduct(ctx context.Context, id string) (orders.Product, error)
	CreateProduct(ctx context.Context, in orders.NewProduct) (orders.Product, error)
	SetProductStatus(ctx context.Context, id string, status orders.ProductStatus) (orders.Product, error)
}

// Implemented by orders.Repo.
type OrderStore interface {
	ListCustomerOrders(ctx context.Context, customerID string) ([]orders.Order, error)
	GetCustomerOrder(ctx context.Context, customerID, orderID string) (orders.Order, error)
}

// Implemented by orders.ReservationRepo.
type ReservationStore interface {
	ReserveOrder(ctx context.Context, in orders.CheckoutInput) (orders.Reservation, bool, error)
	GetReservation(ctx context.Context, customerID, orderID string) (orders.Reservation, error)
	ConfirmPayment(ctx context.Context, orderID string, now time.Time) (orders.Reservation, error)
}

// Implemented by auth.UserRepo.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role auth.Role) (auth.User, error)
	FindByEmail(ctx context.Context, email string) (auth.User, error)
}
