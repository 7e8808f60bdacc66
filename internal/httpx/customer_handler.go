package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	kafkax "github.com/urbandrip/storefront-api/internal/kafka"
	"github.com/urbandrip/storefront-api/internal/orders"
	"github.com/urbandrip/storefront-api/internal/receipt"
	"github.com/urbandrip/storefront-api/internal/redisx"
)

// CustomerHandler serves everything under /api/cliente: checkout, the
// reservation confirmation and the order history.
type CustomerHandler struct {
	Orders         OrderStore
	Reservations   ReservationStore
	Redis          redis.Cmdable
	Producer       kafkax.Publisher
	Service        string
	ReservationTTL time.Duration
	Now            func() time.Time
}

type CheckoutReq struct {
	ExternalID    string             `json:"external_id"`
	PaymentMethod string             `json:"metodo_pago"`
	Items         []orders.ItemInput `json:"items"`
}

type CheckoutResp struct {
	Reservation orders.Reservation `json:"reserva"`
	Idempotent  bool               `json:"idempotente"`
}

type OrderResp struct {
	Order       orders.Order        `json:"pedido"`
	Reservation *orders.Reservation `json:"reserva,omitempty"`
}

func (h *CustomerHandler) Register(r chi.Router, authn *Authenticator) {
	r.Route("/api/cliente", func(r chi.Router) {
		r.With(authn.RequireAuth).Post("/checkout", h.checkout)
		r.With(authn.RequireAuth).Get("/reserva/{id}", h.getReservation)
		r.With(authn.RequireAuth).Get("/mis-pedidos", h.listOrders)
		r.With(authn.RequireAuth).Get("/pedido/{id}", h.getOrder)
		r.With(authn.RequireAuthOrQuery).Get("/pedido/{id}/pdf", h.getOrderPDF)
	})
}

func (h *CustomerHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func customerID(r *http.Request) string {
	c, _ := ClaimsFrom(r.Context())
	return c.UserID
}

func (h *CustomerHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExternalID == "" {
		req.ExternalID = r.Header.Get("Idempotency-Key")
	}
	customer := customerID(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis; the DB still has the final word
	var idemKey string
	if req.ExternalID != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, customer+":"+req.ExternalID)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			if res, err := h.Reservations.GetReservation(ctx, customer, orderID); err == nil {
				writeJSON(w, http.StatusOK, CheckoutResp{Reservation: res, Idempotent: true})
				return
			}
		}
	} else {
		req.ExternalID = uuid.NewString()
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, customer+":"+req.ExternalID)
	}

	res, existed, err := h.Reservations.ReserveOrder(ctx, orders.CheckoutInput{
		ExternalID:    req.ExternalID,
		CustomerID:    customer,
		PaymentMethod: req.PaymentMethod,
		Items:         req.Items,
		Now:           h.now(),
		TTL:           h.ReservationTTL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = h.Redis.Set(ctx, idemKey, res.OrderID, redisx.TTLIdempotency).Err()
	if existed {
		writeJSON(w, http.StatusOK, CheckoutResp{Reservation: res, Idempotent: true})
		return
	}

	invalidateCatalog(ctx, h.Redis)
	h.publishReserved(r, customer, res, req.Items)
	writeJSON(w, http.StatusCreated, CheckoutResp{Reservation: res})
}

func (h *CustomerHandler) publishReserved(r *http.Request, customer string, res orders.Reservation, items []orders.ItemInput) {
	qty := make([]orders.ItemQty, 0, len(items))
	for _, it := range items {
		qty = append(qty, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderReserved,
		EventVersion:  1,
		OccurredAt:    h.now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.OrderID,
		Payload: kafkax.MustMarshal(orders.OrderReservedPayload{
			OrderID:       res.OrderID,
			CustomerID:    customer,
			Code:          res.Code,
			PaymentMethod: res.PaymentMethod,
			TotalCents:    res.TotalCents,
			Items:         qty,
			ExpiresAt:     res.ExpiresAt,
		}),
	}
	h.Producer.Publish(orders.TopicOrderReserved, orders.PartitionKey(res.OrderID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventOrderReserved)...)
}

func (h *CustomerHandler) getReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Reservations.GetReservation(ctx, customerID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reserva": res})
}

func (h *CustomerHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListCustomerOrders(ctx, customerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pedidos": list})
}

// loadOrder fetches the order and its reservation in parallel. A missing
// reservation is not an error.
func (h *CustomerHandler) loadOrder(ctx context.Context, customer, id string) (OrderResp, error) {
	var (
		out OrderResp
		res orders.Reservation
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := h.Orders.GetCustomerOrder(ctx, customer, id)
		out.Order = o
		return err
	})
	g.Go(func() error {
		var err error
		res, err = h.Reservations.GetReservation(ctx, customer, id)
		if errors.Is(err, orders.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return OrderResp{}, err
	}
	if res.OrderID != "" {
		out.Reservation = &res
	}
	return out, nil
}

func (h *CustomerHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.loadOrder(ctx, customerID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CustomerHandler) getOrderPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.loadOrder(ctx, customerID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := receipt.Render(&buf, out.Order, out.Reservation); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="pedido-%s.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("write pdf %s: %v", id, err)
	}
}
