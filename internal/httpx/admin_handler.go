package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/urbandrip/storefront-api/internal/auth"
	kafkax "github.com/urbandrip/storefront-api/internal/kafka"
	"github.com/urbandrip/storefront-api/internal/orders"
)

// AdminHandler is the minimal back office: product list, create, enable or
// disable, and manual payment confirmation of a reservation.
type AdminHandler struct {
	Products     ProductStore
	Reservations ReservationStore
	Redis        redis.Cmdable
	Producer     kafkax.Publisher
	Service      string
	Now          func() time.Time
}

type StatusReq struct {
	Status orders.ProductStatus `json:"estado"`
}

func (h *AdminHandler) Register(r chi.Router, authn *Authenticator) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authn.RequireAuth, RequireRole(auth.RoleAdmin))
		r.Get("/productos", h.listProducts)
		r.Post("/producto", h.createProduct)
		r.Put("/producto/{id}", h.setProductStatus)
		r.Put("/pedido/{id}/pago", h.confirmPayment)
	})
}

func (h *AdminHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.ListProducts(ctx, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req orders.NewProduct
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.CreateProduct(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidateCatalog(ctx, h.Redis)
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) setProductStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	var req StatusReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.SetProductStatus(ctx, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidateCatalog(ctx, h.Redis)

	h.publish(r, orders.TopicProductStatusChanged, orders.EventProductStatusChanged, p.ID,
		orders.ProductStatusChangedPayload{ProductID: p.ID, Status: p.Status})
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	now := h.now()
	res, err := h.Reservations.ConfirmPayment(ctx, id, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.publish(r, orders.TopicOrderPaid, orders.EventOrderPaid, res.OrderID,
		orders.OrderPaidPayload{OrderID: res.OrderID, TotalCents: res.TotalCents, PaidAt: now.UTC()})
	writeJSON(w, http.StatusOK, map[string]any{"reserva": res})
}

func (h *AdminHandler) publish(r *http.Request, topic, eventType, aggregateID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    h.now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: aggregateID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(topic, orders.PartitionKey(aggregateID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(eventType)...)
}
