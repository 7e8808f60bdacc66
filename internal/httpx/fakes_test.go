package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/urbandrip/storefront-api/internal/auth"
	"github.com/urbandrip/storefront-api/internal/orders"
	"github.com/urbandrip/storefront-api/internal/redisx"
)

var testNow = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

// memStore backs every store interface with maps so handlers can be tested
// without Postgres.
type memStore struct {
	mu           sync.Mutex
	products     map[string]orders.Product
	orders       map[string]orders.Order
	reservations map[string]orders.Reservation
	byExternal   map[string]string
	users        map[string]auth.User
	listCalls    int
	listErr      error
}

func newMemStore() *memStore {
	return &memStore{
		products:     map[string]orders.Product{},
		orders:       map[string]orders.Order{},
		reservations: map[string]orders.Reservation{},
		byExternal:   map[string]string{},
		users:        map[string]auth.User{},
	}
}

func (s *memStore) addProduct(name string, price orders.Cents, stock int, status orders.ProductStatus) orders.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := orders.Product{
		ID: uuid.NewString(), Name: name, PriceCents: price, Stock: stock, Status: status,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) ListProducts(_ context.Context, includeInactive bool) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []orders.Product{}
	for _, p := range s.products {
		if includeInactive || p.Status == orders.ProductActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) GetProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return p, nil
}

func (s *memStore) CreateProduct(_ context.Context, in orders.NewProduct) (orders.Product, error) {
	return s.addProduct(in.Name, in.PriceCents, in.Stock, orders.ProductActive), nil
}

func (s *memStore) SetProductStatus(_ context.Context, id string, status orders.ProductStatus) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	p.Status = status
	s.products[id] = p
	return p, nil
}

func (s *memStore) ListCustomerOrders(_ context.Context, customerID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) GetCustomerOrder(_ context.Context, customerID, orderID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.CustomerID != customerID {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (s *memStore) ReserveOrder(_ context.Context, in orders.CheckoutInput) (orders.Reservation, bool, error) {
	in, err := in.Normalize()
	if err != nil {
		return orders.Reservation{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byExternal[in.CustomerID+":"+in.ExternalID]; ok {
		return s.reservations[id], true, nil
	}

	var (
		shortages []orders.StockShortage
		items     []orders.OrderItem
		total     orders.Cents
	)
	for _, it := range in.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return orders.Reservation{}, false, orders.ErrNotFound
		}
		if p.Status != orders.ProductActive {
			return orders.Reservation{}, false, orders.ErrProductInactive
		}
		if p.Stock < it.Qty {
			shortages = append(shortages, orders.StockShortage{ProductID: p.ID, Required: it.Qty, Available: p.Stock})
			continue
		}
		sub := p.PriceCents * orders.Cents(it.Qty)
		items = append(items, orders.OrderItem{
			ProductID: p.ID, ProductName: p.Name, Qty: it.Qty, PriceCents: p.PriceCents, SubtotalCents: sub,
		})
		total += sub
	}
	if len(shortages) > 0 {
		return orders.Reservation{}, false, &orders.StockError{Details: shortages}
	}
	for _, it := range items {
		p := s.products[it.ProductID]
		p.Stock -= it.Qty
		s.products[p.ID] = p
	}

	id := uuid.NewString()
	s.orders[id] = orders.Order{
		ID: id, CustomerID: in.CustomerID, Status: orders.StatusReserved,
		TotalCents: total, CreatedAt: in.Now, Items: items,
	}
	res := orders.Reservation{
		OrderID: id, TotalCents: total, PaymentMethod: in.PaymentMethod,
		Code: orders.ReservationCode(id, in.Now), Status: orders.ReservationActive,
		ReservedAt: in.Now, ExpiresAt: in.Now.Add(in.TTL),
	}
	s.reservations[id] = res
	s.byExternal[in.CustomerID+":"+in.ExternalID] = id
	return res, false, nil
}

func (s *memStore) GetReservation(_ context.Context, customerID, orderID string) (orders.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[orderID]
	if !ok || s.orders[orderID].CustomerID != customerID {
		return orders.Reservation{}, orders.ErrNotFound
	}
	return res, nil
}

func (s *memStore) ConfirmPayment(_ context.Context, orderID string, now time.Time) (orders.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[orderID]
	if !ok {
		return orders.Reservation{}, orders.ErrNotFound
	}
	if res.Expired(now) {
		return orders.Reservation{}, orders.ErrReservationExpired
	}
	if !orders.CanTransitionReservation(res.Status, orders.ReservationConfirmed) {
		return orders.Reservation{}, orders.ErrInvalidTransition
	}
	res.Status = orders.ReservationConfirmed
	s.reservations[orderID] = res
	o := s.orders[orderID]
	o.Status = orders.StatusPaid
	s.orders[orderID] = o
	return res, nil
}

func (s *memStore) Create(_ context.Context, name, email, passwordHash string, role auth.Role) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return auth.User{}, auth.ErrEmailTaken
	}
	u := auth.User{ID: uuid.NewString(), Name: name, Email: email, Role: role, PasswordHash: passwordHash, CreatedAt: testNow}
	s.users[email] = u
	return u, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

type sentMessage struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafkago.Header
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []sentMessage
}

func (p *fakePublisher) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, sentMessage{topic: topic, key: key, value: value, headers: headers})
}

func (p *fakePublisher) sent() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentMessage(nil), p.msgs...)
}

type testEnv struct {
	router *chi.Mux
	store  *memStore
	pub    *fakePublisher
	redis  *miniredis.Miniredis
	issuer *auth.Issuer
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		router: NewRouter(),
		store:  newMemStore(),
		pub:    &fakePublisher{},
		redis:  mr,
		issuer: auth.NewIssuer([]byte("test-secret"), time.Hour),
		now:    testNow,
	}
	clock := func() time.Time { return env.now }
	authn := &Authenticator{Issuer: env.issuer}

	(&AuthHandler{Users: env.store, Issuer: env.issuer}).Register(env.router)
	(&CatalogHandler{Products: env.store, Redis: rdb, CacheTTL: time.Minute}).Register(env.router)
	(&CustomerHandler{
		Orders:         env.store,
		Reservations:   env.store,
		Redis:          rdb,
		Producer:       env.pub,
		Service:        "storefront-test",
		ReservationTTL: 24 * time.Hour,
		Now:            clock,
	}).Register(env.router, authn)
	(&AdminHandler{
		Products:     env.store,
		Reservations: env.store,
		Redis:        rdb,
		Producer:     env.pub,
		Service:      "storefront-test",
		Now:          clock,
	}).Register(env.router, authn)
	return env
}

func (e *testEnv) token(t *testing.T, id string, role auth.Role) string {
	t.Helper()
	tok, err := e.issuer.Issue(auth.User{ID: id, Email: id + "@urbandrip.pe", Role: role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}
