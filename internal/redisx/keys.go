package redisx

import "time"

const (
	// Idempotencia checkout: idem:checkout:{external_id} -> order_id
	KeyIdemCheckout = "idem:checkout:%s"

	// Catalogo publico (solo activos), JSON ya serializado
	KeyCatalogActive = "catalog:products:active"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// ZSET order_id -> expires_at (unix seconds)
	KeyReservationExpiry = "reservations:expiry"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
