package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/urbandrip/storefront-api/internal/kafka"
	"github.com/urbandrip/storefront-api/internal/orders"
	"github.com/urbandrip/storefront-api/internal/redisx"
)

const defaultBatch = 100

type Store interface {
	ExpireReservation(ctx context.Context, orderID string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Service keeps the expiry schedule fed from order.reserved events and
// releases reservations whose time ran out.
type Service struct {
	Repo        Store
	Redis       redis.Cmdable
	Producer    kafkax.Publisher // publish reservation.expired
	ServiceName string
	Logger      *log.Logger
	BatchSize   int
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var defaultLogger = log.New(os.Stdout, "[reservations] ", log.LstdFlags)

func (s *Service) logger() *log.Logger {
	if s.Logger == nil {
		return defaultLogger
	}
	return s.Logger
}

func (s *Service) batch() int {
	if s.BatchSize <= 0 {
		return defaultBatch
	}
	return s.BatchSize
}

// HandleOrderReserved is installed as the consumer handler.
func (s *Service) HandleOrderReserved(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// mensaje corrupto: no se puede reintentar con exito
		s.logger().Printf("drop undecodable message at offset %d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventOrderReserved {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderReservedPayload](env.Payload)
	if err != nil {
		s.logger().Printf("drop event %s: %v", env.EventID, err)
		return nil
	}
	if err := redisx.ScheduleExpiry(ctx, s.Redis, p.OrderID, p.ExpiresAt); err != nil {
		return fmt.Errorf("schedule %s: %w", p.OrderID, err)
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

// Sweep expires every due reservation, taken from the Redis schedule and from
// the database, and reports how many were actually released.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	scheduled, err := redisx.DueExpiries(ctx, s.Redis, now, int64(s.batch()))
	if err != nil {
		// sin Redis seguimos con la base de datos
		s.logger().Printf("read schedule: %v", err)
	}
	stale, err := s.Repo.ListExpired(ctx, now, s.batch())
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	seen := make(map[string]bool, len(scheduled)+len(stale))
	var ids []string
	for _, id := range append(scheduled, stale...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var (
		released int
		errs     []error
	)
	for _, id := range ids {
		ok, err := s.Repo.ExpireReservation(ctx, id, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire %s: %w", id, err))
			continue
		}
		if ok {
			released++
			s.publishExpired(id, now)
		}
		if err := redisx.Unschedule(ctx, s.Redis, id); err != nil {
			s.logger().Printf("unschedule %s: %v", id, err)
		}
	}
	return released, errors.Join(errs...)
}

// Run sweeps every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.logger().Printf("sweep: %v", err)
		} else if n > 0 {
			s.logger().Printf("released %d expired reservations", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (s *Service) publishExpired(orderID string, at time.Time) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventReservationExpired,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.ReservationExpiredPayload{OrderID: orderID, ExpiredAt: at.UTC()}),
	}
	s.Producer.Publish(orders.TopicReservationExpired, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventReservationExpired)...)
}
