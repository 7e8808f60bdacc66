package redisx

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// MarkOnce sets key only if absent. It reports true the first time, which is
// how consumers drop redelivered events.
func MarkOnce(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// ScheduleExpiry records when an order's reservation runs out.
func ScheduleExpiry(ctx context.Context, rdb redis.Cmdable, orderID string, at time.Time) error {
	return rdb.ZAdd(ctx, KeyReservationExpiry, redis.Z{Score: float64(at.Unix()), Member: orderID}).Err()
}

// DueExpiries returns up to limit order ids whose expiry is at or before now.
func DueExpiries(ctx context.Context, rdb redis.Cmdable, now time.Time, limit int64) ([]string, error) {
	return rdb.ZRangeByScore(ctx, KeyReservationExpiry, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
}

func Unschedule(ctx context.Context, rdb redis.Cmdable, orderIDs ...string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	members := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		members[i] = id
	}
	return rdb.ZRem(ctx, KeyReservationExpiry, members...).Err()
}
