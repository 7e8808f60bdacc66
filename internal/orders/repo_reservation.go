package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepo struct{ DB *pgxpool.Pool }

const uniqueViolation = "23505"

const reservationSelect = `
	SELECT r.order_id, o.total_cents, r.payment_method, r.code, r.status, r.reserved_at, r.expires_at
	FROM reservations r
	JOIN orders o ON o.id = r.order_id`

func scanReservation(row pgx.Row) (Reservation, error) {
	var res Reservation
	err := row.Scan(&res.OrderID, &res.TotalCents, &res.PaymentMethod, &res.Code, &res.Status, &res.ReservedAt, &res.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	return res, err
}

// ReserveOrder is checkout: it locks every product row (FOR UPDATE, in product
// id order), checks status and stock, decrements stock and writes the order,
// its lines and the reservation in one transaction.
// Idempotent via external_id: a replay returns the existing reservation with
// existed=true.
func (r *ReservationRepo) ReserveOrder(ctx context.Context, in CheckoutInput) (res Reservation, existed bool, err error) {
	in, err = in.Normalize()
	if err != nil {
		return Reservation{}, false, err
	}

	res, err = scanReservation(r.DB.QueryRow(ctx, reservationSelect+`
		WHERE o.external_id=$1 AND o.customer_id=$2`, in.ExternalID, in.CustomerID))
	if err == nil {
		return res, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Reservation{}, false, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Reservation{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type line struct {
		name  string
		price Cents
		qty   int
	}
	lines := make(map[string]line, len(in.Items))
	var shortages []StockShortage
	var total Cents
	for _, it := range in.Items {
		var (
			name   string
			price  Cents
			status ProductStatus
			stock  int
		)
		err := tx.QueryRow(ctx, `SELECT name, price_cents, status, stock FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).
			Scan(&name, &price, &status, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, false, fmt.Errorf("product %s: %w", it.ProductID, ErrNotFound)
		} else if err != nil {
			return Reservation{}, false, err
		}
		if status != ProductActive {
			return Reservation{}, false, fmt.Errorf("product %s: %w", it.ProductID, ErrProductInactive)
		}
		if stock < it.Qty {
			shortages = append(shortages, StockShortage{ProductID: it.ProductID, Required: it.Qty, Available: stock})
			continue
		}
		lines[it.ProductID] = line{name: name, price: price, qty: it.Qty}
		total += price * Cents(it.Qty)
	}
	if len(shortages) > 0 {
		return Reservation{}, false, &StockError{Details: shortages} // rollback via defer
	}

	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = time.Now().UTC()
	}
	orderID := uuid.NewString()
	res = Reservation{
		OrderID:       orderID,
		TotalCents:    total,
		PaymentMethod: in.PaymentMethod,
		Code:          ReservationCode(orderID, now),
		Status:        ReservationActive,
		ReservedAt:    now,
		ExpiresAt:     now.Add(in.TTL),
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, customer_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		orderID, in.ExternalID, in.CustomerID, StatusReserved, total, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// otra peticion con el mismo external_id gano la carrera
			_ = tx.Rollback(ctx)
			res, err = scanReservation(r.DB.QueryRow(ctx, reservationSelect+`
				WHERE o.external_id=$1 AND o.customer_id=$2`, in.ExternalID, in.CustomerID))
			return res, err == nil, err
		}
		return Reservation{}, false, err
	}
	for _, it := range in.Items {
		l := lines[it.ProductID]
		if _, err = tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at=now() WHERE id=$1`, it.ProductID, l.qty); err != nil {
			return Reservation{}, false, err
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, product_name, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			orderID, it.ProductID, l.name, l.qty, l.price); err != nil {
			return Reservation{}, false, err
		}
	}
	if _, err = tx.Exec(ctx, `
		INSERT INTO reservations(order_id, code, payment_method, status, reserved_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		orderID, res.Code, res.PaymentMethod, res.Status, res.ReservedAt, res.ExpiresAt); err != nil {
		return Reservation{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, false, err
	}
	return res, false, nil
}

func (r *ReservationRepo) GetReservation(ctx context.Context, customerID, orderID string) (Reservation, error) {
	return scanReservation(r.DB.QueryRow(ctx, reservationSelect+`
		WHERE r.order_id=$1 AND o.customer_id=$2`, orderID, customerID))
}

// lockReservation loads the reservation row FOR UPDATE inside tx.
func lockReservation(ctx context.Context, tx pgx.Tx, orderID string) (Reservation, error) {
	return scanReservation(tx.QueryRow(ctx, reservationSelect+`
		WHERE r.order_id=$1
		FOR UPDATE OF r`, orderID))
}

// ConfirmPayment marks an active, unexpired reservation as paid.
func (r *ReservationRepo) ConfirmPayment(ctx context.Context, orderID string, now time.Time) (Reservation, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Reservation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, orderID)
	if err != nil {
		return Reservation{}, err
	}
	if res.Expired(now) {
		return Reservation{}, ErrReservationExpired
	}
	if !CanTransitionReservation(res.Status, ReservationConfirmed) {
		return Reservation{}, fmt.Errorf("reservation %s is %s: %w", orderID, res.Status, ErrInvalidTransition)
	}
	if err := setStatuses(ctx, tx, orderID, ReservationConfirmed, StatusPaid); err != nil {
		return Reservation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, err
	}
	res.Status = ReservationConfirmed
	return res, nil
}

// ExpireReservation releases the stock of an active reservation whose deadline
// passed and cancels the order. It returns false when there was nothing to do
// (already confirmed/expired or not yet due), so calling it twice is safe.
func (r *ReservationRepo) ExpireReservation(ctx context.Context, orderID string, now time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, orderID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if !res.Expired(now) {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products p SET stock = p.stock + i.qty, updated_at=now()
		FROM order_items i
		WHERE i.order_id=$1 AND p.id = i.product_id`, orderID); err != nil {
		return false, err
	}
	if err := setStatuses(ctx, tx, orderID, ReservationExpired, StatusCancelled); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func setStatuses(ctx context.Context, tx pgx.Tx, orderID string, rs ReservationStatus, st Status) error {
	if !CanTransition(StatusReserved, st) {
		return ErrInvalidTransition
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE order_id=$1`, orderID, rs); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`, orderID, st, StatusReserved)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("order %s: %w", orderID, ErrInvalidTransition)
	}
	return nil
}

// ListExpired returns ids of active reservations already past expires_at.
// The sweeper uses it as a backstop for schedule entries that never arrived.
func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id FROM reservations
		WHERE status=$1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`, ReservationActive, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
