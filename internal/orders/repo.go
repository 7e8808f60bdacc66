package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, price_cents, image_url, status, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.Status, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProducts returns the catalog ordered by name. The storefront only sees
// active products; the admin list passes includeInactive.
func (r *Repo) ListProducts(ctx context.Context, includeInactive bool) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if !includeInactive {
		q += ` WHERE status = $1`
		args = append(args, ProductActive)
	}
	q += ` ORDER BY name, id`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, in NewProduct) (Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Product{}, newValidationError("name is required")
	}
	if in.PriceCents <= 0 {
		return Product{}, newValidationError("price must be positive")
	}
	if in.Stock < 0 {
		return Product{}, newValidationError("stock cannot be negative")
	}
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, price_cents, image_url, status, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		uuid.NewString(), in.Name, in.PriceCents, in.ImageURL, ProductActive, in.Stock,
	))
}

// SetProductStatus is the admin "disable/enable product" action.
func (r *Repo) SetProductStatus(ctx context.Context, id string, status ProductStatus) (Product, error) {
	if !status.Valid() {
		return Product{}, newValidationError("invalid product status %q", status)
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING `+productColumns, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

const orderWithItems = `
	SELECT o.id, o.customer_id, o.status, o.total_cents, o.created_at,
	       i.product_id, i.product_name, i.qty, i.price_cents
	FROM orders o
	JOIN order_items i ON i.order_id = o.id`

// collectOrders groups joined order/item rows, keeping row order.
func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()

	out := []Order{}
	idx := map[string]int{}
	for rows.Next() {
		var o Order
		var it OrderItem
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.CreatedAt,
			&it.ProductID, &it.ProductName, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		it.SubtotalCents = it.PriceCents * Cents(it.Qty)
		i, ok := idx[o.ID]
		if !ok {
			o.Items = []OrderItem{}
			out = append(out, o)
			i = len(out) - 1
			idx[o.ID] = i
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out, rows.Err()
}

// ListCustomerOrders is the "mis pedidos" history, newest first.
func (r *Repo) ListCustomerOrders(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, orderWithItems+`
		WHERE o.customer_id = $1
		ORDER BY o.created_at DESC, o.id, i.id`, customerID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// GetCustomerOrder returns ErrNotFound both for unknown orders and for orders
// owned by someone else.
func (r *Repo) GetCustomerOrder(ctx context.Context, customerID, orderID string) (Order, error) {
	rows, err := r.DB.Query(ctx, orderWithItems+`
		WHERE o.id = $1 AND o.customer_id = $2
		ORDER BY i.id`, orderID, customerID)
	if err != nil {
		return Order{}, err
	}
	return firstOrder(rows)
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	rows, err := r.DB.Query(ctx, orderWithItems+`
		WHERE o.id = $1
		ORDER BY i.id`, orderID)
	if err != nil {
		return Order{}, err
	}
	return firstOrder(rows)
}

func firstOrder(rows pgx.Rows) (Order, error) {
	list, err := collectOrders(rows)
	if err != nil {
		return Order{}, fmt.Errorf("load order: %w", err)
	}
	if len(list) == 0 {
		return Order{}, ErrNotFound
	}
	return list[0], nil
}
