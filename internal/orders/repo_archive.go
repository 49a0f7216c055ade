package orders

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// AppendOrder archives a placed order. Items are kept as one jsonb document.
func (r *Repo) AppendOrder(ctx context.Context, o OrderRecord) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders(order_reference, tracking_number, customer_name, customer_email, items,
		                   subtotal_cents, shipping_cents, tax_cents, total_cents,
		                   order_date, estimated_delivery_date, shipping_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.OrderReference, o.TrackingNumber, o.CustomerName, o.CustomerEmail, items,
		o.Subtotal, o.Shipping, o.Tax, o.Total,
		o.OrderDate, o.EstimatedDeliveryDate, o.ShippingAddress,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	if err != nil {
		return Unavailable("append order", err)
	}
	return nil
}

// FindByTrackingNumber returns (nil, nil) when no order carries the number.
func (r *Repo) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*OrderRecord, error) {
	var (
		o     OrderRecord
		items []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT order_reference, tracking_number, customer_name, customer_email, items,
		       subtotal_cents, shipping_cents, tax_cents, total_cents,
		       order_date, estimated_delivery_date, shipping_address
		FROM orders WHERE tracking_number=$1`, trackingNumber).
		Scan(&o.OrderReference, &o.TrackingNumber, &o.CustomerName, &o.CustomerEmail, &items,
			&o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
			&o.OrderDate, &o.EstimatedDeliveryDate, &o.ShippingAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Unavailable("find order", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, err
	}
	return &o, nil
}
