package postgres

import (
	"context"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	price_cents BIGINT      NOT NULL CHECK (price_cents >= 0),
	thumbnail   TEXT        NOT NULL DEFAULT '',
	category    TEXT        NOT NULL DEFAULT '',
	stock       INTEGER     NOT NULL DEFAULT 0 CHECK (stock >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	order_reference         TEXT PRIMARY KEY,
	tracking_number         TEXT        NOT NULL UNIQUE,
	customer_name           TEXT        NOT NULL,
	customer_email          TEXT        NOT NULL,
	items                   JSONB       NOT NULL,
	subtotal_cents          BIGINT      NOT NULL,
	shipping_cents          BIGINT      NOT NULL,
	tax_cents               BIGINT      NOT NULL,
	total_cents             BIGINT      NOT NULL,
	order_date              TIMESTAMPTZ NOT NULL,
	estimated_delivery_date TIMESTAMPTZ NOT NULL,
	shipping_address        TEXT        NOT NULL
);
`

// Migrate creates the tables the storefront reads and writes. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
