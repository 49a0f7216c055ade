package orders

import (
	"context"
	"fmt"
)

// FetchAllStock returns the stock column of every product.
func (r *Repo) FetchAllStock(ctx context.Context) ([]StockRecord, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, stock FROM products ORDER BY id`)
	if err != nil {
		return nil, Unavailable("fetch stock", err)
	}
	defer rows.Close()

	var out []StockRecord
	for rows.Next() {
		var s StockRecord
		if err := rows.Scan(&s.ProductID, &s.AvailableUnits); err != nil {
			return nil, Unavailable("fetch stock", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("fetch stock", err)
	}
	return out, nil
}

// WriteStock overwrites the stock of one product. Last write wins.
func (r *Repo) WriteStock(ctx context.Context, productID int64, units int) error {
	if units < 0 {
		return fmt.Errorf("write stock %d: %w", productID, ErrInvalidQuantity)
	}
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, productID, units)
	if err != nil {
		return Unavailable(fmt.Sprintf("write stock %d", productID), err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("write stock %d: %w", productID, ErrNotFound)
	}
	return nil
}
