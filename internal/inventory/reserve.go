package inventory

import (
	"context"
	"fmt"
	"log"

	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Reserve debits quantity units of productID.
//
//  1. An unknown product triggers a Refresh; if the store does not know it
//     either, it is tracked with DefaultUnits.
//  2. Not enough believed stock: Rejected, nothing changes.
//  3. Otherwise the new level is written to the store. Whether or not that
//     write succeeds, the ledger takes the new level and persists it; a failed
//     write yields ConfirmedLocalOnly and a StockUnsynced event.
//
// Reservations of one product are serialized.
func (l *Ledger) Reserve(ctx context.Context, productID int64, quantity int) Reservation {
	res := Reservation{ProductID: productID, Quantity: quantity, Outcome: Rejected}
	if quantity < 1 {
		res.Remaining = l.Available(productID)
		res.Err = fmt.Errorf("reserve product %d: %w", productID, orders.ErrInvalidQuantity)
		return res
	}

	unlock := l.locks.lock(productID)
	defer unlock()

	if !l.Known(productID) {
		if err := l.Refresh(ctx); err != nil {
			log.Printf("[inventory] reserve %d: %v", productID, err)
		}
		l.mu.Lock()
		if _, ok := l.stock[productID]; !ok {
			l.stock[productID] = l.opts.DefaultUnits
		}
		l.mu.Unlock()
	}

	l.mu.RLock()
	current := l.stock[productID]
	l.mu.RUnlock()

	if current < quantity {
		res.Remaining = current
		res.Err = &orders.InsufficientStockError{ProductID: productID, Requested: quantity, Available: current}
		l.sink.Notify(ctx, notify.Notification{
			Key:   notify.Key("stock-insufficient", productID),
			Level: notify.LevelError,
			Message: fmt.Sprintf("Not enough stock for product %d: requested %d, only %d available (%d short)",
				productID, quantity, current, quantity-current),
		})
		l.emit(ctx, orders.TopicStockRejected, orders.EventStockRejected, productID, orders.StockRejectedPayload{
			Reason:  "OUT_OF_STOCK",
			Details: []orders.StockRejectedDetail{{ProductID: productID, Required: quantity, Available: current}},
		})
		return res
	}

	newStock := current - quantity
	wctx, cancel := l.storeCtx(ctx)
	werr := l.store.WriteStock(wctx, productID, newStock)
	cancel()

	l.mu.Lock()
	l.stock[productID] = newStock
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.persist(ctx, snap)
	res.Remaining = newStock

	if werr != nil {
		res.Outcome = ConfirmedLocalOnly
		res.Err = storeErr(fmt.Sprintf("write stock %d", productID), werr)
		l.sink.Notify(ctx, notify.Notification{
			Key:     notify.Key("stock-sync", productID),
			Level:   notify.LevelWarning,
			Message: fmt.Sprintf("Stock for product %d was updated locally but could not be synced", productID),
		})
		l.emit(ctx, orders.TopicStockUnsynced, orders.EventStockUnsynced, productID, orders.StockUnsyncedPayload{
			ProductID:      productID,
			AvailableUnits: newStock,
			Cause:          werr.Error(),
		})
		return res
	}

	res.Outcome = Confirmed
	switch {
	case newStock == 0:
		l.sink.Notify(ctx, notify.Notification{
			Key:     notify.Key("stock-out", productID),
			Level:   notify.LevelWarning,
			Message: fmt.Sprintf("Product %d is now out of stock", productID),
		})
	case newStock <= l.opts.LowStockThreshold:
		l.sink.Notify(ctx, notify.Notification{
			Key:     notify.Key("stock-low", productID),
			Level:   notify.LevelWarning,
			Message: fmt.Sprintf("Only %d left in stock for product %d", newStock, productID),
		})
	}
	l.emit(ctx, orders.TopicStockReserved, orders.EventStockReserved, productID, orders.StockReservedPayload{
		ProductID: productID,
		Qty:       quantity,
		Remaining: newStock,
		Synced:    true,
	})
	return res
}

func (l *Ledger) emit(ctx context.Context, topic, eventType string, productID int64, payload any) {
	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, topic, eventType, orders.ProductKey(productID), payload); err != nil {
		log.Printf("[inventory] emit %s for %d: %v", eventType, productID, err)
	}
}
