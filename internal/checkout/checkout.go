// Package checkout turns a cart into a placed order: every line is reserved
// against the inventory ledger, and only when none is rejected is the order
// archived and the cart emptied.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCheckoutRejected = errors.New("checkout rejected")
)

// RejectedError lists every line that could not be reserved.
type RejectedError struct {
	Details []orders.StockRejectedDetail
}

func (e *RejectedError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("product %d (required %d, available %d)", d.ProductID, d.Required, d.Available))
	}
	return "checkout rejected: " + strings.Join(parts, ", ")
}

func (e *RejectedError) Unwrap() error { return ErrCheckoutRejected }

// Reserver is the part of *inventory.Ledger checkout needs.
type Reserver interface {
	Reserve(ctx context.Context, productID int64, quantity int) inventory.Reservation
	Refresh(ctx context.Context) error
}

// Archive stores placed orders.
type Archive interface {
	AppendOrder(ctx context.Context, o orders.OrderRecord) error
}

type Customer struct {
	Name            string
	Email           string
	ShippingAddress string
}

type Options struct {
	ShippingCents  int64
	TaxRate        decimal.Decimal
	DeliveryWindow time.Duration
}

func DefaultOptions() Options {
	return Options{
		ShippingCents:  500,
		TaxRate:        decimal.RequireFromString("0.08"),
		DeliveryWindow: 5 * 24 * time.Hour,
	}
}

type Service struct {
	stock   Reserver
	archive Archive
	sink    notify.Sink
	emitter notify.Emitter
	opts    Options

	now   func() time.Time
	newID func() string
}

// New builds the service. sink and emitter may be nil.
func New(stock Reserver, archive Archive, sink notify.Sink, emitter notify.Emitter, opts Options) *Service {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Service{
		stock:   stock,
		archive: archive,
		sink:    sink,
		emitter: emitter,
		opts:    opts,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

type Result struct {
	Order        orders.OrderRecord      `json:"order"`
	Reservations []inventory.Reservation `json:"reservations"`
	// LocalOnly lists products whose new stock level did not reach the store.
	LocalOnly []int64 `json:"local_only,omitempty"`
}

// Checkout reserves every line of c. Any rejected line aborts the whole
// checkout: the cart is kept, the inventory is refreshed and a *RejectedError
// is returned. Units already reserved for earlier lines stay debited.
func (s *Service) Checkout(ctx context.Context, c *cart.Ledger, cust Customer) (Result, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return Result{}, ErrEmptyCart
	}

	var (
		res      Result
		rejected []orders.StockRejectedDetail
	)
	for _, ln := range lines {
		r := s.stock.Reserve(ctx, ln.ProductID, ln.Quantity)
		res.Reservations = append(res.Reservations, r)
		switch r.Outcome {
		case inventory.Rejected:
			rejected = append(rejected, orders.StockRejectedDetail{
				ProductID: ln.ProductID,
				Required:  ln.Quantity,
				Available: r.Remaining,
			})
		case inventory.ConfirmedLocalOnly:
			res.LocalOnly = append(res.LocalOnly, ln.ProductID)
		}
	}

	if len(rejected) > 0 {
		if err := s.stock.Refresh(ctx); err != nil {
			log.Printf("[checkout] refresh after rejection: %v", err)
		}
		s.sink.Notify(ctx, notify.Notification{
			Key:     "checkout-failed",
			Level:   notify.LevelError,
			Message: fmt.Sprintf("Checkout failed: %d item(s) no longer have enough stock", len(rejected)),
		})
		return res, &RejectedError{Details: rejected}
	}

	order := s.buildOrder(lines, cust)
	if err := s.archive.AppendOrder(ctx, order); err != nil {
		return res, fmt.Errorf("archive order %s: %w", order.OrderReference, err)
	}
	res.Order = order

	c.Clear(ctx)
	s.sink.Notify(ctx, notify.Notification{
		Key:     "checkout-success",
		Level:   notify.LevelSuccess,
		Message: fmt.Sprintf("Order %s placed", order.OrderReference),
	})
	if s.emitter != nil {
		err := s.emitter.Emit(ctx, orders.TopicOrderPlaced, orders.EventOrderPlaced, order.OrderReference, orders.OrderPlacedPayload{
			OrderReference: order.OrderReference,
			TrackingNumber: order.TrackingNumber,
			CustomerEmail:  order.CustomerEmail,
			Items:          order.Items,
			TotalCents:     order.Total,
		})
		if err != nil {
			log.Printf("[checkout] emit %s: %v", orders.EventOrderPlaced, err)
		}
	}
	return res, nil
}

func (s *Service) buildOrder(lines []cart.Line, cust Customer) orders.OrderRecord {
	items := make([]orders.OrderItem, 0, len(lines))
	for _, ln := range lines {
		items = append(items, orders.OrderItem{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			UnitPrice: ln.UnitPrice,
			Quantity:  ln.Quantity,
		})
	}
	t := orders.ComputeTotals(items, s.opts.ShippingCents, s.opts.TaxRate)
	placed := s.now().UTC()
	id := strings.ToUpper(strings.ReplaceAll(s.newID(), "-", ""))
	return orders.OrderRecord{
		OrderReference:        "ORD-" + id[:12],
		TrackingNumber:        "TRK-" + id[12:24],
		CustomerName:          cust.Name,
		CustomerEmail:         cust.Email,
		Items:                 items,
		Subtotal:              t.Subtotal,
		Shipping:              t.Shipping,
		Tax:                   t.Tax,
		Total:                 t.Total,
		OrderDate:             placed,
		EstimatedDeliveryDate: placed.Add(s.opts.DeliveryWindow),
		ShippingAddress:       cust.ShippingAddress,
	}
}
