package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/tracking"
	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
)

// SessionHeader identifies whose cart a request works on.
const SessionHeader = "X-Session-Id"

type Catalog interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	FindProduct(ctx context.Context, id int64) (orders.Product, error)
}

// Stock is the read side of *inventory.Ledger.
type Stock interface {
	Snapshot() []orders.StockRecord
	Available(productID int64) int
	Known(productID int64) bool
	Refresh(ctx context.Context) error
}

type Checkouter interface {
	Checkout(ctx context.Context, c *cart.Ledger, cust checkout.Customer) (checkout.Result, error)
}

type Tracker interface {
	Track(ctx context.Context, trackingNumber string) (tracking.Timeline, bool, error)
}

type Handler struct {
	catalog  Catalog
	stock    Stock
	carts    *cart.Registry
	co       Checkouter
	tracker  Tracker
	validate *validatorv10.Validate
}

func NewHandler(catalog Catalog, stock Stock, carts *cart.Registry, co Checkouter, tracker Tracker) *Handler {
	return &Handler{
		catalog:  catalog,
		stock:    stock,
		carts:    carts,
		co:       co,
		tracker:  tracker,
		validate: newValidator(),
	}
}

type addItemReq struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,min=1,max=999"` // default 1
}

type setQuantityReq struct {
	// zero or negative removes the line
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type checkoutReq struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
}

type cartView struct {
	Lines      []cart.Line `json:"lines"`
	TotalItems int         `json:"total_items"`
	TotalPrice int64       `json:"total_price"`
}

type stockView struct {
	ProductID      int64 `json:"product_id"`
	AvailableUnits int   `json:"available_units"`
	Tracked        bool  `json:"tracked"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *Handler) session(r *http.Request) *cart.Ledger {
	return h.carts.Get(r.Context(), strings.TrimSpace(r.Header.Get(SessionHeader)))
}

func viewOf(c *cart.Ledger) cartView {
	return cartView{Lines: c.Lines(), TotalItems: c.TotalItemCount(), TotalPrice: c.TotalPrice()}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.catalog.ListProducts(ctx)
	if err != nil {
		log.Printf("list products: %v", err)
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stock.Snapshot())
}

func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	writeJSON(w, http.StatusOK, stockView{ProductID: id, AvailableUnits: h.stock.Available(id), Tracked: h.stock.Known(id)})
}

// refreshInventory answers with the ledger contents either way; a failed
// refresh is 503 with the snapshot the ledger fell back to.
func (h *Handler) refreshInventory(w http.ResponseWriter, r *http.Request) {
	if err := h.stock.Refresh(r.Context()); err != nil {
		log.Printf("refresh inventory: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":     "store unavailable, serving last snapshot",
			"inventory": h.stock.Snapshot(),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.stock.Snapshot())
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(h.session(r)))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c := h.session(r)
	c.Clear(r.Context())
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if !h.bindJSON(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	p, err := h.catalog.FindProduct(ctx, req.ProductID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
		return
	case err != nil:
		log.Printf("find product %d: %v", req.ProductID, err)
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}

	c := h.session(r)
	if _, err := c.AddOrIncrement(r.Context(), cart.FromCatalog(p), req.Quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req setQuantityReq
	if !h.bindJSON(w, r, &req) {
		return
	}
	c := h.session(r)
	if !c.Contains(id) {
		writeError(w, http.StatusNotFound, "product not in cart")
		return
	}
	if err := c.SetQuantity(r.Context(), id, *req.Quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	c := h.session(r)
	c.Remove(r.Context(), id)
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if !h.bindJSON(w, r, &req) {
		return
	}
	c := h.session(r)
	res, err := h.co.Checkout(r.Context(), c, checkout.Customer{
		Name:            req.Name,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
	})

	var rejected *checkout.RejectedError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, res)
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "insufficient stock",
			"details": rejected.Details,
			"cart":    viewOf(c),
		})
	case errors.Is(err, orders.ErrStoreUnavailable):
		log.Printf("checkout: %v", err)
		writeError(w, http.StatusServiceUnavailable, "order could not be saved, please retry")
	default:
		log.Printf("checkout: %v", err)
		writeError(w, http.StatusInternalServerError, "checkout failed")
	}
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	tn := chi.URLParam(r, "tracking")
	tl, found, err := h.tracker.Track(r.Context(), tn)
	switch {
	case err != nil:
		log.Printf("track %s: %v", tn, err)
		writeError(w, http.StatusServiceUnavailable, "tracking unavailable")
	case !found:
		writeError(w, http.StatusNotFound, "no order with that tracking number")
	default:
		writeJSON(w, http.StatusOK, tl)
	}
}
