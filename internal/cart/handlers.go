package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/obs"
)

// ErrProductNotFound indicates the product source has no record for the id.
var ErrProductNotFound = errors.New("cart: product not found")

// ProductSource resolves the pricing snapshot for a product being added.
type ProductSource interface {
	ProductSnapshot(ctx context.Context, productID int64) (Product, error)
}

// Handler wires cart sessions to HTTP.
type Handler struct {
	Store    *Store
	Products ProductSource
	Currency string
}

// Create registers a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	id := h.Store.Create()
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"cart_id": id.String()},
	})
}

// Get returns cart contents and the derived totals snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.resolve(w, r)
	if !ok {
		return
	}
	h.render(w, chi.URLParam(r, "id"), ledger)
}

// AddItem snapshots the product's current price and VAT rate and adds it to
// the ledger, incrementing quantity when the product is already present.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID common.FlexInt `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.ProductID.Int() <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product_id is required", nil)
		return
	}
	if h.Products == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "product source not configured", nil)
		return
	}
	product, err := h.Products.ProductSnapshot(r.Context(), int64(payload.ProductID.Int()))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "unable to load product", nil)
		return
	}
	ledger.AddItem(product)
	countOp("add")
	h.render(w, chi.URLParam(r, "id"), ledger)
}

// UpdateItem updates quantity and/or discount for a line. Quantity zero or
// below removes the line entirely.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.resolve(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload struct {
		Quantity *common.FlexInt `json:"quantity"`
		Discount *common.Decimal `json:"discount_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Quantity != nil {
		ledger.UpdateQuantity(productID, payload.Quantity.Int())
		countOp("update_quantity")
	}
	if payload.Discount != nil {
		ledger.SetDiscount(productID, payload.Discount.Decimal)
		countOp("set_discount")
	}
	h.render(w, chi.URLParam(r, "id"), ledger)
}

// RemoveItem deletes the line for the product; absent lines are a no-op.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.resolve(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	ledger.RemoveItem(productID)
	countOp("remove")
	h.render(w, chi.URLParam(r, "id"), ledger)
}

// Clear empties the cart session.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.resolve(w, r)
	if !ok {
		return
	}
	ledger.Clear()
	countOp("clear")
	h.render(w, chi.URLParam(r, "id"), ledger)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*Ledger, bool) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return nil, false
	}
	ledger, ok := h.Store.Get(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return nil, false
	}
	return ledger, true
}

func (h *Handler) render(w http.ResponseWriter, id string, ledger *Ledger) {
	lines := ledger.Lines()
	items := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		items = append(items, map[string]any{
			"product_id":      line.Product.ID,
			"name":            line.Product.Name,
			"unit_price":      common.NewDecimal(line.Product.UnitPrice.Round(2)),
			"vat_rate":        common.NewDecimal(line.Product.VATRate),
			"quantity":        line.Quantity,
			"discount_amount": common.NewDecimal(line.Discount.Round(2)),
		})
	}
	totals := ledger.Totals()
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"cart_id":  id,
			"items":    items,
			"currency": h.Currency,
			"totals": map[string]any{
				"subtotal": common.NewDecimal(totals.Subtotal.Round(2)),
				"vat":      common.NewDecimal(totals.VAT.Round(2)),
				"total":    common.NewDecimal(totals.Total.Round(2)),
			},
		},
	})
}

func countOp(op string) {
	if obs.CartOpsTotal != nil {
		obs.CartOpsTotal.WithLabelValues(op).Inc()
	}
}
