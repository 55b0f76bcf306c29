package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/common"
)

// CartResolver looks cart sessions up by id.
type CartResolver interface {
	Get(id uuid.UUID) (*cart.Ledger, bool)
}

// Handler exposes cart checkout over HTTP.
type Handler struct {
	Store   CartResolver
	Service *Service
}

// Checkout handles POST /api/v1/carts/{id}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	ledger, ok := h.Store.Get(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}

	var payload struct {
		PaymentMethod string         `json:"payment_method"`
		CashReceived  common.Decimal `json:"cash_received"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	result, err := h.Service.Checkout(r.Context(), id.String(), ledger, Request{
		PaymentMethod: payload.PaymentMethod,
		CashReceived:  payload.CashReceived.Decimal,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}

	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"sale_id":        result.SaleID,
			"payment_method": result.PaymentMethod,
			"totals": map[string]any{
				"subtotal": common.NewDecimal(result.Totals.Subtotal.Round(2)),
				"vat":      common.NewDecimal(result.Totals.VAT.Round(2)),
				"total":    common.NewDecimal(result.Totals.Total.Round(2)),
			},
			"cash_received": common.NewDecimal(result.CashReceived.Round(2)),
			"change_given":  common.NewDecimal(result.ChangeGiven.Round(2)),
		},
	})
}
