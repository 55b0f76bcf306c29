package pricing

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/pos-gateway/internal/common"
)

type stateEnvelope struct {
	CostPrice common.Decimal  `json:"cost_price"`
	VATRate   common.Decimal  `json:"vat_rate"`
	Margin    *common.Decimal `json:"margin_percent"`
	Price     common.Decimal  `json:"price"`
}

type recalculateRequest struct {
	State stateEnvelope `json:"state"`
	Mode  string        `json:"mode"`
	Edit  *struct {
		Field string         `json:"field"`
		Value common.Decimal `json:"value"`
	} `json:"edit"`
}

// Handler exposes the reconciler as a stateless recalculation endpoint: the
// caller sends the full pricing state plus the edit, and gets the reconciled
// state back. Nothing is stored between calls.
type Handler struct{}

// Recalculate applies a single field edit to the submitted pricing state.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "mode must be \"margin\" or \"price\"", nil)
		return
	}

	state := State{
		CostPrice: req.State.CostPrice.Decimal,
		VATRate:   req.State.VATRate.Decimal,
		Price:     req.State.Price.Decimal,
	}
	if req.State.Margin != nil {
		m := req.State.Margin.Decimal
		state.Margin = &m
	}
	rec := NewReconciler(state, mode)

	if req.Edit != nil {
		switch req.Edit.Field {
		case "cost_price":
			rec.SetCostPrice(req.Edit.Value.Decimal)
		case "vat_rate":
			rec.SetVATRate(req.Edit.Value.Decimal)
		case "margin_percent":
			rec.SetMargin(req.Edit.Value.Decimal)
		case "price":
			rec.SetPrice(req.Edit.Value.Decimal)
		default:
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown edit field", map[string]string{
				"field": req.Edit.Field,
			})
			return
		}
	}

	snap := rec.Snapshot()
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"state": map[string]any{
				"cost_price":     common.NewDecimal(snap.CostPrice),
				"vat_rate":       common.NewDecimal(snap.VATRate),
				"margin_percent": common.NewDecimal(snap.Margin),
				"price":          common.NewDecimal(snap.Price),
			},
			"mode": snap.Mode,
			"display": map[string]any{
				"profit":         common.NewDecimal(snap.Profit),
				"price_excl_vat": common.NewDecimal(snap.PriceExclVAT),
				"vat_amount":     common.NewDecimal(snap.VATAmount),
			},
		},
	})
}
