package checkout

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// SalesSource reads past sales from the inventory service.
type SalesSource interface {
	ListSales(ctx context.Context, limit, offset int) ([]upstream.Sale, error)
	GetSale(ctx context.Context, id int64) (upstream.Sale, error)
}

// HistoryHandler proxies read-only sale history.
type HistoryHandler struct {
	Source SalesSource
}

// List handles GET /api/v1/sales.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	offset := common.AtoiDefault(r.URL.Query().Get("offset"), 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := h.Source.ListSales(r.Context(), limit, offset)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Get handles GET /api/v1/sales/{id}.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	sale, err := h.Source.GetSale(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sale})
}
