package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/events"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

func newCheckoutRouter(t *testing.T, sales *fakeSales) (*chi.Mux, string) {
	t.Helper()
	store := cart.NewStore(time.Hour)
	id := store.Create()
	ledger, ok := store.Get(id)
	require.True(t, ok)
	ledger.AddItem(cart.Product{ID: 1, Name: "Espresso", UnitPrice: decimal.RequireFromString("5.00"), VATRate: decimal.RequireFromString("20")})
	ledger.UpdateQuantity(1, 2)

	h := &Handler{
		Store: store,
		Service: &Service{
			Sales:    sales,
			Bus:      &events.Bus{},
			Currency: "BGN",
			Logger:   zerolog.Nop(),
		},
	}
	r := chi.NewRouter()
	r.Post("/api/v1/carts/{id}/checkout", h.Checkout)
	return r, id.String()
}

func TestCheckoutHandler(t *testing.T) {
	sales := &fakeSales{}
	r, id := newCheckoutRouter(t, sales)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+id+"/checkout",
		strings.NewReader(`{"payment_method":"cash","cash_received":"15.00"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(31), data["sale_id"])
	assert.Equal(t, float64(12), data["totals"].(map[string]any)["total"])
	assert.Equal(t, float64(3), data["change_given"])
}

func TestCheckoutHandlerUnknownCart(t *testing.T) {
	r, _ := newCheckoutRouter(t, &fakeSales{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/00000000-0000-0000-0000-000000000000/checkout",
		strings.NewReader(`{"payment_method":"card"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeSalesSource struct{}

func (fakeSalesSource) ListSales(_ context.Context, limit, _ int) ([]upstream.Sale, error) {
	out := make([]upstream.Sale, 0, limit)
	out = append(out, upstream.Sale{ID: 1, PaymentMethod: "cash"})
	return out, nil
}

func (fakeSalesSource) GetSale(_ context.Context, id int64) (upstream.Sale, error) {
	if id != 1 {
		return upstream.Sale{}, common.NewAppError("NOT_FOUND", "sale not found", http.StatusNotFound, nil)
	}
	return upstream.Sale{ID: 1}, nil
}

func TestSalesHistory(t *testing.T) {
	h := &HistoryHandler{Source: fakeSalesSource{}}
	r := chi.NewRouter()
	r.Get("/api/v1/sales", h.List)
	r.Get("/api/v1/sales/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
