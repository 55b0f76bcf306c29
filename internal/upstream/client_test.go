package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/resilience"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, resilience.HTTPClient{
		Client:      srv.Client(),
		MaxAttempts: 1,
		Timeout:     2 * time.Second,
	}, zerolog.Nop())
}

func TestGetProductDecodesStringNumerics(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/7", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"name":"Ayran","price":"1.20","cost_price":"0.80","vat_rate":"20","stock_quantity":"14","is_active":true}`))
	}))

	ctx := common.WithAccessToken(context.Background(), "tok-123")
	p, err := c.GetProduct(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "1.2", p.Price.String())
	assert.Equal(t, 14, p.StockQuantity.Int())
}

func TestListProductsQuery(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "milk", r.URL.Query().Get("search"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "50", r.URL.Query().Get("skip"))
		_ = json.NewEncoder(w).Encode([]Product{{ID: 1, Name: "Milk"}})
	}))

	out, err := c.ListProducts(context.Background(), ListParams{Query: "milk", Limit: 25, Offset: 50})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Milk", out[0].Name)
}

func TestNotFoundMapsToAppError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Product not found"}`))
	}))

	_, err := c.GetProduct(context.Background(), 99)
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.Equal(t, "Product not found", appErr.Message)
}

func TestValidationErrorMapsTo422(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"price must be positive"}`))
	}))

	_, err := c.CreateProduct(context.Background(), ProductInput{Name: "x"})
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, "UPSTREAM_VALIDATION", appErr.Code)
}

func TestCreateSaleForwardsPayload(t *testing.T) {
	var got SaleInput
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sales", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Sale{ID: 31, PaymentMethod: got.PaymentMethod})
	}))

	cash := common.DecimalFromFloat(25)
	sale, err := c.CreateSale(context.Background(), SaleInput{
		Items:         []SaleItem{{ProductID: 1, Quantity: 2}},
		PaymentMethod: "cash",
		CashReceived:  &cash,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(31), sale.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1), got.Items[0].ProductID)
	assert.Equal(t, "25", got.CashReceived.String())
}

func TestServerErrorMapsToBadGateway(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListCategories(context.Background())
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, "UPSTREAM", appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}
