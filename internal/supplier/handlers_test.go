package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

type fakeSource struct {
	suppliers map[int64]upstream.Supplier
	nextID    int64
	lastInput upstream.SupplierInput
}

func (f *fakeSource) ListSuppliers(context.Context) ([]upstream.Supplier, error) {
	out := make([]upstream.Supplier, 0, len(f.suppliers))
	for _, s := range f.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSource) GetSupplier(_ context.Context, id int64) (upstream.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return upstream.Supplier{}, common.NewAppError("NOT_FOUND", "supplier not found", http.StatusNotFound, nil)
	}
	return s, nil
}

func (f *fakeSource) CreateSupplier(_ context.Context, in upstream.SupplierInput) (upstream.Supplier, error) {
	f.lastInput = in
	f.nextID++
	s := upstream.Supplier{
		ID:             f.nextID,
		Name:           in.Name,
		Email:          in.Email,
		City:           in.City,
		BankName:       in.BankName,
		PaymentTerms:   in.PaymentTerms,
		MinOrderAmount: in.MinOrderAmount,
		DeliveryDays:   in.DeliveryDays,
		IsActive:       in.IsActive,
	}
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeSource) UpdateSupplier(_ context.Context, id int64, in upstream.SupplierInput) (upstream.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return upstream.Supplier{}, common.NewAppError("NOT_FOUND", "supplier not found", http.StatusNotFound, nil)
	}
	f.lastInput = in
	s.Name = in.Name
	s.IsActive = in.IsActive
	f.suppliers[id] = s
	return s, nil
}

func (f *fakeSource) DeleteSupplier(_ context.Context, id int64) error {
	delete(f.suppliers, id)
	return nil
}

func newRouter() (*chi.Mux, *fakeSource) {
	source := &fakeSource{suppliers: map[int64]upstream.Supplier{
		1: {ID: 1, Name: "Melnitsa OOD"},
	}, nextID: 1}
	h := NewHandler(source)
	r := chi.NewRouter()
	r.Get("/api/v1/suppliers", h.List)
	r.Post("/api/v1/suppliers", h.Create)
	r.Get("/api/v1/suppliers/{id}", h.Get)
	r.Put("/api/v1/suppliers/{id}", h.Update)
	r.Delete("/api/v1/suppliers/{id}", h.Delete)
	return r, source
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSupplierCRUD(t *testing.T) {
	r, source := newRouter()

	rec := do(t, r, http.MethodPost, "/api/v1/suppliers", map[string]any{
		"name":  "Zagorka AD",
		"email": "sales@zagorka.bg",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/suppliers/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPut, "/api/v1/suppliers/2", map[string]any{"name": "Zagorka EAD"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Zagorka EAD", source.suppliers[2].Name)

	rec = do(t, r, http.MethodDelete, "/api/v1/suppliers/2", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := source.suppliers[2]
	assert.False(t, ok)
}

func TestSupplierFullFieldSetForwarded(t *testing.T) {
	r, source := newRouter()

	rec := do(t, r, http.MethodPost, "/api/v1/suppliers", map[string]any{
		"name":                "Sofia Mel AD",
		"contact_person":      "Ivan Petrov",
		"email":               "orders@sofiamel.bg",
		"phone":               "+359 2 555 0101",
		"address":             "bul. Iliyantsi 8",
		"city":                "Sofia",
		"postal_code":         "1220",
		"country":             "Bulgaria",
		"tax_number":          "BG000000000",
		"registration_number": "000000000",
		"bank_account":        "BG80BNBG96611020345678",
		"bank_name":           "UniCredit Bulbank",
		"payment_terms":       "net 30",
		"min_order_amount":    "150.00",
		"delivery_days":       3,
		"notes":               "flour and grain wholesaler",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	in := source.lastInput
	assert.Equal(t, "Sofia", in.City)
	assert.Equal(t, "1220", in.PostalCode)
	assert.Equal(t, "BG000000000", in.TaxNumber)
	assert.Equal(t, "000000000", in.RegistrationNumber)
	assert.Equal(t, "BG80BNBG96611020345678", in.BankAccount)
	assert.Equal(t, "UniCredit Bulbank", in.BankName)
	assert.Equal(t, "net 30", in.PaymentTerms)
	require.NotNil(t, in.MinOrderAmount)
	assert.Equal(t, "150", in.MinOrderAmount.Decimal.String())
	require.NotNil(t, in.DeliveryDays)
	assert.Equal(t, 3, *in.DeliveryDays)
	assert.Equal(t, "flour and grain wholesaler", in.Notes)
	assert.True(t, in.IsActive, "suppliers default to active")

	var body struct {
		Data upstream.Supplier `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UniCredit Bulbank", body.Data.BankName)
	assert.Equal(t, "net 30", body.Data.PaymentTerms)

	rec = do(t, r, http.MethodPut, "/api/v1/suppliers/2", map[string]any{
		"name":      "Sofia Mel AD",
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, source.lastInput.IsActive)
}

func TestSupplierValidation(t *testing.T) {
	r, _ := newRouter()

	rec := do(t, r, http.MethodPost, "/api/v1/suppliers", map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION", body["error"].(map[string]any)["code"])
}

func TestSupplierNotFound(t *testing.T) {
	r, _ := newRouter()
	rec := do(t, r, http.MethodGet, "/api/v1/suppliers/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSupplierBadID(t *testing.T) {
	r, _ := newRouter()
	rec := do(t, r, http.MethodGet, "/api/v1/suppliers/zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
