package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// Handler exposes the product catalog endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

type productPayload struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Barcode       string          `json:"barcode" validate:"omitempty,max=64"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	Unit          string          `json:"unit" validate:"omitempty,max=20"`
	Price         common.Decimal  `json:"price"`
	CostPrice     common.Decimal  `json:"cost_price"`
	VATRate       common.Decimal  `json:"vat_rate"`
	StockQuantity *common.FlexInt `json:"stock_quantity"`
	MinStockLevel *common.FlexInt `json:"min_stock_level"`
	CategoryID    *int64          `json:"category_id" validate:"omitempty,gt=0"`
	SupplierID    *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
}

func (p productPayload) input() upstream.ProductInput {
	return upstream.ProductInput{
		Name:          p.Name,
		Barcode:       p.Barcode,
		Description:   p.Description,
		Unit:          p.Unit,
		Price:         p.Price,
		CostPrice:     p.CostPrice,
		VATRate:       p.VATRate,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		CategoryID:    p.CategoryID,
		SupplierID:    p.SupplierID,
	}
}

// List handles GET /api/v1/products with search and pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	items, err := h.service.List(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Search handles GET /api/v1/products/search; it is List with the query
// required.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if params.Query == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "q is required", nil)
		return
	}
	items, err := h.service.List(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Get handles GET /api/v1/products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// GetByBarcode handles GET /api/v1/products/barcode/{barcode}.
func (h *Handler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Create handles POST /api/v1/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), payload.input())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// Update handles PUT /api/v1/products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payload, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), id, payload.input())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Delete handles DELETE /api/v1/products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Categories(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// CreateCategory handles POST /api/v1/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := h.service.CreateCategory(r.Context(), upstream.CategoryInput{Name: payload.Name})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// UpdateCategory handles PUT /api/v1/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payload, ok := h.decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), id, upstream.CategoryInput{Name: payload.Name})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// DeleteCategory handles DELETE /api/v1/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeCategory(w http.ResponseWriter, r *http.Request) (categoryPayload, bool) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid category fields", validationDetails(err))
		return payload, false
	}
	return payload, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (productPayload, bool) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product fields", validationDetails(err))
		return payload, false
	}
	if payload.Price.IsNegative() || payload.CostPrice.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "prices must not be negative", nil)
		return payload, false
	}
	return payload, true
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
