package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// Source is the slice of the inventory API the supplier handlers need.
type Source interface {
	ListSuppliers(ctx context.Context) ([]upstream.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (upstream.Supplier, error)
	CreateSupplier(ctx context.Context, in upstream.SupplierInput) (upstream.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, in upstream.SupplierInput) (upstream.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

// Handler proxies supplier CRUD to the inventory service.
type Handler struct {
	source   Source
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source, validate: validator.New()}
}

type supplierPayload struct {
	Name               string          `json:"name" validate:"required,min=1,max=200"`
	ContactPerson      string          `json:"contact_person" validate:"omitempty,max=200"`
	Phone              string          `json:"phone" validate:"omitempty,max=32"`
	Email              string          `json:"email" validate:"omitempty,email"`
	Address            string          `json:"address" validate:"omitempty,max=500"`
	City               string          `json:"city" validate:"omitempty,max=100"`
	PostalCode         string          `json:"postal_code" validate:"omitempty,max=20"`
	Country            string          `json:"country" validate:"omitempty,max=100"`
	TaxNumber          string          `json:"tax_number" validate:"omitempty,max=64"`
	RegistrationNumber string          `json:"registration_number" validate:"omitempty,max=64"`
	BankAccount        string          `json:"bank_account" validate:"omitempty,max=64"`
	BankName           string          `json:"bank_name" validate:"omitempty,max=200"`
	PaymentTerms       string          `json:"payment_terms" validate:"omitempty,max=200"`
	MinOrderAmount     *common.Decimal `json:"min_order_amount"`
	DeliveryDays       *int            `json:"delivery_days" validate:"omitempty,min=0,max=365"`
	Notes              string          `json:"notes" validate:"omitempty,max=2000"`
	IsActive           *bool           `json:"is_active"`
}

func (p supplierPayload) input() upstream.SupplierInput {
	// suppliers are active unless the payload says otherwise
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return upstream.SupplierInput{
		Name:               p.Name,
		ContactPerson:      p.ContactPerson,
		Phone:              p.Phone,
		Email:              p.Email,
		Address:            p.Address,
		City:               p.City,
		PostalCode:         p.PostalCode,
		Country:            p.Country,
		TaxNumber:          p.TaxNumber,
		RegistrationNumber: p.RegistrationNumber,
		BankAccount:        p.BankAccount,
		BankName:           p.BankName,
		PaymentTerms:       p.PaymentTerms,
		MinOrderAmount:     p.MinOrderAmount,
		DeliveryDays:       p.DeliveryDays,
		Notes:              p.Notes,
		IsActive:           active,
	}
}

// List handles GET /api/v1/suppliers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.source.ListSuppliers(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Get handles GET /api/v1/suppliers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	s, err := h.source.GetSupplier(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

// Create handles POST /api/v1/suppliers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	s, err := h.source.CreateSupplier(r.Context(), payload.input())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": s})
}

// Update handles PUT /api/v1/suppliers/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	s, err := h.source.UpdateSupplier(r.Context(), id, payload.input())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

// Delete handles DELETE /api/v1/suppliers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	if err := h.source.DeleteSupplier(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) supplierID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid supplier id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (supplierPayload, bool) {
	var payload supplierPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		var details any
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			details = fields
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid supplier fields", details)
		return payload, false
	}
	return payload, true
}
