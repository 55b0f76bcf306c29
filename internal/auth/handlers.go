package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// Source is the slice of the inventory API the auth handlers need.
type Source interface {
	Login(ctx context.Context, creds upstream.Credentials) (upstream.TokenResponse, error)
	Register(ctx context.Context, in upstream.RegisterInput) (upstream.User, error)
	Me(ctx context.Context) (upstream.User, error)
}

// Handler proxies authentication to the inventory service. The gateway never
// stores credentials; it relays them and hands the issued token back.
type Handler struct {
	source   Source
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source, validate: validator.New()}
}

type loginPayload struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=1,max=200"`
}

type registerPayload struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=200"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if !decodeValid(w, r, h.validate, &payload) {
		return
	}
	token, err := h.source.Login(r.Context(), upstream.Credentials{
		Username: payload.Username,
		Password: payload.Password,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": token})
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if !decodeValid(w, r, h.validate, &payload) {
		return
	}
	user, err := h.source.Register(r.Context(), upstream.RegisterInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": user})
}

// Me handles GET /api/v1/auth/me behind RequireAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.source.Me(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func decodeValid(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		var details any
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			details = fields
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid fields", details)
		return false
	}
	return true
}
