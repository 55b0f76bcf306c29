package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/obs"
	"github.com/noah-isme/pos-gateway/internal/resilience"
)

// Client is the typed client for the remote inventory API. All calls reuse
// the caller's bearer token from the request context and go through the
// resilient HTTP wrapper.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Logger  zerolog.Logger
}

// New builds a Client for the given base URL.
func New(baseURL string, httpClient resilience.HTTPClient, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Logger:  logger.With().Str("component", "upstream").Logger(),
	}
}

// ListParams narrows product listings.
type ListParams struct {
	Query      string
	CategoryID int64
	Limit      int
	Offset     int
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("search", p.Query)
	}
	if p.CategoryID > 0 {
		v.Set("category_id", strconv.FormatInt(p.CategoryID, 10))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("skip", strconv.Itoa(p.Offset))
	}
	return v
}

// ListProducts fetches a page of products, optionally filtered.
func (c *Client) ListProducts(ctx context.Context, p ListParams) ([]Product, error) {
	var out []Product
	err := c.do(ctx, http.MethodGet, "/products", p.values(), nil, &out)
	return out, err
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &out)
	return out, err
}

// GetProductByBarcode looks a product up by its barcode.
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodGet, "/products/barcode/"+url.PathEscape(barcode), nil, nil, &out)
	return out, err
}

// CreateProduct creates a product upstream.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodPost, "/products", nil, in, &out)
	return out, err
}

// UpdateProduct updates a product upstream.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), nil, in, &out)
	return out, err
}

// DeleteProduct removes a product upstream.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil, nil)
}

// ListCategories fetches all product categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &out)
	return out, err
}

// CreateCategory creates a category upstream.
func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	var out Category
	err := c.do(ctx, http.MethodPost, "/categories", nil, in, &out)
	return out, err
}

// UpdateCategory updates a category upstream.
func (c *Client) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	var out Category
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), nil, in, &out)
	return out, err
}

// DeleteCategory removes a category upstream.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil, nil)
}

// ListSuppliers fetches all suppliers.
func (c *Client) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	err := c.do(ctx, http.MethodGet, "/suppliers", nil, nil, &out)
	return out, err
}

// GetSupplier fetches one supplier.
func (c *Client) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var out Supplier
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/suppliers/%d", id), nil, nil, &out)
	return out, err
}

// CreateSupplier creates a supplier upstream.
func (c *Client) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	var out Supplier
	err := c.do(ctx, http.MethodPost, "/suppliers", nil, in, &out)
	return out, err
}

// UpdateSupplier updates a supplier upstream.
func (c *Client) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error) {
	var out Supplier
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/suppliers/%d", id), nil, in, &out)
	return out, err
}

// DeleteSupplier removes a supplier upstream.
func (c *Client) DeleteSupplier(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/suppliers/%d", id), nil, nil, nil)
}

// CreateSale submits a checkout payload and returns the persisted sale.
func (c *Client) CreateSale(ctx context.Context, in SaleInput) (Sale, error) {
	var out Sale
	err := c.do(ctx, http.MethodPost, "/sales", nil, in, &out)
	return out, err
}

// GetSale fetches one sale by id.
func (c *Client) GetSale(ctx context.Context, id int64) (Sale, error) {
	var out Sale
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sales/%d", id), nil, nil, &out)
	return out, err
}

// ListSales fetches recent sales.
func (c *Client) ListSales(ctx context.Context, limit, offset int) ([]Sale, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		v.Set("skip", strconv.Itoa(offset))
	}
	var out []Sale
	err := c.do(ctx, http.MethodGet, "/sales", v, nil, &out)
	return out, err
}

// Login exchanges credentials for an upstream access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &out)
	return out, err
}

// Register creates an upstream account.
func (c *Client) Register(ctx context.Context, in RegisterInput) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &out)
	return out, err
}

// Me fetches the profile behind the caller's token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return common.NewAppError("INTERNAL", "encode upstream payload", http.StatusInternalServerError, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return common.NewAppError("INTERNAL", "build upstream request", http.StatusInternalServerError, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := common.AccessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		countUpstream("error")
		if errors.Is(err, resilience.ErrOpenCircuit) {
			return common.NewAppError("UPSTREAM_UNAVAILABLE", "inventory service unavailable", http.StatusServiceUnavailable, err)
		}
		return common.NewAppError("UPSTREAM", "inventory service unreachable", http.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		countUpstream("error")
		return c.statusError(resp)
	}
	countUpstream("ok")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.NewAppError("UPSTREAM", "decode upstream response", http.StatusBadGateway, err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	detail := upstreamDetail(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return common.NewAppError("UNAUTHORIZED", detailOr(detail, "authentication required"), http.StatusUnauthorized, nil)
	case http.StatusForbidden:
		return common.NewAppError("FORBIDDEN", detailOr(detail, "not allowed"), http.StatusForbidden, nil)
	case http.StatusNotFound:
		return common.NewAppError("NOT_FOUND", detailOr(detail, "resource not found"), http.StatusNotFound, nil)
	case http.StatusConflict:
		return common.NewAppError("CONFLICT", detailOr(detail, "conflicting resource"), http.StatusConflict, nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return common.NewAppError("UPSTREAM_VALIDATION", detailOr(detail, "upstream rejected the request"), http.StatusUnprocessableEntity, nil)
	default:
		c.Logger.Warn().Int("status", resp.StatusCode).Msg("unexpected_upstream_status")
		return common.NewAppError("UPSTREAM", "inventory service error", http.StatusBadGateway, nil)
	}
}

// upstreamDetail extracts FastAPI-style {"detail": "..."} error bodies.
func upstreamDetail(r io.Reader) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	return body.Detail
}

func detailOr(detail, fallback string) string {
	if detail != "" {
		return detail
	}
	return fallback
}

func countUpstream(result string) {
	if obs.UpstreamRequestsTotal != nil {
		obs.UpstreamRequestsTotal.WithLabelValues("inventory", result).Inc()
	}
}
