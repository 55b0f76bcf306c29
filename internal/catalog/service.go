package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// Source is the slice of the inventory API the catalog needs.
type Source interface {
	ListProducts(ctx context.Context, p upstream.ListParams) ([]upstream.Product, error)
	GetProduct(ctx context.Context, id int64) (upstream.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (upstream.Product, error)
	CreateProduct(ctx context.Context, in upstream.ProductInput) (upstream.Product, error)
	UpdateProduct(ctx context.Context, id int64, in upstream.ProductInput) (upstream.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]upstream.Category, error)
	CreateCategory(ctx context.Context, in upstream.CategoryInput) (upstream.Category, error)
	UpdateCategory(ctx context.Context, id int64, in upstream.CategoryInput) (upstream.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// Service fronts the inventory API with a read-through cache. Writes pass
// straight through and invalidate the affected entries.
type Service struct {
	source       Source
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source       Source
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 50
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 200
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		source:       cfg.Source,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into upstream filters.
func (s *Service) ParseListParams(values url.Values) (upstream.ListParams, error) {
	params := upstream.ListParams{Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))

	if v := strings.TrimSpace(values.Get("category_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return params, badRequest("category_id", "category_id must be a positive integer", err)
		}
		params.CategoryID = id
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	if v := strings.TrimSpace(values.Get("offset")); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return params, badRequest("offset", "offset must be a non-negative integer", err)
		}
		params.Offset = offset
	}
	return params, nil
}

// List returns a page of products, served from cache when possible.
func (s *Service) List(ctx context.Context, params upstream.ListParams) ([]upstream.Product, error) {
	key := listKey(s.cache.Generation(ctx), params.Query, params.CategoryID, params.Limit, params.Offset)
	var cached []upstream.Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	items, err := s.source.ListProducts(ctx, params)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, key, items)
	return items, nil
}

// Get returns one product, served from cache when possible.
func (s *Service) Get(ctx context.Context, id int64) (upstream.Product, error) {
	var cached upstream.Product
	if ok, err := s.cache.GetJSON(ctx, productKey(id), &cached); err == nil && ok {
		return cached, nil
	}
	p, err := s.source.GetProduct(ctx, id)
	if err != nil {
		return upstream.Product{}, err
	}
	_ = s.cache.SetJSON(ctx, productKey(id), p)
	return p, nil
}

// GetByBarcode looks a product up by barcode, bypassing the cache: barcode
// scans happen at the till and must see live stock.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (upstream.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return upstream.Product{}, badRequest("barcode", "barcode is required", nil)
	}
	return s.source.GetProductByBarcode(ctx, barcode)
}

// Create forwards a new product upstream and invalidates listings.
func (s *Service) Create(ctx context.Context, in upstream.ProductInput) (upstream.Product, error) {
	p, err := s.source.CreateProduct(ctx, in)
	if err != nil {
		return upstream.Product{}, err
	}
	_ = s.cache.BumpGeneration(ctx)
	return p, nil
}

// Update forwards an update upstream and invalidates the product and listings.
func (s *Service) Update(ctx context.Context, id int64, in upstream.ProductInput) (upstream.Product, error) {
	p, err := s.source.UpdateProduct(ctx, id, in)
	if err != nil {
		return upstream.Product{}, err
	}
	_ = s.cache.Delete(ctx, productKey(id))
	_ = s.cache.BumpGeneration(ctx)
	return p, nil
}

// Delete removes a product upstream and invalidates the cache.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.source.DeleteProduct(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, productKey(id))
	_ = s.cache.BumpGeneration(ctx)
	return nil
}

// Categories lists product categories, cached.
func (s *Service) Categories(ctx context.Context) ([]upstream.Category, error) {
	key := categoriesKey(s.cache.Generation(ctx))
	var cached []upstream.Category
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	items, err := s.source.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, key, items)
	return items, nil
}

// CreateCategory forwards a new category upstream and invalidates listings.
func (s *Service) CreateCategory(ctx context.Context, in upstream.CategoryInput) (upstream.Category, error) {
	c, err := s.source.CreateCategory(ctx, in)
	if err != nil {
		return upstream.Category{}, err
	}
	_ = s.cache.BumpGeneration(ctx)
	return c, nil
}

// UpdateCategory forwards a category update upstream and invalidates listings.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in upstream.CategoryInput) (upstream.Category, error) {
	c, err := s.source.UpdateCategory(ctx, id, in)
	if err != nil {
		return upstream.Category{}, err
	}
	_ = s.cache.BumpGeneration(ctx)
	return c, nil
}

// DeleteCategory removes a category upstream and invalidates listings.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.source.DeleteCategory(ctx, id); err != nil {
		return err
	}
	_ = s.cache.BumpGeneration(ctx)
	return nil
}

// ProductSnapshot resolves the cart's pricing snapshot for a product. The
// cart keeps the price it saw at add time, so serving from cache is fine.
func (s *Service) ProductSnapshot(ctx context.Context, productID int64) (cart.Product, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound {
			return cart.Product{}, cart.ErrProductNotFound
		}
		return cart.Product{}, err
	}
	return cart.Product{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.Price.Decimal,
		VATRate:   p.VATRate.Decimal,
	}, nil
}

func badRequest(field, message string, err error) error {
	if err == nil {
		err = fmt.Errorf("invalid %s", field)
	}
	return common.BadRequestError(message, err).WithDetails(map[string]string{"field": field})
}
