package catalog

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

type fakeSource struct {
	products   map[int64]upstream.Product
	listCalls  int
	getCalls   int
	categories []upstream.Category
}

func (f *fakeSource) ListProducts(_ context.Context, _ upstream.ListParams) ([]upstream.Product, error) {
	f.listCalls++
	out := make([]upstream.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSource) GetProduct(_ context.Context, id int64) (upstream.Product, error) {
	f.getCalls++
	p, ok := f.products[id]
	if !ok {
		return upstream.Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
	}
	return p, nil
}

func (f *fakeSource) GetProductByBarcode(_ context.Context, barcode string) (upstream.Product, error) {
	for _, p := range f.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return upstream.Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
}

func (f *fakeSource) CreateProduct(_ context.Context, in upstream.ProductInput) (upstream.Product, error) {
	id := int64(len(f.products) + 1)
	p := upstream.Product{ID: id, Name: in.Name, Price: in.Price, VATRate: in.VATRate}
	f.products[id] = p
	return p, nil
}

func (f *fakeSource) UpdateProduct(_ context.Context, id int64, in upstream.ProductInput) (upstream.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return upstream.Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
	}
	p.Name = in.Name
	p.Price = in.Price
	f.products[id] = p
	return p, nil
}

func (f *fakeSource) DeleteProduct(_ context.Context, id int64) error {
	delete(f.products, id)
	return nil
}

func (f *fakeSource) ListCategories(_ context.Context) ([]upstream.Category, error) {
	return f.categories, nil
}

func (f *fakeSource) CreateCategory(_ context.Context, in upstream.CategoryInput) (upstream.Category, error) {
	c := upstream.Category{ID: int64(len(f.categories) + 1), Name: in.Name}
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeSource) UpdateCategory(_ context.Context, id int64, in upstream.CategoryInput) (upstream.Category, error) {
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories[i].Name = in.Name
			return f.categories[i], nil
		}
	}
	return upstream.Category{}, common.NewAppError("NOT_FOUND", "category not found", http.StatusNotFound, nil)
}

func (f *fakeSource) DeleteCategory(_ context.Context, id int64) error {
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &fakeSource{
		products: map[int64]upstream.Product{
			1: {ID: 1, Name: "Kashkaval", Barcode: "380001", Price: common.DecimalFromFloat(12.50), VATRate: common.DecimalFromFloat(20)},
		},
		categories: []upstream.Category{{ID: 1, Name: "Dairy"}},
	}
	svc, err := NewService(ServiceConfig{
		Source: source,
		Cache:  NewCache(client, time.Minute),
	})
	require.NoError(t, err)
	return svc, source
}

func TestGetServesFromCache(t *testing.T) {
	svc, source := newTestService(t)
	ctx := context.Background()

	p1, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	p2, err := svc.Get(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, p1.Name, p2.Name)
	assert.Equal(t, 1, source.getCalls)
}

func TestListCacheInvalidatedByWrite(t *testing.T) {
	svc, source := newTestService(t)
	ctx := context.Background()

	params, err := svc.ParseListParams(url.Values{})
	require.NoError(t, err)

	_, err = svc.List(ctx, params)
	require.NoError(t, err)
	_, err = svc.List(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 1, source.listCalls)

	_, err = svc.Create(ctx, upstream.ProductInput{Name: "Sirene"})
	require.NoError(t, err)

	_, err = svc.List(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 2, source.listCalls)
}

func TestUpdateEvictsProduct(t *testing.T) {
	svc, source := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, upstream.ProductInput{Name: "Kashkaval Vitosha"})
	require.NoError(t, err)

	p, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Kashkaval Vitosha", p.Name)
	assert.Equal(t, 2, source.getCalls)
}

func TestParseListParamsLimits(t *testing.T) {
	svc, _ := newTestService(t)

	params, err := svc.ParseListParams(url.Values{"q": {" milk "}, "limit": {"500"}})
	require.NoError(t, err)
	assert.Equal(t, "milk", params.Query)
	assert.Equal(t, 200, params.Limit)

	_, err = svc.ParseListParams(url.Values{"limit": {"abc"}})
	require.Error(t, err)

	_, err = svc.ParseListParams(url.Values{"category_id": {"-1"}})
	require.Error(t, err)
}

func TestProductSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	snap, err := svc.ProductSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.ID)
	assert.Equal(t, "12.5", snap.UnitPrice.String())
	assert.Equal(t, "20", snap.VATRate.String())

	_, err = svc.ProductSnapshot(ctx, 404)
	assert.ErrorIs(t, err, cart.ErrProductNotFound)
}

func TestBarcodeLookupBypassesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.GetByBarcode(ctx, "380001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	_, err = svc.GetByBarcode(ctx, "   ")
	require.Error(t, err)
}
