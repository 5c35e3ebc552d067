package usecase_test

import (
	"context"
	"errors"
	"testing"

	"badgeshop/internal/domain/model"
	gormrepo "badgeshop/internal/infra/repository"
	"badgeshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type productCacheMock struct {
	mock.Mock
}

func (m *productCacheMock) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Product), args.Bool(1), args.Error(2)
}

func (m *productCacheMock) Set(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *productCacheMock) Invalidate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newProductUsecase(env *testEnv, cache usecase.ProductCache) *usecase.ProductUsecase {
	return usecase.NewProductUsecase(
		gormrepo.NewProductGormRepository(env.db),
		gormrepo.NewAuditLogGormRepository(env.db),
		cache, nil,
	)
}

func TestProductDetail_ReadsThroughCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pin := env.createProduct(t, "Pin", 49)

	cache := &productCacheMock{}
	cache.On("Get", mock.Anything, pin.ID).Return(model.Product{}, false, nil).Once()
	cache.On("Set", mock.Anything, mock.MatchedBy(func(p model.Product) bool { return p.ID == pin.ID })).Return(nil).Once()
	cached := pin
	cached.Name = "Pin (cached)"
	cache.On("Get", mock.Anything, pin.ID).Return(cached, true, nil).Once()

	uc := newProductUsecase(env, cache)

	p, err := uc.GetProductDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pin", p.Name)

	p, err = uc.GetProductDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pin (cached)", p.Name)
	cache.AssertExpectations(t)
}

func TestProductDetail_CacheErrorFallsBackToDB(t *testing.T) {
	env := newTestEnv(t)
	pin := env.createProduct(t, "Pin", 49)

	cache := &productCacheMock{}
	cache.On("Get", mock.Anything, pin.ID).Return(model.Product{}, false, errors.New("redis down"))
	cache.On("Set", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	p, err := newProductUsecase(env, cache).GetProductDetail(context.Background(), pin.ID)
	require.NoError(t, err)
	assert.Equal(t, pin.ID, p.ID)
}

func TestAdminProduct_UpdateAndDeleteInvalidateCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin)

	cache := &productCacheMock{}
	uc := newProductUsecase(env, cache)

	id, err := uc.AdminCreateProduct(ctx, admin.ID, usecase.AdminProductInput{Name: " Sticker ", Price: 20, IsActive: true})
	require.NoError(t, err)

	cache.On("Invalidate", mock.Anything, id).Return(nil).Twice()
	require.NoError(t, uc.AdminUpdateProduct(ctx, admin.ID, id, usecase.AdminProductInput{Name: "Sticker", Price: 25, IsActive: false}))
	require.NoError(t, uc.AdminDeleteProduct(ctx, admin.ID, id))
	cache.AssertExpectations(t)

	err = uc.AdminDeleteProduct(ctx, admin.ID, id)
	assert.Equal(t, 404, httpStatus(t, err))

	var n int64
	require.NoError(t, env.db.Model(&model.AuditLog{}).Where("resource_type = ? AND resource_id = ?", model.AuditResourceProduct, id).Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestListPublicProducts_Validation(t *testing.T) {
	env := newTestEnv(t)
	uc := newProductUsecase(env, nil)
	ctx := context.Background()
	neg := int64(-1)
	lo, hi := int64(100), int64(10)

	tests := []struct {
		name string
		in   usecase.ListProductsInput
	}{
		{"page zero", usecase.ListProductsInput{Page: 0, Limit: 20}},
		{"limit too big", usecase.ListProductsInput{Page: 1, Limit: 101}},
		{"negative min", usecase.ListProductsInput{Page: 1, Limit: 20, MinPrice: &neg}},
		{"min over max", usecase.ListProductsInput{Page: 1, Limit: 20, MinPrice: &lo, MaxPrice: &hi}},
		{"unknown sort", usecase.ListProductsInput{Page: 1, Limit: 20, Sort: "random"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.ListPublicProducts(ctx, tc.in)
			assert.Equal(t, 400, httpStatus(t, err))
		})
	}

	env.createProduct(t, "Zebra Pin", 99)
	env.createProduct(t, "Apple Sticker", 10)
	out, err := uc.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 20, Sort: "price_asc"})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "Apple Sticker", out.Items[0].Name)
}
