package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cafe/internal/apperr"
	"cafe/internal/models"
)

// MockCache is a mock implementation of cache.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func TestCatalogCachesMenuListing(t *testing.T) {
	f := newFixture(t)
	soup := f.menuItem(t, "Soup", "4.00")

	// Miss, then fill from the store
	mockCache := new(MockCache)
	mockCache.On("Get", mock.Anything, "menu:1", mock.Anything).Return(false, nil).Once()
	mockCache.On("Set", mock.Anything, "menu:1", mock.Anything).Return(nil).Once()

	catalog := NewCatalog(f.catalog.Deps, mockCache)
	items, err := catalog.ListMenu(context.Background(), soup.CategoryID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Soup", items[0].Name)

	// Writes invalidate the category key
	mockCache.On("Delete", mock.Anything, []string{"menu:1"}).Return(nil).Once()
	_, err = catalog.CreateMenuItem(f.ctx, models.MenuItem{
		CategoryID: soup.CategoryID,
		Name:       "Borscht",
		Slug:       "borscht",
		Price:      decimal.RequireFromString("6.5"),
	})
	require.NoError(t, err)

	mockCache.AssertExpectations(t)
}

func TestCatalogServesCacheHit(t *testing.T) {
	f := newFixture(t)

	mockCache := new(MockCache)
	mockCache.On("Get", mock.Anything, "categories", mock.Anything).
		Run(func(args mock.Arguments) {
			dst := args.Get(2).(*[]models.Category)
			*dst = []models.Category{{Name: "Cached", Slug: "cached"}}
		}).
		Return(true, nil).Once()

	catalog := NewCatalog(f.catalog.Deps, mockCache)
	categories, err := catalog.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Cached", categories[0].Name)

	mockCache.AssertExpectations(t)
	mockCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogSurvivesCacheFailure(t *testing.T) {
	f := newFixture(t)
	f.menuItem(t, "Tea", "1.00")

	mockCache := new(MockCache)
	mockCache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
	mockCache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	catalog := NewCatalog(f.catalog.Deps, mockCache)
	categories, err := catalog.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestMenuSortAndSearch(t *testing.T) {
	f := newFixture(t)
	f.menuItem(t, "Green Tea", "3.00")
	f.menuItem(t, "Latte", "5.00")
	black := f.menuItem(t, "Black Tea", "2.00")
	ctx := context.Background()

	asc, err := f.catalog.SortMenu(ctx, black.CategoryID, "asc")
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "Black Tea", asc[0].Name)
	assert.Equal(t, "Latte", asc[2].Name)

	desc, err := f.catalog.SortMenu(ctx, black.CategoryID, "desc")
	require.NoError(t, err)
	assert.Equal(t, "Latte", desc[0].Name)

	_, err = f.catalog.SortMenu(ctx, black.CategoryID, "sideways")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	found, err := f.catalog.SearchMenu(ctx, black.CategoryID, "TEA")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = f.catalog.ListMenu(ctx, 404)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMenuItemDeleteGuards(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)
	steak := f.menuItem(t, "Steak", "20.00")
	salad := f.menuItem(t, "Salad", "7.00")

	order, err := f.orders.Create(f.ctx, table.ID, nil)
	require.NoError(t, err)
	_, err = f.orders.AddItem(f.ctx, order.ID, steak.ID, 1)
	require.NoError(t, err)

	err = f.catalog.DeleteMenuItem(f.ctx, steak.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	err = f.catalog.DeleteCategory(f.ctx, steak.CategoryID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	require.NoError(t, f.catalog.DeleteMenuItem(f.ctx, salad.ID))
	_, err = f.catalog.GetMenuItem(context.Background(), salad.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCategoryValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateCategory(f.ctx, models.Category{Name: "Drinks", Slug: "drinks"})
	require.NoError(t, err)

	_, err = f.catalog.CreateCategory(f.ctx, models.Category{Name: "Drinks again", Slug: "drinks"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.catalog.CreateCategory(f.ctx, models.Category{Name: "", Slug: "empty"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.catalog.CreateMenuItem(f.ctx, models.MenuItem{CategoryID: 404, Name: "Ghost", Slug: "ghost"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.catalog.CreateMenuItem(f.ctx, models.MenuItem{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
