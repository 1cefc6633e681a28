package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func productPage(total, skip int, ids ...int64) models.ProductPage {
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, models.Product{ID: id, Title: "p"})
	}
	return models.ProductPage{Products: products, Total: total, Skip: skip, Limit: 12}
}

type catalogStoreSuite struct {
	suite.Suite

	source *fakeSource
	store  *CatalogStore
}

func TestCatalogStoreSuite(t *testing.T) {
	suite.Run(t, new(catalogStoreSuite))
}

// before each test
func (suite *catalogStoreSuite) SetupTest() {
	suite.source = &fakeSource{
		page: func(_ context.Context, limit, skip int) (models.ProductPage, error) {
			return productPage(194, skip, int64(skip+1), int64(skip+2)), nil
		},
		byCategory: func(_ context.Context, category string) (models.ProductPage, error) {
			return productPage(5, 0, 100, 101, 102, 103, 104), nil
		},
		categories: func(context.Context) ([]string, error) {
			return []string{"beauty", "laptops"}, nil
		},
	}
	suite.store = NewCatalogStore(suite.source, 12, state.LastIssuedWins)
}

func (suite *catalogStoreSuite) TestFetchPageLoads() {
	err := suite.store.FetchPage(context.Background(), 12, 0)
	suite.Require().NoError(err)

	s := suite.store.Snapshot()
	suite.Equal(models.FetchStatusLoaded, s.Status)
	suite.False(s.Loading)
	suite.Empty(s.Error)
	suite.Equal(194, s.Total)
	suite.Len(s.Items, 2)
}

func (suite *catalogStoreSuite) TestFetchFailureSetsError() {
	suite.source.page = func(context.Context, int, int) (models.ProductPage, error) {
		return models.ProductPage{}, errors.New("Network Error")
	}

	err := suite.store.FetchPage(context.Background(), 12, 0)
	suite.Require().Error(err)

	s := suite.store.Snapshot()
	suite.False(s.Loading)
	suite.Equal(models.FetchStatusFailed, s.Status)
	suite.Equal("Network Error", s.Error)
}

func (suite *catalogStoreSuite) TestSetPageComputesSkipAndRefetches() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.FetchPage(ctx, 12, 0))

	suite.Require().NoError(suite.store.SetPage(ctx, 3))

	s := suite.store.Snapshot()
	suite.Equal(24, s.Skip)
	suite.Equal(3, state.CurrentPage(s.Skip, s.Limit))
	suite.Equal(int64(25), s.Items[0].ID)
	suite.Equal([]string{"page", "page"}, suite.source.Calls())
}

func (suite *catalogStoreSuite) TestSetPageRejectsOutOfRange() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.FetchPage(ctx, 12, 0))

	for _, p := range []int{0, -1, 18} {
		err := suite.store.SetPage(ctx, p)
		suite.ErrorIs(err, ErrPageOutOfRange)
	}
	suite.Equal(0, suite.store.Snapshot().Skip)
	suite.Len(suite.source.Calls(), 1)

	suite.NoError(suite.store.SetPage(ctx, 17))
}

func (suite *catalogStoreSuite) TestSetCategoryFetchesByCategory() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.FetchPage(ctx, 12, 0))
	suite.Require().NoError(suite.store.SetPage(ctx, 2))

	suite.Require().NoError(suite.store.SetCategory(ctx, "laptops"))

	s := suite.store.Snapshot()
	suite.Equal("laptops", s.SelectedCategory)
	suite.Equal(0, s.Skip)
	suite.Equal(5, s.Total)
	suite.Nil(state.NewPager(s.Total, s.Limit, s.Skip))

	suite.Require().NoError(suite.store.SetCategory(ctx, models.CategoryAll))
	suite.Equal([]string{"page", "page", "category:laptops", "page"}, suite.source.Calls())
}

func (suite *catalogStoreSuite) TestSetPageRejectedForCategory() {
	ctx := context.Background()
	suite.source.byCategory = func(context.Context, string) (models.ProductPage, error) {
		return productPage(27, 0, 1, 2, 3), nil
	}
	suite.Require().NoError(suite.store.SetCategory(ctx, "groceries"))

	err := suite.store.SetPage(ctx, 2)
	suite.ErrorIs(err, ErrNotPaginated)
	suite.Equal(0, suite.store.Snapshot().Skip)
	suite.Equal([]string{"category:groceries"}, suite.source.Calls())
}

func (suite *catalogStoreSuite) TestFetchCategoriesOnce() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.FetchCategories(ctx))
	suite.Require().NoError(suite.store.FetchCategories(ctx))

	suite.Equal([]string{"beauty", "laptops"}, suite.store.Snapshot().Categories)
	suite.Equal([]string{"categories"}, suite.source.Calls())
}

func (suite *catalogStoreSuite) TestFetchCategoriesFailureRetries() {
	ctx := context.Background()
	suite.source.categories = func(context.Context) ([]string, error) {
		return nil, errors.New("boom")
	}
	suite.Error(suite.store.FetchCategories(ctx))
	suite.Empty(suite.store.Snapshot().Error)

	suite.source.categories = func(context.Context) ([]string, error) {
		return []string{"beauty"}, nil
	}
	suite.NoError(suite.store.FetchCategories(ctx))
	suite.Equal([]string{"beauty"}, suite.store.Snapshot().Categories)
}

// racePrevious issues a category fetch that resolves only after a newer page
// fetch has completed, and returns the final state
func racePrevious(t *testing.T, policy state.FencePolicy) models.CatalogState {
	t.Helper()

	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{
		page: func(_ context.Context, limit, skip int) (models.ProductPage, error) {
			return productPage(194, 0, 1, 2), nil
		},
		byCategory: func(context.Context, string) (models.ProductPage, error) {
			close(started)
			<-release
			return productPage(5, 0, 100), nil
		},
	}
	store := NewCatalogStore(source, 12, policy)

	done := make(chan error, 1)
	go func() {
		done <- store.FetchByCategory(context.Background(), "laptops")
	}()
	<-started

	require.NoError(t, store.FetchPage(context.Background(), 12, 0))
	close(release)
	require.NoError(t, <-done)

	return store.Snapshot()
}

func TestCatalogStoreLastIssuedWins(t *testing.T) {
	s := racePrevious(t, state.LastIssuedWins)

	assert.Equal(t, 194, s.Total)
	assert.Equal(t, int64(1), s.Items[0].ID)
	assert.False(t, s.Loading)
}

func TestCatalogStoreLastCompletedWins(t *testing.T) {
	s := racePrevious(t, state.LastCompletedWins)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, int64(100), s.Items[0].ID)
}

func TestCatalogStoreLoadingWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{
		page: func(context.Context, int, int) (models.ProductPage, error) {
			close(started)
			<-release
			return productPage(1, 0, 1), nil
		},
	}
	store := NewCatalogStore(source, 12, state.LastIssuedWins)

	done := make(chan error, 1)
	go func() { done <- store.FetchPage(context.Background(), 12, 0) }()
	<-started

	s := store.Snapshot()
	assert.True(t, s.Loading)
	assert.Equal(t, models.FetchStatusLoading, s.Status)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, store.Snapshot().Loading)
}
