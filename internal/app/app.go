// Package app wires the storefront stores into one application context.
package app

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators the stores are built from
type Deps struct {
	Storage   store.Storage
	Products  service.ProductSource
	Identity  service.IdentityProvider
	Publisher service.EventPublisher

	CartKey     string
	PageSize    int
	FencePolicy state.FencePolicy
	Rates       service.Rates
}

// App holds the stores shared by every view
type App struct {
	Cart     *service.CartStore
	Catalog  *service.CatalogStore
	Auth     *service.AuthGate
	Checkout *service.Checkout
}

// New builds the stores. The cart is rehydrated from storage before New
// returns.
func New(ctx context.Context, deps Deps) *App {
	if deps.PageSize <= 0 {
		deps.PageSize = models.DefaultPageSize
	}

	cart := service.NewCartStore(ctx, deps.Storage, deps.CartKey)
	auth := service.NewAuthGate(deps.Identity)

	return &App{
		Cart:     cart,
		Catalog:  service.NewCatalogStore(deps.Products, deps.PageSize, deps.FencePolicy),
		Auth:     auth,
		Checkout: service.NewCheckout(cart, auth, deps.Publisher, deps.Rates),
	}
}

// Bootstrap loads the category list and the first catalog page concurrently.
// Neither load cancels the other and both failures are joined into the
// returned error; the catalog state records its own error.
func (a *App) Bootstrap(ctx context.Context) error {
	logger := util.ComponentLogger("app")

	var categoriesErr, pageErr error
	var g errgroup.Group
	g.Go(func() error {
		if err := a.Catalog.FetchCategories(ctx); err != nil {
			categoriesErr = fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.Catalog.Refresh(ctx); err != nil {
			pageErr = fmt.Errorf("load first page: %w", err)
		}
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(categoriesErr, pageErr); err != nil {
		logger.Warn("Bootstrap incomplete", zap.Error(err))
		return err
	}

	s := a.Catalog.Snapshot()
	logger.Info("Catalog bootstrapped",
		zap.Int("products", len(s.Items)),
		zap.Int("total", s.Total),
		zap.Int("categories", len(s.Categories)))
	return nil
}
