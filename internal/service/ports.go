package service

import (
	"context"

	"storefront/internal/models"
)

// ProductSource is the catalog side of the shop API
type ProductSource interface {
	FetchProducts(ctx context.Context, limit, skip int) (models.ProductPage, error)
	FetchProductsByCategory(ctx context.Context, category string) (models.ProductPage, error)
	FetchCategories(ctx context.Context) ([]string, error)
}

// IdentityProvider authenticates credentials the gate cannot settle locally
type IdentityProvider interface {
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
}

// EventPublisher publishes checkout confirmations
type EventPublisher interface {
	PublishCheckoutConfirmed(ctx context.Context, event *models.CheckoutConfirmedEvent) error
}
