package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when confirming checkout of an empty cart
var ErrEmptyCart = errors.New("cart is empty")

const confirmationMessage = "Thank you for your purchase! Your order has been placed."

// Rates are the pricing rules of the order summary
type Rates struct {
	TaxRate          decimal.Decimal
	FreeShippingOver decimal.Decimal
	ShippingFee      decimal.Decimal
}

// DefaultRates is 8% tax and a flat 10 shipping fee waived above 50
func DefaultRates() Rates {
	return Rates{
		TaxRate:          decimal.RequireFromString("0.08"),
		FreeShippingOver: decimal.NewFromInt(50),
		ShippingFee:      decimal.NewFromInt(10),
	}
}

// Summary is the order summary shown on the checkout view
type Summary struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"totalItems"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Tax        decimal.Decimal   `json:"tax"`
	Shipping   decimal.Decimal   `json:"shipping"`
	Total      decimal.Decimal   `json:"total"`
}

// Summarize prices cart under rates. Shipping is free for an empty cart or a
// subtotal strictly above the threshold. Tax is rounded to cents.
func Summarize(cart models.CartState, rates Rates) Summary {
	subtotal := cart.TotalPrice
	tax := subtotal.Mul(rates.TaxRate).Round(2)

	shipping := rates.ShippingFee
	if len(cart.Items) == 0 || subtotal.GreaterThan(rates.FreeShippingOver) {
		shipping = decimal.Zero
	}

	return Summary{
		Items:      cart.Items,
		TotalItems: cart.TotalItems,
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		Total:      subtotal.Add(tax).Add(shipping),
	}
}

// Confirmation is returned when checkout succeeds
type Confirmation struct {
	OrderRef string  `json:"orderRef"`
	Message  string  `json:"message"`
	Summary  Summary `json:"summary"`
}

// Checkout confirms orders from the cart
type Checkout struct {
	cart      *CartStore
	auth      *AuthGate
	publisher EventPublisher
	rates     Rates
	logger    *zap.Logger
}

// NewCheckout creates the checkout flow. publisher may be nil.
func NewCheckout(cart *CartStore, auth *AuthGate, publisher EventPublisher, rates Rates) *Checkout {
	return &Checkout{
		cart:      cart,
		auth:      auth,
		publisher: publisher,
		rates:     rates,
		logger:    util.ComponentLogger("checkout"),
	}
}

// Summary prices the current cart
func (c *Checkout) Summary() Summary {
	return Summarize(c.cart.Snapshot(), c.rates)
}

// Confirm places the order: it takes the cart's items and clears the cart
// atomically, then publishes the confirmation event for exactly those items.
// A publish failure is logged and does not restore the cart.
func (c *Checkout) Confirm(ctx context.Context) (*Confirmation, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Confirm")
	defer span.End()

	taken := c.cart.TakeAll(ctx)
	if len(taken.Items) == 0 {
		return nil, ErrEmptyCart
	}
	summary := Summarize(taken, c.rates)

	orderRef := uuid.New().String()
	span.SetAttributes(attribute.String("order_ref", orderRef))

	if c.publisher != nil {
		if err := c.publisher.PublishCheckoutConfirmed(ctx, c.event(orderRef, summary)); err != nil {
			util.RecordError(span, err)
			util.CheckoutEventPublishFailures.Inc()
			c.logger.Error("Failed to publish CheckoutConfirmed event",
				zap.String("order_ref", orderRef),
				zap.Error(err))
		}
	}

	util.CheckoutsConfirmedTotal.Inc()
	c.logger.Info("Checkout confirmed",
		zap.String("order_ref", orderRef),
		zap.Int("items", summary.TotalItems),
		zap.String("total", summary.Total.StringFixed(2)))

	return &Confirmation{
		OrderRef: orderRef,
		Message:  confirmationMessage,
		Summary:  summary,
	}, nil
}

func (c *Checkout) event(orderRef string, summary Summary) *models.CheckoutConfirmedEvent {
	lines := make([]models.CheckoutLine, 0, len(summary.Items))
	for _, item := range summary.Items {
		lines = append(lines, models.CheckoutLine{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	var username string
	if c.auth != nil {
		if user := c.auth.Session().User; user != nil {
			username = user.Username
		}
	}

	return &models.CheckoutConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutConfirmed,
			Timestamp: time.Now(),
		},
		OrderRef: orderRef,
		Username: username,
		Items:    lines,
		Subtotal: summary.Subtotal,
		Tax:      summary.Tax,
		Shipping: summary.Shipping,
		Total:    summary.Total,
	}
}
