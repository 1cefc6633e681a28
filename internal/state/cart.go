// Package state holds the pure state transitions of the storefront: the cart
// and catalog reducers and the pagination math derived from catalog state.
// Nothing in this package performs I/O.
package state

import (
	"fmt"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// CartOp is a cart transition. The set of implementations is closed:
// AddItem, RemoveItem, SetQuantity and ClearCart.
type CartOp interface {
	cartOp()
}

// AddItem adds one unit of a product to the cart
type AddItem struct {
	Product models.Product
}

// RemoveItem drops the line with the given product id
type RemoveItem struct {
	ID int64
}

// SetQuantity sets the quantity of an existing line. Non-positive
// quantities leave the line unchanged.
type SetQuantity struct {
	ID       int64
	Quantity int
}

// ClearCart empties the cart
type ClearCart struct{}

func (AddItem) cartOp()     {}
func (RemoveItem) cartOp()  {}
func (SetQuantity) cartOp() {}
func (ClearCart) cartOp()   {}

// ReduceCart applies op to s and returns the new state. s is not modified.
func ReduceCart(s models.CartState, op CartOp) models.CartState {
	items := make([]models.CartItem, len(s.Items))
	copy(items, s.Items)

	switch op := op.(type) {
	case AddItem:
		if i := indexOf(items, op.Product.ID); i >= 0 {
			items[i].Quantity++
		} else {
			items = append(items, models.CartItem{
				ID:        op.Product.ID,
				Title:     op.Product.Title,
				Price:     op.Product.Price,
				Thumbnail: op.Product.Thumbnail,
				Category:  op.Product.Category,
				Quantity:  1,
			})
		}
	case RemoveItem:
		if i := indexOf(items, op.ID); i >= 0 {
			items = append(items[:i], items[i+1:]...)
		}
	case SetQuantity:
		if i := indexOf(items, op.ID); i >= 0 && op.Quantity > 0 {
			items[i].Quantity = op.Quantity
		}
	case ClearCart:
		items = items[:0]
	default:
		panic(fmt.Sprintf("state: unhandled cart op %T", op))
	}

	return NewCartState(items)
}

// NewCartState builds a cart state from items, deriving the totals
func NewCartState(items []models.CartItem) models.CartState {
	if items == nil {
		items = []models.CartItem{}
	}
	totalItems, totalPrice := CartTotals(items)
	return models.CartState{
		Items:      items,
		TotalItems: totalItems,
		TotalPrice: totalPrice,
	}
}

// CartTotals re-scans items for the quantity sum and price sum
func CartTotals(items []models.CartItem) (int, decimal.Decimal) {
	totalItems := 0
	totalPrice := decimal.Zero
	for _, item := range items {
		totalItems += item.Quantity
		totalPrice = totalPrice.Add(item.LineTotal())
	}
	return totalItems, totalPrice
}

// ValidateCartItems reports the first problem that makes a persisted item
// sequence unusable
func ValidateCartItems(items []models.CartItem) error {
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: non-positive quantity %d", item.ID, item.Quantity)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("item %d: negative price %s", item.ID, item.Price)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("item %d: duplicate entry", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func indexOf(items []models.CartItem, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
