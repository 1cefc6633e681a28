package models

import "github.com/shopspring/decimal"

const (
	// CategoryAll selects the paginated, unfiltered catalog
	CategoryAll = "all"
	// DefaultPageSize is the catalog page size when none is configured
	DefaultPageSize = 12
	// CartStorageKey is the storage key holding the persisted cart items
	CartStorageKey = "cartItems"
)

// Product represents a catalog product as served by the shop API
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Thumbnail   string          `json:"thumbnail"`
	Description string          `json:"description"`
}

// CartItem represents a product plus the quantity the user intends to buy
type CartItem struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Thumbnail string          `json:"thumbnail"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns price * quantity
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartState is the cart snapshot with totals derived from Items
type CartState struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// FetchStatus is the lifecycle of the latest catalog request
type FetchStatus string

// Fetch statuses
const (
	FetchStatusIdle    FetchStatus = "idle"
	FetchStatusLoading FetchStatus = "loading"
	FetchStatusLoaded  FetchStatus = "loaded"
	FetchStatusFailed  FetchStatus = "failed"
)

// CatalogState is the current product page/category result set
type CatalogState struct {
	Items            []Product   `json:"items"`
	Categories       []string    `json:"categories"`
	Total            int         `json:"total"`
	Skip             int         `json:"skip"`
	Limit            int         `json:"limit"`
	Loading          bool        `json:"loading"`
	Error            string      `json:"error,omitempty"`
	SelectedCategory string      `json:"selectedCategory"`
	Status           FetchStatus `json:"status"`
	Seq              uint64      `json:"-"`
}

// ProductPage is one resolved product listing
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// User is the identity record held by an authenticated session
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
}

// DisplayName returns the first name, falling back to the username
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// Session is the client-held authentication record
type Session struct {
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	Loading       bool   `json:"loading"`
	Error         string `json:"error,omitempty"`
}

// Credentials is a login request
type Credentials struct {
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password" binding:"required"`
	ExpiresInMins int    `json:"expiresInMins,omitempty"`
}
