package state

import (
	"fmt"
	"strings"

	"storefront/internal/models"
)

// FencePolicy decides which fetch completion is allowed to mutate catalog state
type FencePolicy int

const (
	// LastIssuedWins discards completions of requests superseded by a newer one
	LastIssuedWins FencePolicy = iota
	// LastCompletedWins applies every completion in arrival order
	LastCompletedWins
)

func (p FencePolicy) String() string {
	switch p {
	case LastIssuedWins:
		return "last-issued"
	case LastCompletedWins:
		return "last-completed"
	default:
		return fmt.Sprintf("FencePolicy(%d)", int(p))
	}
}

// ParseFencePolicy parses "last-issued" or "last-completed"
func ParseFencePolicy(s string) (FencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-issued":
		return LastIssuedWins, nil
	case "last-completed":
		return LastCompletedWins, nil
	default:
		return LastIssuedWins, fmt.Errorf("unknown fence policy %q", s)
	}
}

// CatalogOp is a catalog transition. The set of implementations is closed:
// SetCategory, SetPage, FetchPage, FetchByCategory, PageLoaded,
// CategoryLoaded, FetchFailed and CategoriesLoaded.
type CatalogOp interface {
	catalogOp()
}

// SetCategory selects a category and rewinds to the first page
type SetCategory struct {
	Category string
}

// SetPage moves the offset to the given 1-based page
type SetPage struct {
	Page int
}

// FetchPage marks a paginated request with sequence number Seq as issued
type FetchPage struct {
	Seq   uint64
	Limit int
	Skip  int
}

// FetchByCategory marks a category request with sequence number Seq as issued
type FetchByCategory struct {
	Seq      uint64
	Category string
}

// PageLoaded resolves a FetchPage request
type PageLoaded struct {
	Seq  uint64
	Page models.ProductPage
}

// CategoryLoaded resolves a FetchByCategory request
type CategoryLoaded struct {
	Seq  uint64
	Page models.ProductPage
}

// FetchFailed resolves either request kind with an error message
type FetchFailed struct {
	Seq     uint64
	Message string
}

// CategoriesLoaded stores the normalized category labels
type CategoriesLoaded struct {
	Labels []string
}

func (SetCategory) catalogOp()      {}
func (SetPage) catalogOp()          {}
func (FetchPage) catalogOp()        {}
func (FetchByCategory) catalogOp()  {}
func (PageLoaded) catalogOp()       {}
func (CategoryLoaded) catalogOp()   {}
func (FetchFailed) catalogOp()      {}
func (CategoriesLoaded) catalogOp() {}

// NewCatalogState returns the idle state for the given page size
func NewCatalogState(limit int) models.CatalogState {
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	return models.CatalogState{
		Items:            []models.Product{},
		Categories:       []string{},
		Limit:            limit,
		SelectedCategory: models.CategoryAll,
		Status:           models.FetchStatusIdle,
	}
}

// ReduceCatalog applies op to s. The boolean result is false when op was a
// completion discarded by the fence policy, in which case s is returned as is.
func ReduceCatalog(s models.CatalogState, op CatalogOp, policy FencePolicy) (models.CatalogState, bool) {
	switch op := op.(type) {
	case SetCategory:
		s.SelectedCategory = op.Category
		s.Skip = 0
	case SetPage:
		s.Skip = (op.Page - 1) * s.Limit
	case FetchPage:
		s = issue(s, op.Seq)
	case FetchByCategory:
		s = issue(s, op.Seq)
	case PageLoaded:
		if stale(s, op.Seq, policy) {
			return s, false
		}
		s.Items = op.Page.Products
		s.Total = op.Page.Total
		s.Skip = op.Page.Skip
		s = settle(s, models.FetchStatusLoaded, "")
	case CategoryLoaded:
		if stale(s, op.Seq, policy) {
			return s, false
		}
		s.Items = op.Page.Products
		s.Total = op.Page.Total
		s = settle(s, models.FetchStatusLoaded, "")
	case FetchFailed:
		if stale(s, op.Seq, policy) {
			return s, false
		}
		s = settle(s, models.FetchStatusFailed, op.Message)
	case CategoriesLoaded:
		s.Categories = append([]string{}, op.Labels...)
	default:
		panic(fmt.Sprintf("state: unhandled catalog op %T", op))
	}
	return s, true
}

func issue(s models.CatalogState, seq uint64) models.CatalogState {
	s.Seq = seq
	s.Loading = true
	s.Error = ""
	s.Status = models.FetchStatusLoading
	return s
}

func settle(s models.CatalogState, status models.FetchStatus, msg string) models.CatalogState {
	if s.Items == nil {
		s.Items = []models.Product{}
	}
	s.Loading = false
	s.Error = msg
	s.Status = status
	return s
}

func stale(s models.CatalogState, seq uint64, policy FencePolicy) bool {
	return policy == LastIssuedWins && seq != s.Seq
}
