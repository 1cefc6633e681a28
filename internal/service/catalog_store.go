package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/state"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrPageOutOfRange is returned by SetPage for pages outside [1, totalPages]
var ErrPageOutOfRange = errors.New("page out of range")

// ErrNotPaginated is returned by SetPage while a single category is selected.
// Category listings are served whole.
var ErrNotPaginated = errors.New("category listings are not paginated")

// CatalogStore owns the catalog state and drives fetches against the shop API.
// No lock is held while a request is in flight; each completion re-enters
// the reducer and is fenced by its sequence number.
type CatalogStore struct {
	mu               sync.Mutex
	state            models.CatalogState
	source           ProductSource
	policy           state.FencePolicy
	categoriesLoaded bool
	logger           *zap.Logger
}

// NewCatalogStore creates an idle catalog with the given page size
func NewCatalogStore(source ProductSource, limit int, policy state.FencePolicy) *CatalogStore {
	return &CatalogStore{
		state:  state.NewCatalogState(limit),
		source: source,
		policy: policy,
		logger: util.ComponentLogger("catalog"),
	}
}

// Snapshot returns a copy of the current state
func (s *CatalogStore) Snapshot() models.CatalogState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCatalog(s.state)
}

// Policy reports the fence policy in use
func (s *CatalogStore) Policy() state.FencePolicy {
	return s.policy
}

// SetCategory selects category, rewinds to the first page and refetches
func (s *CatalogStore) SetCategory(ctx context.Context, category string) error {
	if category == "" {
		category = models.CategoryAll
	}

	s.mu.Lock()
	s.reduce(state.SetCategory{Category: category})
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// SetPage moves to the 1-based page of the unfiltered catalog and refetches
func (s *CatalogStore) SetPage(ctx context.Context, page int) error {
	s.mu.Lock()
	if s.state.SelectedCategory != models.CategoryAll {
		category := s.state.SelectedCategory
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotPaginated, category)
	}
	totalPages := state.TotalPages(s.state.Total, s.state.Limit)
	if !state.PageInRange(page, totalPages) {
		s.mu.Unlock()
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, totalPages)
	}
	s.reduce(state.SetPage{Page: page})
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Refresh re-issues the fetch matching the current selection
func (s *CatalogStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	category, limit, skip := s.state.SelectedCategory, s.state.Limit, s.state.Skip
	s.mu.Unlock()

	if category == models.CategoryAll {
		return s.FetchPage(ctx, limit, skip)
	}
	return s.FetchByCategory(ctx, category)
}

// FetchPage loads one page of the unfiltered catalog
func (s *CatalogStore) FetchPage(ctx context.Context, limit, skip int) error {
	ctx, span := util.StartSpan(ctx, "CatalogStore.FetchPage",
		attribute.Int("limit", limit), attribute.Int("skip", skip))
	defer span.End()

	seq := s.issue(func(seq uint64) state.CatalogOp {
		return state.FetchPage{Seq: seq, Limit: limit, Skip: skip}
	})

	start := time.Now()
	page, err := s.source.FetchProducts(ctx, limit, skip)
	util.CatalogFetchLatency.WithLabelValues("page").Observe(time.Since(start).Seconds())

	var op state.CatalogOp = state.PageLoaded{Seq: seq, Page: page}
	if err != nil {
		util.RecordError(span, err)
		op = state.FetchFailed{Seq: seq, Message: err.Error()}
	}
	return s.complete("page", seq, op, err)
}

// FetchByCategory loads every product of category
func (s *CatalogStore) FetchByCategory(ctx context.Context, category string) error {
	ctx, span := util.StartSpan(ctx, "CatalogStore.FetchByCategory",
		attribute.String("category", category))
	defer span.End()

	seq := s.issue(func(seq uint64) state.CatalogOp {
		return state.FetchByCategory{Seq: seq, Category: category}
	})

	start := time.Now()
	page, err := s.source.FetchProductsByCategory(ctx, category)
	util.CatalogFetchLatency.WithLabelValues("category").Observe(time.Since(start).Seconds())

	var op state.CatalogOp = state.CategoryLoaded{Seq: seq, Page: page}
	if err != nil {
		util.RecordError(span, err)
		op = state.FetchFailed{Seq: seq, Message: err.Error()}
	}
	return s.complete("category", seq, op, err)
}

// FetchCategories loads the category labels. Once loaded, later calls are no-ops.
func (s *CatalogStore) FetchCategories(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.categoriesLoaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	ctx, span := util.StartSpan(ctx, "CatalogStore.FetchCategories")
	defer span.End()

	labels, err := s.source.FetchCategories(ctx)
	if err != nil {
		util.RecordError(span, err)
		util.CatalogFetchesTotal.WithLabelValues("categories", "failed").Inc()
		s.logger.Warn("Failed to fetch categories", zap.Error(err))
		return fmt.Errorf("failed to fetch categories: %w", err)
	}

	s.mu.Lock()
	s.reduce(state.CategoriesLoaded{Labels: labels})
	s.categoriesLoaded = true
	s.mu.Unlock()

	util.CatalogFetchesTotal.WithLabelValues("categories", "loaded").Inc()
	s.logger.Debug("Categories loaded", zap.Int("count", len(labels)))
	return nil
}

func (s *CatalogStore) issue(op func(seq uint64) state.CatalogOp) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.state.Seq + 1
	s.reduce(op(seq))
	return seq
}

func (s *CatalogStore) complete(kind string, seq uint64, op state.CatalogOp, fetchErr error) error {
	s.mu.Lock()
	applied := s.reduce(op)
	latest := s.state.Seq
	s.mu.Unlock()

	if !applied {
		util.CatalogStaleDiscardedTotal.WithLabelValues(kind).Inc()
		s.logger.Debug("Discarded stale catalog response",
			zap.String("kind", kind),
			zap.Uint64("seq", seq),
			zap.Uint64("latest", latest))
		return nil
	}

	if fetchErr != nil {
		util.CatalogFetchesTotal.WithLabelValues(kind, "failed").Inc()
		s.logger.Warn("Catalog fetch failed", zap.String("kind", kind), zap.Error(fetchErr))
		return fmt.Errorf("catalog %s fetch failed: %w", kind, fetchErr)
	}

	util.CatalogFetchesTotal.WithLabelValues(kind, "loaded").Inc()
	return nil
}

// reduce must be called with mu held
func (s *CatalogStore) reduce(op state.CatalogOp) bool {
	next, applied := state.ReduceCatalog(s.state, op, s.policy)
	s.state = next
	return applied
}

func copyCatalog(s models.CatalogState) models.CatalogState {
	s.Items = append([]models.Product{}, s.Items...)
	s.Categories = append([]string{}, s.Categories...)
	return s
}
