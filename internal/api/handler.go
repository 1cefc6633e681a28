package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/app"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// LoginPath is where unauthenticated requests to gated routes are redirected
const LoginPath = "/login"

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	app   *app.App
	ready Pinger
}

// NewHandler creates a new HTTP handler. ready may be nil.
func NewHandler(a *app.App, ready Pinger) *Handler {
	return &Handler{
		app:   a,
		ready: ready,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/logout", h.logout)
		v1.GET("/auth/session", h.session)
	}

	gated := v1.Group("", h.requireAuth())
	{
		gated.GET("/catalog", h.getCatalog)
		gated.POST("/catalog/category", h.setCategory)
		gated.POST("/catalog/page", h.setPage)
		gated.POST("/catalog/refresh", h.refreshCatalog)
		gated.GET("/catalog/categories", h.getCategories)

		gated.GET("/cart", h.getCart)
		gated.POST("/cart/items", h.addItem)
		gated.DELETE("/cart/items/:id", h.removeItem)
		gated.PUT("/cart/items/:id", h.setQuantity)
		gated.POST("/cart/items/:id/increment", h.increment)
		gated.POST("/cart/items/:id/decrement", h.decrement)
		gated.DELETE("/cart", h.clearCart)

		gated.GET("/checkout", h.getCheckout)
		gated.POST("/checkout/confirm", h.confirmCheckout)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// requireAuth redirects unauthenticated requests to the login view
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.app.Auth.Authenticated() {
			c.Header("Location", LoginPath)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Authentication required",
				"redirect": LoginPath,
			})
			return
		}
		c.Next()
	}
}

func (h *Handler) login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	session, err := h.app.Auth.Login(c.Request.Context(), creds)
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid credentials",
			"details": err.Error(),
		})
	case err != nil:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Login failed",
			"details": err.Error(),
			"session": session,
		})
	default:
		c.JSON(http.StatusOK, session)
	}
}

func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Auth.Logout())
}

func (h *Handler) session(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Auth.Session())
}

// catalogView is a catalog snapshot plus its derived pagination controls
type catalogView struct {
	models.CatalogState
	Pagination *state.Pager `json:"pagination,omitempty"`
}

// catalogView pairs the snapshot with pagination controls. Only the unfiltered
// catalog is paginated.
func (h *Handler) catalogView() catalogView {
	s := h.app.Catalog.Snapshot()
	view := catalogView{CatalogState: s}
	if s.SelectedCategory == models.CategoryAll {
		view.Pagination = state.NewPager(s.Total, s.Limit, s.Skip)
	}
	return view
}

// getCatalog returns the current listing. An idle catalog is fetched first.
func (h *Handler) getCatalog(c *gin.Context) {
	if h.app.Catalog.Snapshot().Status == models.FetchStatusIdle {
		// failures are reported through the snapshot's error field
		_ = h.app.Catalog.Refresh(c.Request.Context())
	}
	c.JSON(http.StatusOK, h.catalogView())
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (h *Handler) setCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	_ = h.app.Catalog.SetCategory(c.Request.Context(), req.Category)
	c.JSON(http.StatusOK, h.catalogView())
}

type pageRequest struct {
	Page int `json:"page" binding:"required"`
}

func (h *Handler) setPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	err := h.app.Catalog.SetPage(c.Request.Context(), req.Page)
	if errors.Is(err, service.ErrPageOutOfRange) || errors.Is(err, service.ErrNotPaginated) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid page",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, h.catalogView())
}

func (h *Handler) refreshCatalog(c *gin.Context) {
	_ = h.app.Catalog.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, h.catalogView())
}

func (h *Handler) getCategories(c *gin.Context) {
	if err := h.app.Catalog.FetchCategories(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch categories",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": append([]string{models.CategoryAll}, h.app.Catalog.Snapshot().Categories...),
	})
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Cart.Snapshot())
}

func (h *Handler) addItem(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if product.ID <= 0 || product.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product",
		})
		return
	}

	c.JSON(http.StatusOK, h.app.Cart.AddItem(c.Request.Context(), product))
}

func (h *Handler) removeItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.app.Cart.RemoveItem(c.Request.Context(), id))
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) setQuantity(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.app.Cart.SetQuantity(c.Request.Context(), id, *req.Quantity))
}

func (h *Handler) increment(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.app.Cart.Increment(c.Request.Context(), id))
}

func (h *Handler) decrement(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.app.Cart.Decrement(c.Request.Context(), id))
}

func (h *Handler) clearCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Cart.ClearCart(c.Request.Context()))
}

func (h *Handler) getCheckout(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Checkout.Summary())
}

func (h *Handler) confirmCheckout(c *gin.Context) {
	confirmation, err := h.app.Checkout.Confirm(c.Request.Context())
	if errors.Is(err, service.ErrEmptyCart) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Nothing to check out",
			"details": err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to confirm checkout",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, confirmation)
}

// itemID parses the :id path parameter, writing a 400 when it is invalid
func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger logs each request through the application logger
func requestLogger() gin.HandlerFunc {
	logger := util.ComponentLogger("http")
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
